// Package noteservice implements the notecli use cases on top of the
// notebook, session and history layers. Both the CLI and the MCP server call
// into it.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	goslug "github.com/gosimple/slug"

	"github.com/starford/notecli/internal/apperr"
	"github.com/starford/notecli/internal/notebook"
	"github.com/starford/notecli/internal/session"
)

// PageDetail is the full representation of a page.
type PageDetail struct {
	Fullname  string    `json:"fullname" yaml:"fullname"`
	Book      string    `json:"book" yaml:"book"`
	Path      string    `json:"path" yaml:"path"`
	Content   string    `json:"content" yaml:"content"`
	Checksum  string    `json:"checksum" yaml:"checksum"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// PageListItem is a lightweight item in a list response.
type PageListItem struct {
	Fullname  string    `json:"fullname" yaml:"fullname"`
	Checksum  string    `json:"checksum" yaml:"checksum"`
	Size      int64     `json:"size" yaml:"size"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// SearchHit is one matching line of a grep.
type SearchHit struct {
	Page string `json:"page" yaml:"page"`
	Line int    `json:"line" yaml:"line"`
	Text string `json:"text" yaml:"text"`
}

// Selector names pages on the command line: literal fullnames, or globs
// when Glob is set.
type Selector struct {
	Names []string
	Glob  bool
	// Each runs the editor once per page instead of once for all of them.
	Each bool
}

// Service coordinates notebook and editing operations.
type Service struct {
	nb      *notebook.Notebook
	session *session.Session
	logger  *slog.Logger
}

// NewService creates a new note service. A nil logger discards output.
func NewService(nb *notebook.Notebook, sess *session.Session, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{nb: nb, session: sess, logger: logger}
}

// Notebook returns the notebook the service operates on.
func (s *Service) Notebook() *notebook.Notebook { return s.nb }

// Open edits the selected pages. Literal names are created when missing; one
// page gets its own editor run and several pages share a single one.
func (s *Service) Open(ctx context.Context, sel Selector) ([]string, error) {
	pages, err := s.nb.Dispatch(notebook.Selection{
		Names:    sel.Names,
		Glob:     sel.Glob,
		Create:   !sel.Glob,
		OnSingle: func(p *notebook.Page) error { return s.session.Open(ctx, p) },
		OnMany: func(ps []*notebook.Page) error {
			if sel.Each {
				return s.session.OpenEach(ctx, ps...)
			}
			return s.session.Open(ctx, ps...)
		},
		OnNone:   func() error { return notMatched(sel) },
	})
	return names(pages), err
}

// OpenGroup edits every member of a group, in one editor run unless each is
// set.
func (s *Service) OpenGroup(ctx context.Context, group string, each bool) ([]string, error) {
	if !s.nb.GroupExists(group) {
		return nil, apperr.NotFound("group", group)
	}
	g, err := s.nb.Group(group)
	if err != nil {
		return nil, err
	}
	members, err := g.Members()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []string{}, nil
	}
	if each {
		return names(members), s.session.OpenEach(ctx, members...)
	}
	return names(members), s.session.Open(ctx, members...)
}

// Resolve expands a selector into existing page fullnames.
func (s *Service) Resolve(_ context.Context, sel Selector) ([]string, error) {
	pages, err := s.nb.Resolve(notebook.Selection{Names: sel.Names, Glob: sel.Glob})
	if err != nil {
		return nil, err
	}
	return names(pages), nil
}

// Find lists pages by name: a shell glob when glob is set, otherwise a
// literal substring of the fullname.
func (s *Service) Find(_ context.Context, pattern string, glob bool) ([]string, error) {
	var (
		pages []*notebook.Page
		err   error
	)
	if glob {
		pages, err = s.nb.FindPages(pattern)
	} else {
		pages, err = s.nb.FilterPages(pattern)
	}
	if err != nil {
		return nil, err
	}
	return names(pages), nil
}

// Grep searches page contents with a regular expression. An empty book
// searches the whole namespace; nested books are included.
func (s *Service) Grep(_ context.Context, pattern, book string) ([]SearchHit, error) {
	re, err := notebook.Compile(pattern)
	if err != nil {
		return nil, err
	}
	b, err := s.nb.Book(book)
	if err != nil {
		return nil, err
	}
	if book != "" && !b.Exists() {
		return nil, apperr.NotFound("book", book)
	}
	hits, err := b.SearchAll(re)
	if err != nil {
		return nil, err
	}
	out := make([]SearchHit, len(hits))
	for i, h := range hits {
		out[i] = SearchHit{Page: h.Page.Fullname(), Line: h.Line, Text: h.Text}
	}
	return out, nil
}

// ListPages lists the pages of a book matching a glob. With recursive set,
// nested books are walked and pattern is ignored.
func (s *Service) ListPages(_ context.Context, book, pattern string, recursive bool) ([]PageListItem, error) {
	b, err := s.nb.Book(book)
	if err != nil {
		return nil, err
	}
	var pages []*notebook.Page
	if recursive {
		pages, err = b.Walk()
	} else {
		pages, err = b.ListPages(pattern)
	}
	if err != nil {
		return nil, err
	}
	items := make([]PageListItem, 0, len(pages))
	for _, p := range pages {
		meta, err := p.Meta()
		if err != nil {
			return nil, err
		}
		items = append(items, PageListItem{
			Fullname:  p.Fullname(),
			Checksum:  meta.Checksum,
			Size:      meta.Size,
			UpdatedAt: meta.UpdatedAt,
		})
	}
	return items, nil
}

// GetPage reads one page.
func (s *Service) GetPage(_ context.Context, fullname string) (*PageDetail, error) {
	p, err := s.existing(fullname)
	if err != nil {
		return nil, err
	}
	return detail(p)
}

// Create makes an empty page, or leaves an existing one untouched.
func (s *Service) Create(_ context.Context, fullname string) (*PageDetail, error) {
	p, err := s.nb.CreatePage(fullname)
	if err != nil {
		return nil, err
	}
	return detail(p)
}

// Append adds text at the end of a page, creating it when missing.
func (s *Service) Append(_ context.Context, fullname, text string) (*PageDetail, error) {
	p, err := s.nb.CreatePage(fullname)
	if err != nil {
		return nil, err
	}
	if err := p.Append(text); err != nil {
		return nil, err
	}
	return detail(p)
}

// Prepend adds text at the start of a page, creating it when missing.
func (s *Service) Prepend(_ context.Context, fullname, text string) (*PageDetail, error) {
	p, err := s.nb.CreatePage(fullname)
	if err != nil {
		return nil, err
	}
	if err := p.Prepend(text); err != nil {
		return nil, err
	}
	return detail(p)
}

// Rename moves a page. An existing target is only replaced with force.
func (s *Service) Rename(_ context.Context, from, to string, force bool) (*PageDetail, error) {
	p, err := s.existing(from)
	if err != nil {
		return nil, err
	}
	if !force && s.nb.PageExists(to) {
		return nil, fmt.Errorf("page %q: %w", to, apperr.ErrAlreadyExists)
	}
	if err := p.Rename(to); err != nil {
		return nil, err
	}
	s.logger.Info("page renamed", slog.String("from", from), slog.String("to", p.Fullname()))
	return detail(p)
}

// Delete removes the selected pages and returns their fullnames.
func (s *Service) Delete(_ context.Context, sel Selector) ([]string, error) {
	pages, err := s.nb.Resolve(notebook.Selection{Names: sel.Names, Glob: sel.Glob})
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, notMatched(sel)
	}
	deleted := make([]string, 0, len(pages))
	for _, p := range pages {
		if err := p.Delete(); err != nil {
			return deleted, err
		}
		deleted = append(deleted, p.Fullname())
	}
	return deleted, nil
}

// Books lists every book of the namespace.
func (s *Service) Books(_ context.Context) ([]string, error) {
	return s.nb.Books()
}

// MakeBook creates a book directory.
func (s *Service) MakeBook(_ context.Context, name string) error {
	_, err := s.nb.CreateBook(name)
	return err
}

// DeleteBook removes a book and every page in it.
func (s *Service) DeleteBook(_ context.Context, name string) error {
	b, err := s.nb.Book(name)
	if err != nil {
		return err
	}
	return b.Delete()
}

// BookExists reports whether a book directory exists.
func (s *Service) BookExists(_ context.Context, name string) bool {
	return s.nb.BookExists(name)
}

// Group links the selected pages into a group, creating the group when needed.
func (s *Service) Group(_ context.Context, group string, sel Selector) ([]string, error) {
	pages, err := s.nb.Resolve(notebook.Selection{Names: sel.Names, Glob: sel.Glob})
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, notMatched(sel)
	}
	g, err := s.nb.Group(group)
	if err != nil {
		return nil, err
	}
	if err := g.Add(pages...); err != nil {
		return nil, err
	}
	return names(pages), nil
}

// Ungroup unlinks pages from a group. Without names the group itself is deleted.
func (s *Service) Ungroup(_ context.Context, group string, names []string) error {
	if !s.nb.GroupExists(group) {
		return apperr.NotFound("group", group)
	}
	g, err := s.nb.Group(group)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return g.Delete()
	}
	pages := make([]*notebook.Page, 0, len(names))
	for _, n := range names {
		p, err := s.nb.PageRef(n)
		if err != nil {
			return err
		}
		pages = append(pages, p)
	}
	return g.Remove(pages...)
}

// RenameGroup moves a group to a new name.
func (s *Service) RenameGroup(_ context.Context, from, to string) error {
	if !s.nb.GroupExists(from) {
		return apperr.NotFound("group", from)
	}
	g, err := s.nb.Group(from)
	if err != nil {
		return err
	}
	return g.Rename(to)
}

// Groups maps every group matching the regular expression to its members.
func (s *Service) Groups(_ context.Context, match string) (map[string][]string, error) {
	return s.nb.GroupContents(match)
}

// Import copies an external file into a page. The page name defaults to the
// slug of the file name without its extension. An existing page is only
// overwritten with force.
func (s *Service) Import(_ context.Context, src, fullname string, force bool) (*PageDetail, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.NotFound("file", src)
		}
		return nil, apperr.IO("read", src, err)
	}
	if fullname == "" || strings.HasSuffix(fullname, "/") {
		fullname += ImportName(src)
	}
	p, err := s.nb.PageRef(fullname)
	if err != nil {
		return nil, err
	}
	if p.Exists() && !force {
		return nil, fmt.Errorf("page %q: %w", p.Fullname(), apperr.ErrAlreadyExists)
	}
	if err := p.Write(string(data)); err != nil {
		return nil, err
	}
	s.logger.Info("page imported", slog.String("src", src), slog.String("page", p.Fullname()))
	return detail(p)
}

// ImportName derives a page name from a file path.
func ImportName(src string) string {
	base := filepath.Base(src)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if name := goslug.Make(base); name != "" {
		return name
	}
	return base
}

// Export writes the content of a page to w.
func (s *Service) Export(_ context.Context, fullname string, w io.Writer) error {
	p, err := s.existing(fullname)
	if err != nil {
		return err
	}
	text, err := p.Read()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

// History returns up to n recently opened pages, most recent first. n <= 0
// returns the whole log.
func (s *Service) History(_ context.Context, n int) ([]string, error) {
	log := s.session.History()
	if n <= 0 {
		entries, err := log.List()
		if err != nil {
			return nil, err
		}
		n = len(entries)
	}
	return log.Recent(n)
}

// ClearHistory forgets every recently opened page.
func (s *Service) ClearHistory(_ context.Context) error {
	return s.session.History().Clear()
}

func (s *Service) existing(fullname string) (*notebook.Page, error) {
	p, err := s.nb.PageRef(fullname)
	if err != nil {
		return nil, err
	}
	if !p.Exists() {
		return nil, apperr.NotFound("page", p.Fullname())
	}
	return p, nil
}

func detail(p *notebook.Page) (*PageDetail, error) {
	text, err := p.Read()
	if err != nil {
		return nil, err
	}
	meta, err := p.Meta()
	if err != nil {
		return nil, err
	}
	return &PageDetail{
		Fullname:  p.Fullname(),
		Book:      p.Book().Name(),
		Path:      p.Path(),
		Content:   text,
		Checksum:  meta.Checksum,
		UpdatedAt: meta.UpdatedAt,
	}, nil
}

func names(pages []*notebook.Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Fullname()
	}
	return out
}

func notMatched(sel Selector) error {
	return apperr.NotFound("page", strings.Join(sel.Names, " "))
}
