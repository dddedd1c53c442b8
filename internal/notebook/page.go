package notebook

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/notecli/internal/apperr"
	"github.com/starford/notecli/internal/models"
	"github.com/starford/notecli/internal/storage"
)

// Page is a single note file. Its path is always root/fullname where root is
// the namespace directory active when the page was built.
type Page struct {
	nb       *Notebook
	fs       *storage.FS
	name     string
	fullname string
	path     string
}

// CreatePage returns the page for fullname, creating its book directory and an
// empty file when they are missing. Existing content is kept.
func (nb *Notebook) CreatePage(fullname string) (*Page, error) {
	p, err := nb.PageRef(fullname)
	if err != nil {
		return nil, err
	}
	if err := p.fs.Touch(p.fullname); err != nil {
		return nil, fmt.Errorf("notebook: create page: %w", err)
	}
	return p, nil
}

// PageRef returns the page for fullname without touching the disk.
func (nb *Notebook) PageRef(fullname string) (*Page, error) {
	fsys, err := nb.pageFS()
	if err != nil {
		return nil, err
	}
	return nb.pageIn(fsys, fullname)
}

func (nb *Notebook) pageIn(fsys *storage.FS, fullname string) (*Page, error) {
	full, err := cleanName("page", fullname, false)
	if err != nil {
		return nil, err
	}
	abs, err := fsys.Abs(full)
	if err != nil {
		return nil, err
	}
	if nb.cfg.Reserved(abs) {
		return nil, fmt.Errorf("page name %q is reserved by the store: %w", fullname, apperr.ErrInvalidName)
	}
	_, name := SplitFullname(full)
	return &Page{nb: nb, fs: fsys, name: name, fullname: full, path: abs}, nil
}

// PageAt builds a page for an absolute file path. Paths inside the active
// namespace get a fullname relative to it; other paths below the pages root
// are addressed from there.
func (nb *Notebook) PageAt(abs string) (*Page, error) {
	for _, get := range []func() (*storage.FS, error){nb.pageFS, nb.baseFS} {
		fsys, err := get()
		if err != nil {
			return nil, err
		}
		if rel, err := fsys.Rel(abs); err == nil {
			return nb.pageIn(fsys, rel)
		}
	}
	fsys, err := storage.NewFS(filepath.Dir(abs))
	if err != nil {
		return nil, err
	}
	return nb.pageIn(fsys, filepath.Base(abs))
}

// PageExists reports whether fullname is a regular file in the active namespace.
func (nb *Notebook) PageExists(fullname string) bool {
	p, err := nb.PageRef(fullname)
	if err != nil {
		return false
	}
	return p.Exists()
}

// FindPages expands a shell glob rooted at the active namespace and returns one
// page per matching regular file, sorted by fullname.
func (nb *Notebook) FindPages(pattern string) ([]*Page, error) {
	fsys, err := nb.pageFS()
	if err != nil {
		return nil, err
	}
	pattern, err = cleanName("pattern", pattern, false)
	if err != nil {
		return nil, err
	}
	matches, err := fsys.Glob(pattern)
	if err != nil {
		return nil, err
	}
	return nb.pagesFrom(fsys, matches)
}

// AllPages returns every page below the active namespace, sorted by fullname.
func (nb *Notebook) AllPages() ([]*Page, error) {
	fsys, err := nb.pageFS()
	if err != nil {
		return nil, err
	}
	return nb.walk(fsys, "")
}

// FilterPages returns the pages of the active namespace whose fullname
// contains substr literally. An empty substr matches everything.
func (nb *Notebook) FilterPages(substr string) ([]*Page, error) {
	all, err := nb.AllPages()
	if err != nil {
		return nil, err
	}
	out := make([]*Page, 0, len(all))
	for _, p := range all {
		if strings.Contains(p.fullname, substr) {
			out = append(out, p)
		}
	}
	return out, nil
}

// BookAndPage returns the book owning fullname together with the page itself.
func (nb *Notebook) BookAndPage(fullname string) (*Book, *Page, error) {
	p, err := nb.PageRef(fullname)
	if err != nil {
		return nil, nil, err
	}
	return p.Book(), p, nil
}

func (nb *Notebook) walk(fsys *storage.FS, dir string) ([]*Page, error) {
	metas, err := fsys.List(dir)
	if err != nil {
		return nil, err
	}
	rels := make([]string, 0, len(metas))
	for _, m := range metas {
		rels = append(rels, m.Path)
	}
	return nb.pagesFrom(fsys, rels)
}

// pagesFrom wraps relative paths as pages, skipping the store's internal files.
func (nb *Notebook) pagesFrom(fsys *storage.FS, rels []string) ([]*Page, error) {
	out := make([]*Page, 0, len(rels))
	for _, rel := range rels {
		if abs, err := fsys.Abs(rel); err == nil && nb.cfg.Reserved(abs) {
			continue
		}
		p, err := nb.pageIn(fsys, rel)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (p *Page) Name() string     { return p.name }
func (p *Page) Fullname() string { return p.fullname }
func (p *Page) Path() string     { return p.path }

// Book returns the book that owns the page.
func (p *Page) Book() *Book {
	bookName, _ := SplitFullname(p.fullname)
	b, _ := p.nb.bookIn(p.fs, bookName)
	return b
}

func (p *Page) String() string { return p.fullname }

// Exists reports whether the page is backed by a regular file.
func (p *Page) Exists() bool {
	info, err := os.Stat(p.path)
	return err == nil && info.Mode().IsRegular()
}

// Read returns the whole content of the page.
func (p *Page) Read() (string, error) {
	data, err := p.fs.Read(p.fullname)
	if err != nil {
		return "", p.wrap("read", err)
	}
	return string(data), nil
}

// Write replaces the content of the page.
func (p *Page) Write(text string) error {
	return p.wrap("write", p.fs.Write(p.fullname, []byte(text)))
}

// Append adds text at the end of the page. No separator is inserted.
func (p *Page) Append(text string) error {
	if err := p.fs.Touch(p.fullname); err != nil {
		return p.wrap("append", err)
	}
	return p.wrap("append", p.fs.Append(p.fullname, []byte(text)))
}

// Prepend rewrites the page as text followed by its previous content.
func (p *Page) Prepend(text string) error {
	if err := p.fs.Touch(p.fullname); err != nil {
		return p.wrap("prepend", err)
	}
	return p.wrap("prepend", p.fs.Prepend(p.fullname, []byte(text)))
}

// Blank reports whether the page holds only whitespace.
func (p *Page) Blank() (bool, error) {
	text, err := p.Read()
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(text) == "", nil
}

// Meta returns size, checksum and modification time of the page.
func (p *Page) Meta() (models.PageMeta, error) {
	metas, err := p.fs.List(p.fullname)
	if err != nil {
		return models.PageMeta{}, p.wrap("stat", err)
	}
	if len(metas) != 1 {
		return models.PageMeta{}, apperr.NotFound("page", p.fullname)
	}
	return metas[0], nil
}

// Rename moves the page to newFullname within the same root and updates its
// name, fullname and path. An existing file at the target is replaced. Group
// links to the old path are left dangling.
func (p *Page) Rename(newFullname string) error {
	if !p.Exists() {
		return apperr.NotFound("page", p.fullname)
	}
	next, err := p.nb.pageIn(p.fs, newFullname)
	if err != nil {
		return err
	}
	if next.path == p.path {
		return nil
	}
	if err := p.fs.Move(p.fullname, next.fullname); err != nil {
		return p.wrap("rename", err)
	}
	p.nb.logger.Debug("page renamed",
		slog.String("from", p.fullname),
		slog.String("to", next.fullname),
	)
	p.name, p.fullname, p.path = next.name, next.fullname, next.path
	return nil
}

// Delete removes the page file.
func (p *Page) Delete() error {
	if !p.Exists() {
		return apperr.NotFound("page", p.fullname)
	}
	if err := p.fs.Delete(p.fullname); err != nil {
		return p.wrap("delete", err)
	}
	p.nb.logger.Debug("page deleted", slog.String("page", p.fullname))
	return nil
}

// Symlink creates a link at the absolute targetPath pointing to the page,
// replacing whatever was there.
func (p *Page) Symlink(targetPath string) error {
	dir, err := storage.NewFS(filepath.Dir(targetPath))
	if err != nil {
		return err
	}
	return p.wrap("symlink", dir.Symlink(p.path, filepath.Base(targetPath)))
}

// wrap turns a missing file into ErrNotFound and prefixes the operation.
func (p *Page) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("notebook: %s: %w: %w", op, apperr.NotFound("page", p.fullname), err)
	}
	return fmt.Errorf("notebook: %s page %q: %w", op, p.fullname, err)
}
