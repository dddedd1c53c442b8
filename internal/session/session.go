// Package session opens pages in an external editor through temporary links.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/notecli/internal/apperr"
	"github.com/starford/notecli/internal/history"
	"github.com/starford/notecli/internal/notebook"
	"github.com/starford/notecli/internal/settings"
)

// Session materializes pages as <temp>/<name>.<ext> links, runs the editor on
// them, then removes the links, records the pages in history and deletes the
// ones left blank.
type Session struct {
	tempDir  string
	editor   string
	ext      string
	history  *history.Log
	launcher Launcher
	logger   *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLauncher replaces the process launcher.
func WithLauncher(l Launcher) Option {
	return func(s *Session) { s.launcher = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithEditor overrides the configured editor command.
func WithEditor(editor string) Option {
	return func(s *Session) {
		if editor != "" {
			s.editor = editor
		}
	}
}

// New returns a session using the temp directory, editor, extension and
// history settings of cfg.
func New(cfg *settings.Config, opts ...Option) *Session {
	s := &Session{
		tempDir:  cfg.Root(settings.KindTemp),
		editor:   cfg.Editor,
		ext:      cfg.Ext,
		history:  history.New(cfg.Root(settings.KindHistory), cfg.HistorySize),
		launcher: NewExecLauncher(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// History returns the log the session records opened pages in.
func (s *Session) History() *history.Log { return s.history }

// Open edits all pages with a single editor invocation.
func (s *Session) Open(ctx context.Context, pages ...*notebook.Page) error {
	if len(pages) == 0 {
		return nil
	}
	links := make([]string, 0, len(pages))
	defer func() { s.cleanup(links) }()

	used := make(map[string]int, len(pages))
	for _, p := range pages {
		link := s.tempPath(p.Name(), used)
		if err := p.Symlink(link); err != nil {
			return fmt.Errorf("session: link %s: %w", p.Fullname(), err)
		}
		links = append(links, link)
	}

	s.logger.Debug("launching editor",
		slog.String("editor", s.editor),
		slog.Int("files", len(links)),
	)
	if err := s.launcher.Launch(ctx, s.editor, links); err != nil {
		return err
	}
	s.cleanup(links)
	links = links[:0]

	names := make([]string, len(pages))
	for i, p := range pages {
		names[i] = p.Fullname()
	}
	if err := s.history.Add(names...); err != nil {
		return fmt.Errorf("session: record history: %w", err)
	}
	return s.dropBlank(pages)
}

// OpenEach edits the pages one after another, one editor run per page.
func (s *Session) OpenEach(ctx context.Context, pages ...*notebook.Page) error {
	for _, p := range pages {
		if err := s.Open(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// tempPath returns the link location for a page name. Repeated names within
// one run get a numeric suffix.
func (s *Session) tempPath(name string, used map[string]int) string {
	n := used[name]
	used[name] = n + 1
	if n > 0 {
		name = fmt.Sprintf("%s-%d", name, n+1)
	}
	return filepath.Join(s.tempDir, name+"."+s.ext)
}

// cleanup removes temp links; failures are only logged.
func (s *Session) cleanup(links []string) {
	for _, link := range links {
		if err := os.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to remove temp link",
				slog.String("path", link),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *Session) dropBlank(pages []*notebook.Page) error {
	var errs []error
	for _, p := range pages {
		blank, err := p.Blank()
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !blank {
			continue
		}
		if err := p.Delete(); err != nil {
			errs = append(errs, err)
			continue
		}
		s.logger.Info("removed empty page", slog.String("page", p.Fullname()))
	}
	return errors.Join(errs...)
}
