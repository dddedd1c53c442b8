// Package notebook maps page, book and group names onto the storage layout
// and implements their file lifecycle.
//
// Layout, relative to the configured roots:
//
//	<pages>/<namespace>/<book>/<page>   page files
//	<groups>/<group>/<page name>        symlinks to page files
//
// Name matching follows two rules: page and book selection by name uses shell
// globs (FindPages, Book.List) or a literal substring (FilterPages), while
// content search (Search, Book.Search) uses regular expressions.
package notebook

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/notecli/internal/apperr"
	"github.com/starford/notecli/internal/settings"
	"github.com/starford/notecli/internal/storage"
)

// Notebook resolves names against one configuration. Entities capture the
// namespace that was active when they were built.
type Notebook struct {
	cfg    *settings.Config
	logger *slog.Logger
}

// New returns a Notebook bound to cfg. A nil logger discards output.
func New(cfg *settings.Config, logger *slog.Logger) *Notebook {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Notebook{cfg: cfg, logger: logger}
}

// Config returns the configuration the notebook resolves against.
func (nb *Notebook) Config() *settings.Config { return nb.cfg }

// pageFS returns a provider rooted at the active namespace.
func (nb *Notebook) pageFS() (*storage.FS, error) {
	return storage.NewFS(nb.cfg.Root(settings.KindPage))
}

// baseFS returns a provider rooted at the pages root, ignoring the namespace.
func (nb *Notebook) baseFS() (*storage.FS, error) {
	base, err := nb.cfg.WithNamespace("")
	if err != nil {
		return nil, err
	}
	return storage.NewFS(base.Root(settings.KindPage))
}

func (nb *Notebook) groupFS() (*storage.FS, error) {
	return storage.NewFS(nb.cfg.Root(settings.KindGroup))
}

// SplitFullname splits a fullname on its last slash into the book name and the
// bare page name. Names without a slash belong to the root book ("").
func SplitFullname(fullname string) (book, name string) {
	i := strings.LastIndex(fullname, "/")
	if i < 0 {
		return "", fullname
	}
	return fullname[:i], fullname[i+1:]
}

// cleanName normalizes a slash-delimited name. allowEmpty permits the root
// book. Names that are absolute or climb out of the root are rejected.
func cleanName(kind, name string, allowEmpty bool) (string, error) {
	n := strings.Trim(filepath.ToSlash(name), "/")
	if n == "" {
		if allowEmpty {
			return "", nil
		}
		return "", fmt.Errorf("%s name is empty: %w", kind, apperr.ErrInvalidName)
	}
	n = path.Clean(n)
	if n == "." && allowEmpty {
		return "", nil
	}
	if n == "." || n == ".." || strings.HasPrefix(n, "../") {
		return "", fmt.Errorf("%s name %q: %w", kind, name, apperr.ErrInvalidName)
	}
	return n, nil
}
