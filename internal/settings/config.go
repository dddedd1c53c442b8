package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/notecli/internal/apperr"
)

// Config is the settings of one process invocation with every path resolved
// to an absolute location. It is built once and passed explicitly to the
// entities; SetNamespace only affects this value and is never persisted.
type Config struct {
	Settings

	store     string
	pages     string
	groups    string
	temp      string
	history   string
	namespace string
	reserved  []string
}

// Resolve expands ~ with home and turns every configured path into an
// absolute one. Relative derived paths are resolved against store_path.
func Resolve(s Settings, home string) (*Config, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	store, err := filepath.Abs(expandHome(s.StorePath, home))
	if err != nil {
		return nil, fmt.Errorf("settings: resolve store_path: %w", err)
	}
	under := func(p, def string) string {
		if p == "" {
			p = def
		}
		p = expandHome(p, home)
		if !filepath.IsAbs(p) {
			p = filepath.Join(store, p)
		}
		return filepath.Clean(p)
	}

	c := &Config{
		Settings: s,
		store:    store,
		pages:    under(s.pagesPath(), ""),
		groups:   under(s.groupsPath(), "groups"),
		temp:     under(s.TempPath, "temp"),
		history:  under(s.HistoryPath, "history"),
	}
	c.reserved = []string{c.groups, c.temp, c.history}
	if err := c.SetNamespace(s.Namespace); err != nil {
		return nil, err
	}
	return c, nil
}

func expandHome(p, home string) string {
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}

// StoreRoot returns the absolute store_path.
func (c *Config) StoreRoot() string { return c.store }

// Namespace returns the active book, without slashes. Empty means the root book.
func (c *Config) Namespace() string { return c.namespace }

// SetNamespace changes the active book for entities built against c. Names
// that leave the pages root or point into a reserved directory are rejected
// and leave c unchanged.
func (c *Config) SetNamespace(name string) error {
	ns := strings.Trim(filepath.ToSlash(name), "/")
	if err := relativeName(ns); err != nil {
		return fmt.Errorf("settings: namespace %q: %w: %w", name, apperr.ErrInvalidName, err)
	}
	if ns != "" && c.Reserved(filepath.Join(c.pages, filepath.FromSlash(ns))) {
		return fmt.Errorf("settings: namespace %q is reserved by the store: %w", name, apperr.ErrInvalidName)
	}
	c.namespace = ns
	c.Settings.Namespace = ns
	return nil
}

// WithNamespace returns a copy of c with a different active book.
func (c *Config) WithNamespace(name string) (*Config, error) {
	cp := *c
	cp.reserved = append([]string(nil), c.reserved...)
	if err := cp.SetNamespace(name); err != nil {
		return nil, err
	}
	return &cp, nil
}

// BookPath returns pages_root/name for a book name addressed from the pages
// root, rejecting names that escape it or land on a reserved path.
func (c *Config) BookPath(name string) (string, error) {
	base, err := c.WithNamespace(name)
	if err != nil {
		return "", err
	}
	return base.NamespacePath(""), nil
}

// NamespacePath returns pages_root/namespace/rel as a cleaned absolute path.
func (c *Config) NamespacePath(rel string) string {
	return filepath.Join(c.pages, filepath.FromSlash(c.namespace), filepath.FromSlash(rel))
}

// Root returns the directory (or, for KindHistory, the file) that holds
// entities of kind k. Pages and books share the namespace root.
func (c *Config) Root(k Kind) string {
	switch k {
	case KindGroup:
		return c.groups
	case KindTemp:
		return c.temp
	case KindHistory:
		return c.history
	case KindPage, KindBook:
		return c.NamespacePath("")
	default:
		return c.NamespacePath("")
	}
}

// Reserve marks path as internal so that page listings skip it.
func (c *Config) Reserve(path string) {
	if path != "" {
		c.reserved = append(c.reserved, filepath.Clean(path))
	}
}

// Reserved reports whether path is one of the store's internal files or lies
// inside one of its internal directories (groups, temp).
func (c *Config) Reserved(path string) bool {
	path = filepath.Clean(path)
	for _, r := range c.reserved {
		if path == r || strings.HasPrefix(path, r+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}
