package notebook

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"regexp"
	"sort"

	"github.com/starford/notecli/internal/apperr"
	"github.com/starford/notecli/internal/storage"
)

// Book is a directory of pages below the active namespace. The root book has
// an empty name. Its directory is created lazily by Assert or by writing a page.
type Book struct {
	nb   *Notebook
	fs   *storage.FS
	name string
	path string
}

// Book returns the book called name without creating it.
func (nb *Notebook) Book(name string) (*Book, error) {
	fsys, err := nb.pageFS()
	if err != nil {
		return nil, err
	}
	return nb.bookIn(fsys, name)
}

func (nb *Notebook) bookIn(fsys *storage.FS, name string) (*Book, error) {
	n, err := cleanName("book", name, true)
	if err != nil {
		return nil, err
	}
	abs, err := fsys.Abs(n)
	if err != nil {
		return nil, err
	}
	if nb.cfg.Reserved(abs) {
		return nil, fmt.Errorf("book name %q is reserved by the store: %w", name, apperr.ErrInvalidName)
	}
	return &Book{nb: nb, fs: fsys, name: n, path: abs}, nil
}

// CreateBook returns the book called name, creating its directory if needed.
func (nb *Notebook) CreateBook(name string) (*Book, error) {
	b, err := nb.Book(name)
	if err != nil {
		return nil, err
	}
	return b, b.Assert()
}

// BookExists reports whether name is a directory below the active namespace.
func (nb *Notebook) BookExists(name string) bool {
	b, err := nb.Book(name)
	if err != nil {
		return false
	}
	return b.Exists()
}

// Books returns the names of all books below the active namespace, nested
// ones included, sorted. The store's internal directories are skipped.
func (nb *Notebook) Books() ([]string, error) {
	fsys, err := nb.pageFS()
	if err != nil {
		return nil, err
	}
	var out []string
	var visit func(dir string) error
	visit = func(dir string) error {
		entries, err := fsys.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			rel := path.Join(dir, e.Name())
			abs, err := fsys.Abs(rel)
			if err != nil {
				return err
			}
			if nb.cfg.Reserved(abs) {
				continue
			}
			out = append(out, rel)
			if err := visit(rel); err != nil {
				return err
			}
		}
		return nil
	}
	if _, err := os.Stat(fsys.Root()); errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err := visit(""); err != nil {
		return nil, fmt.Errorf("notebook: list books: %w", err)
	}
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (b *Book) Name() string { return b.name }
func (b *Book) Path() string { return b.path }

// Exists reports whether the book directory exists.
func (b *Book) Exists() bool {
	info, err := os.Stat(b.path)
	return err == nil && info.IsDir()
}

// Assert creates the book directory and its parents if they are missing.
func (b *Book) Assert() error {
	if err := b.fs.Mkdir(b.name); err != nil {
		return fmt.Errorf("notebook: create book %q: %w", b.name, err)
	}
	return nil
}

// PathTo returns the absolute path of the page called name in this book.
func (b *Book) PathTo(name string) string {
	return b.path + string(os.PathSeparator) + name
}

// PathMatch returns the book-relative glob used to match pattern against
// direct children. An empty pattern matches everything.
func (b *Book) PathMatch(pattern string) string {
	if pattern == "" {
		pattern = "*"
	}
	return path.Join(b.name, pattern)
}

// List returns the absolute paths of the regular files directly inside the
// book whose name matches the glob pattern, sorted.
func (b *Book) List(pattern string) ([]string, error) {
	pages, err := b.ListPages(pattern)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.path
	}
	return out, nil
}

// ListNames is List reduced to bare page names.
func (b *Book) ListNames(pattern string) ([]string, error) {
	pages, err := b.ListPages(pattern)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.name
	}
	return out, nil
}

// ListPages is List with every match wrapped as a Page.
func (b *Book) ListPages(pattern string) ([]*Page, error) {
	matches, err := b.fs.Glob(b.PathMatch(pattern))
	if err != nil {
		return nil, fmt.Errorf("notebook: list book %q: %w", b.name, err)
	}
	return b.nb.pagesFrom(b.fs, matches)
}

// Walk returns every page of the book and of its nested books.
func (b *Book) Walk() ([]*Page, error) {
	return b.nb.walk(b.fs, b.name)
}

// Search greps the pages directly inside the book.
func (b *Book) Search(re *regexp.Regexp) ([]Hit, error) {
	pages, err := b.ListPages("")
	if err != nil {
		return nil, err
	}
	return Search(pages, re)
}

// SearchAll greps the pages of the book and of its nested books.
func (b *Book) SearchAll(re *regexp.Regexp) ([]Hit, error) {
	pages, err := b.Walk()
	if err != nil {
		return nil, err
	}
	return Search(pages, re)
}

// Delete removes the book directory and everything below it. The root book
// cannot be deleted.
func (b *Book) Delete() error {
	if !b.Exists() {
		return apperr.NotFound("book", b.name)
	}
	if b.name == "" {
		return fmt.Errorf("notebook: delete root book: %w", apperr.ErrInvalidName)
	}
	if err := b.fs.RemoveAll(b.name); err != nil {
		return fmt.Errorf("notebook: delete book %q: %w", b.name, err)
	}
	b.nb.logger.Debug("book deleted", slog.String("book", b.name))
	return nil
}

