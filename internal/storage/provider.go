// Package storage defines the rooted file-system abstraction used by pages,
// books and groups.
package storage

import (
	"io/fs"

	"github.com/starford/notecli/internal/models"
)

// Provider is the interface for file operations relative to a root directory.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// Abs resolves rel against the root, rejecting paths that escape it.
	Abs(rel string) (string, error)
	// List returns metadata for every regular file under dir.
	List(dir string) ([]models.PageMeta, error)
	// Glob returns the regular files under the root matching pattern, sorted.
	Glob(pattern string) ([]string, error)
	// ReadDir returns the entries of dir sorted by name.
	ReadDir(dir string) ([]fs.DirEntry, error)
	// Stat follows symlinks.
	Stat(path string) (fs.FileInfo, error)
	// Touch creates an empty file (and its parents) if path does not exist.
	Touch(path string) error
	// Mkdir creates dir and its parents.
	Mkdir(dir string) error
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the content of path.
	Write(path string, content []byte) error
	// Append adds content at the end of path.
	Append(path string, content []byte) error
	// Prepend rewrites path as content followed by the previous content.
	Prepend(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// RemoveAll removes dir and everything below it.
	RemoveAll(dir string) error
	// Move renames oldPath to newPath, creating the target parent.
	Move(oldPath, newPath string) error
	// Symlink creates (or replaces) a link at path pointing to target.
	Symlink(target, path string) error
}
