package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/starford/notecli/internal/apperr"
	"github.com/starford/notecli/internal/checksum"
	"github.com/starford/notecli/internal/models"
)

var _ Provider = (*FS)(nil)

// FS implements Provider backed by the local file system. The root directory
// is created lazily by the first operation that writes below it.
type FS struct {
	root string // absolute path
}

// NewFS creates a new FS provider rooted at the given directory. The
// directory does not need to exist yet, but if it does it must be a directory.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, apperr.IO("stat", abs, err)
	case !info.IsDir():
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute root directory.
func (f *FS) Root() string { return f.root }

// Abs resolves a relative path against the root and rejects any result that
// escapes it (directory traversal).
func (f *FS) Abs(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s: %w", rel, apperr.ErrInvalidName)
	}
	joined := filepath.Join(f.root, cleaned)
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(joined, f.root+string(os.PathSeparator)) && joined != f.root {
		return "", fmt.Errorf("storage: path escapes root: %s: %w", rel, apperr.ErrInvalidName)
	}
	return joined, nil
}

// Rel converts an absolute path below the root to a slash-separated relative one.
func (f *FS) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(f.root, abs)
	if err != nil {
		return "", fmt.Errorf("storage: rel: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: %s is outside %s: %w", abs, f.root, apperr.ErrInvalidName)
	}
	return filepath.ToSlash(rel), nil
}

// List walks dir (relative to root) and returns metadata for every regular
// file. A missing dir yields an empty list.
func (f *FS) List(dir string) ([]models.PageMeta, error) {
	base, err := f.Abs(dir)
	if err != nil {
		return nil, err
	}
	var out []models.PageMeta
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == base && errors.Is(walkErr, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, models.PageMeta{
			Path:      filepath.ToSlash(rel),
			Checksum:  checksum.Sum(data),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, apperr.IO("list", base, err)
	}
	return out, nil
}

// Glob expands a shell pattern (*, ?, [...]) under the root and returns the
// matching regular files (symlinks are followed) as sorted relative paths.
func (f *FS) Glob(pattern string) ([]string, error) {
	abs, err := f.Abs(pattern)
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: glob %q: %w: %w", pattern, apperr.ErrInvalidName, err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		rel, err := f.Rel(m)
		if err != nil {
			continue
		}
		out = append(out, rel)
	}
	sort.Strings(out)
	return out, nil
}

// ReadDir returns the entries of dir sorted by name.
func (f *FS) ReadDir(dir string) ([]fs.DirEntry, error) {
	abs, err := f.Abs(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, apperr.IO("readdir", abs, err)
	}
	return entries, nil
}

// Stat returns file info for path, following symlinks.
func (f *FS) Stat(path string) (fs.FileInfo, error) {
	abs, err := f.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, apperr.IO("stat", abs, err)
	}
	return info, nil
}

// Touch creates an empty file if path does not exist yet. Existing content is
// left alone.
func (f *FS) Touch(path string) error {
	abs, err := f.Abs(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return apperr.IO("mkdir", filepath.Dir(abs), err)
	}
	fh, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return apperr.IO("touch", abs, err)
	}
	return apperr.IO("close", abs, fh.Close())
}

// Mkdir creates dir (relative to root) and all parents.
func (f *FS) Mkdir(dir string) error {
	abs, err := f.Abs(dir)
	if err != nil {
		return err
	}
	return apperr.IO("mkdir", abs, os.MkdirAll(abs, 0o755))
}

// Read returns the raw bytes of a file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, apperr.IO("read", abs, err)
	}
	return data, nil
}

// Write atomically replaces the content of path: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.IO("mkdir", dir, err)
	}
	if err := atomic.WriteFile(abs, bytes.NewReader(content)); err != nil {
		return apperr.IO("write", abs, err)
	}
	return nil
}

// Append writes content at the end of path.
func (f *FS) Append(path string, content []byte) error {
	abs, err := f.Abs(path)
	if err != nil {
		return err
	}
	fh, err := os.OpenFile(abs, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return apperr.IO("append", abs, err)
	}
	if _, err := fh.Write(content); err != nil {
		_ = fh.Close()
		return apperr.IO("append", abs, err)
	}
	return apperr.IO("close", abs, fh.Close())
}

// Prepend buffers the existing content and rewrites path as content followed
// by it.
func (f *FS) Prepend(path string, content []byte) error {
	old, err := f.Read(path)
	if err != nil {
		return err
	}
	buf := make([]byte, 0, len(content)+len(old))
	buf = append(buf, content...)
	buf = append(buf, old...)
	return f.Write(path, buf)
}

// Delete removes a file (or symlink).
func (f *FS) Delete(path string) error {
	abs, err := f.Abs(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return apperr.IO("delete", abs, err)
	}
	return nil
}

// RemoveAll removes dir and its whole subtree. Removing the root itself is refused.
func (f *FS) RemoveAll(dir string) error {
	abs, err := f.Abs(dir)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("storage: refusing to remove root %s: %w", abs, apperr.ErrInvalidName)
	}
	return apperr.IO("remove", abs, os.RemoveAll(abs))
}

// Move renames a file or directory within the root.
func (f *FS) Move(oldPath, newPath string) error {
	absOld, err := f.Abs(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.Abs(newPath)
	if err != nil {
		return err
	}
	dir := filepath.Dir(absNew)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.IO("mkdir", dir, err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return apperr.IO("move", absOld, err)
	}
	return nil
}

// Symlink creates a symbolic link at path pointing to target, replacing any
// file or link already there.
func (f *FS) Symlink(target, path string) error {
	abs, err := f.Abs(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return apperr.IO("mkdir", filepath.Dir(abs), err)
	}
	if _, err := os.Lstat(abs); err == nil {
		if err := os.Remove(abs); err != nil {
			return apperr.IO("unlink", abs, err)
		}
	}
	if err := os.Symlink(target, abs); err != nil {
		return apperr.IO("symlink", abs, err)
	}
	return nil
}
