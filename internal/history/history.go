// Package history keeps the bounded list of recently opened pages.
package history

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/starford/notecli/internal/apperr"
)

// Log is a newline-delimited file of page fullnames, oldest first.
type Log struct {
	path string
	size int
}

// New returns a log stored at path that keeps at most size entries.
func New(path string, size int) *Log {
	if size < 1 {
		size = 1
	}
	return &Log{path: path, size: size}
}

// Path returns the location of the log file.
func (l *Log) Path() string { return l.path }

// List returns the entries, oldest first. A missing file is an empty log.
func (l *Log) List() ([]string, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, apperr.IO("read history", l.path, err)
	}
	out := []string{}
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

// Add appends fullnames and drops the oldest entries beyond the cap, then
// rewrites the whole file.
func (l *Log) Add(fullnames ...string) error {
	if len(fullnames) == 0 {
		return nil
	}
	entries, err := l.List()
	if err != nil {
		return err
	}
	entries = append(entries, fullnames...)
	if over := len(entries) - l.size; over > 0 {
		entries = entries[over:]
	}

	var buf bytes.Buffer
	for _, e := range entries {
		buf.WriteString(e)
		buf.WriteByte('\n')
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return apperr.IO("mkdir", filepath.Dir(l.path), err)
	}
	if err := atomic.WriteFile(l.path, &buf); err != nil {
		return apperr.IO("write history", l.path, err)
	}
	return nil
}

// Recent returns up to n entries, most recent first.
func (l *Log) Recent(n int) ([]string, error) {
	entries, err := l.List()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, min(n, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// Clear removes the log file.
func (l *Log) Clear() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("history: clear: %w", apperr.IO("remove", l.path, err))
	}
	return nil
}
