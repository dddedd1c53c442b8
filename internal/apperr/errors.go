// Package apperr holds the error kinds shared by every notecli component.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrIO              = errors.New("i/o error")
	ErrConfigParse     = errors.New("invalid config file")
	ErrExternalProcess = errors.New("external process failed")
	ErrInvalidName     = errors.New("invalid name")
)

// IO wraps an OS-level failure so that callers can match both ErrIO and the
// underlying cause (for example fs.ErrPermission).
func IO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s %s: %w: %w", op, path, ErrIO, err)
}

// NotFound reports a missing entity of the given kind.
func NotFound(kind, name string) error {
	return fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
}
