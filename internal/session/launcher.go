package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/starford/notecli/internal/apperr"
)

// Launcher runs the editor on a set of files and blocks until it exits.
type Launcher interface {
	Launch(ctx context.Context, editor string, paths []string) error
}

// ExecLauncher starts the editor as a child process attached to the terminal.
// The editor setting is split on whitespace so that "code --wait" works.
type ExecLauncher struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecLauncher returns a launcher wired to the process's standard streams.
func NewExecLauncher() *ExecLauncher {
	return &ExecLauncher{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Launch runs the editor. Its exit status is ignored; only a failure to start
// it is reported, as ErrExternalProcess.
func (l *ExecLauncher) Launch(ctx context.Context, editor string, paths []string) error {
	fields := strings.Fields(editor)
	if len(fields) == 0 {
		return fmt.Errorf("session: no editor configured: %w", apperr.ErrExternalProcess)
	}
	args := append(fields[1:len(fields):len(fields)], paths...)
	cmd := exec.CommandContext(ctx, fields[0], args...)
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if err == nil || errors.As(err, &exitErr) {
		return nil
	}
	return fmt.Errorf("session: launch %s: %w: %w", fields[0], apperr.ErrExternalProcess, err)
}
