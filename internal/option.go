package internal

import (
	"io"

	"github.com/starford/notecli/internal/session"
	"github.com/starford/notecli/internal/ui"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	version  string
	home     string
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	launcher session.Launcher
	prompter ui.Prompter
}

// WithVersion sets the version reported by --version and the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithHome sets the directory that ~ expands to.
func WithHome(dir string) Option {
	return func(a *application) {
		a.home = dir
	}
}

// WithIO replaces the standard streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(a *application) {
		a.stdin = stdin
		a.stdout = stdout
		a.stderr = stderr
	}
}

// WithLauncher replaces the editor launcher.
func WithLauncher(l session.Launcher) Option {
	return func(a *application) {
		a.launcher = l
	}
}

// WithPrompter replaces the confirmation prompt.
func WithPrompter(p ui.Prompter) Option {
	return func(a *application) {
		a.prompter = p
	}
}
