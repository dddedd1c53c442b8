// Package internal wires the notecli command tree to the notebook services.
package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/notecli/internal/notebook"
	"github.com/starford/notecli/internal/noteservice"
	"github.com/starford/notecli/internal/session"
	"github.com/starford/notecli/internal/settings"
	"github.com/starford/notecli/internal/ui"
)

// ConfigEnv names the environment variable that selects the override file.
const ConfigEnv = "NOTECLI_CONFIG"

// Run builds the command tree and executes args (args[0] is the program name).
func Run(ctx context.Context, args []string, opts ...Option) error {
	return NewCommand(opts...).Run(ctx, args)
}

// NewCommand returns the root notecli command.
func NewCommand(opts ...Option) *cli.Command {
	app := &application{
		version:  "dev",
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		prompter: ui.TermPrompter{},
	}
	for _, opt := range opts {
		opt(app)
	}

	return &cli.Command{
		Name:      "notecli",
		Usage:     "Keep plain-text notes organized in books and groups",
		Version:   app.version,
		Reader:    app.stdin,
		Writer:    app.stdout,
		ErrWriter: app.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to the override config file",
				DefaultText: "~/" + settings.DefaultFile,
				Sources:     cli.EnvVars(ConfigEnv),
			},
			&cli.StringFlag{
				Name:    "namespace",
				Aliases: []string{"n"},
				Usage:   "Book to resolve page names against for this run",
			},
			&cli.StringFlag{
				Name:  "editor",
				Usage: "Editor command overriding the configured one",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log debug output to stderr",
			},
		},
		Commands: app.commands(),
	}
}

// env is everything a command needs for one invocation.
type env struct {
	store  *settings.Store
	cfg    *settings.Config
	logger *slog.Logger
	svc    *noteservice.Service
	out    *ui.Printer
}

func (a *application) settingsStore(cmd *cli.Command) *settings.Store {
	var opts []settings.StoreOption
	if a.home != "" {
		opts = append(opts, settings.WithHome(a.home))
	}
	return settings.NewStore(cmd.String("config"), opts...)
}

// env loads the configuration and builds the service graph.
func (a *application) env(cmd *cli.Command) (*env, error) {
	store := a.settingsStore(cmd)
	cfg, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if ns := cmd.String("namespace"); ns != "" {
		if err := cfg.SetNamespace(ns); err != nil {
			return nil, err
		}
	}

	var level slog.Leveler = cfg.LogLevel
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := newLogger(a.stderr, level)
	logger.Debug("configuration loaded",
		slog.String("config", store.Path()),
		slog.String("store_path", cfg.StoreRoot()),
		slog.String("namespace", cfg.Namespace()),
	)

	launcher := a.launcher
	if launcher == nil {
		launcher = &session.ExecLauncher{Stdin: a.stdin, Stdout: a.stdout, Stderr: a.stderr}
	}
	sess := session.New(cfg,
		session.WithLauncher(launcher),
		session.WithLogger(logger),
		session.WithEditor(cmd.String("editor")),
	)
	svc := noteservice.NewService(notebook.New(cfg, logger), sess, logger)

	return &env{
		store:  store,
		cfg:    cfg,
		logger: logger,
		svc:    svc,
		out:    ui.NewPrinter(a.stdout),
	}, nil
}

// confirm asks before a destructive change unless --yes was given.
func (a *application) confirm(cmd *cli.Command, question string) (bool, error) {
	var p ui.Prompter = a.prompter
	if cmd.Bool("yes") {
		p = ui.AssumeYes{}
	}
	return p.Confirm(question)
}

// readText returns the joined arguments, or stdin when there are none.
func (a *application) readText(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " ") + "\n", nil
	}
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
