package internal

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/starford/notecli/internal/ui"
)

func (a *application) configShow(_ context.Context, cmd *cli.Command) error {
	st, err := a.settingsStore(cmd).LoadSettings()
	if err != nil {
		return err
	}
	return ui.NewPrinter(a.stdout).YAML(st)
}

func (a *application) configGet(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return usageError(cmd, "one key")
	}
	v, err := a.settingsStore(cmd).Get(cmd.Args().First())
	if err != nil {
		return err
	}
	if v != nil {
		fmt.Fprintln(a.stdout, v)
	}
	return nil
}

func (a *application) configSet(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return usageError(cmd, "a key and a value")
	}
	return a.settingsStore(cmd).Set(cmd.Args().Get(0), cmd.Args().Get(1))
}
