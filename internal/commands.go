package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notecli/internal/mcpserver"
	"github.com/starford/notecli/internal/models"
	"github.com/starford/notecli/internal/noteservice"
	"github.com/starford/notecli/internal/storage"
	"github.com/starford/notecli/internal/watcher"
)

// Flags hold parse state, so every command gets its own instance.

func globFlag() cli.Flag {
	return &cli.BoolFlag{Name: "glob", Aliases: []string{"g"}, Usage: "Treat names as shell glob patterns"}
}

func yesFlag() cli.Flag {
	return &cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"}
}

func forceFlag() cli.Flag {
	return &cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Overwrite an existing page"}
}

func (a *application) commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "open",
			Aliases:   []string{"o"},
			Usage:     "Edit pages, creating them when missing",
			ArgsUsage: "<page>...",
			Flags: []cli.Flag{
				globFlag(),
				&cli.StringFlag{Name: "group", Aliases: []string{"G"}, Usage: "Open every member of a group"},
				&cli.BoolFlag{Name: "each", Aliases: []string{"e"}, Usage: "Run the editor once per page"},
			},
			Action: a.open,
		},
		{
			Name:      "new",
			Usage:     "Create empty pages without opening them",
			ArgsUsage: "<page>...",
			Action:    a.create,
		},
		{
			Name:      "cat",
			Usage:     "Print a page",
			ArgsUsage: "<page>",
			Action:    a.cat,
		},
		{
			Name:      "append",
			Usage:     "Add a line at the end of a page (stdin when no text is given)",
			ArgsUsage: "<page> [text...]",
			Action:    a.appendText,
		},
		{
			Name:      "prepend",
			Usage:     "Add a line at the start of a page (stdin when no text is given)",
			ArgsUsage: "<page> [text...]",
			Action:    a.prependText,
		},
		{
			Name:      "mv",
			Usage:     "Rename a page",
			ArgsUsage: "<from> <to>",
			Flags:     []cli.Flag{forceFlag()},
			Action:    a.move,
		},
		{
			Name:      "rm",
			Usage:     "Delete pages",
			ArgsUsage: "<page>...",
			Flags:     []cli.Flag{globFlag(), yesFlag()},
			Action:    a.remove,
		},
		{
			Name:      "find",
			Aliases:   []string{"f"},
			Usage:     "List pages whose name contains a string, or matches a glob",
			ArgsUsage: "[text]",
			Flags:     []cli.Flag{globFlag()},
			Action:    a.find,
		},
		{
			Name:      "grep",
			Aliases:   []string{"g"},
			Usage:     "Search page contents with a regular expression",
			ArgsUsage: "<pattern>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "in", Aliases: []string{"b"}, Usage: "Only search this book"},
			},
			Action: a.grep,
		},
		{
			Name:      "group",
			Usage:     "Add pages to a group",
			ArgsUsage: "<group> <page>...",
			Flags:     []cli.Flag{globFlag()},
			Action:    a.group,
		},
		{
			Name:      "ungroup",
			Usage:     "Remove pages from a group, or delete the group when no page is given",
			ArgsUsage: "<group> [page...]",
			Flags:     []cli.Flag{yesFlag()},
			Action:    a.ungroup,
		},
		{
			Name:    "show",
			Aliases: []string{"s"},
			Usage:   "Show store contents",
			Commands: []*cli.Command{
				{
					Name:      "groups",
					Usage:     "Print groups and their pages as YAML",
					ArgsUsage: "[regexp]",
					Action:    a.showGroups,
				},
			},
		},
		{
			Name:  "book",
			Usage: "Manage books",
			Commands: []*cli.Command{
				{
					Name:   "ls",
					Usage:  "List books, or the pages of one book",
					Action: a.bookList,
					Flags: []cli.Flag{
						&cli.BoolFlag{Name: "recursive", Aliases: []string{"r"}, Usage: "Include nested books"},
					},
					ArgsUsage: "[book]",
				},
				{
					Name:      "mk",
					Usage:     "Create a book",
					ArgsUsage: "<book>",
					Action:    a.bookMake,
				},
				{
					Name:      "rm",
					Usage:     "Delete a book and all its pages",
					ArgsUsage: "<book>",
					Flags:     []cli.Flag{yesFlag()},
					Action:    a.bookRemove,
				},
				{
					Name:      "use",
					Usage:     "Make a book the default namespace",
					ArgsUsage: "[book]",
					Action:    a.bookUse,
				},
			},
		},
		{
			Name:  "history",
			Usage: "List recently opened pages, most recent first",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum entries (0 for all)"},
				&cli.BoolFlag{Name: "clear", Usage: "Forget every entry"},
			},
			Action: a.history,
		},
		{
			Name:  "config",
			Usage: "Read or change settings",
			Commands: []*cli.Command{
				{Name: "show", Usage: "Print the merged settings", Action: a.configShow},
				{Name: "get", Usage: "Print one setting", ArgsUsage: "<key>", Action: a.configGet},
				{Name: "set", Usage: "Change one setting", ArgsUsage: "<key> <value>", Action: a.configSet},
			},
		},
		{
			Name:      "import",
			Usage:     "Copy a file into a page (named after the file by default)",
			ArgsUsage: "<file> [page]",
			Flags:     []cli.Flag{forceFlag()},
			Action:    a.importFile,
		},
		{
			Name:      "watch",
			Usage:     "Print page changes as they happen",
			ArgsUsage: "[book]",
			Action:    a.watch,
		},
		{
			Name:   "mcp",
			Usage:  "Serve pages to MCP clients over stdio",
			Action: a.serveMCP,
		},
	}
}

func usageError(cmd *cli.Command, want string) error {
	return fmt.Errorf("usage: %s %s (%s)", cmd.Name, cmd.ArgsUsage, want)
}

func (a *application) open(ctx context.Context, cmd *cli.Command) error {
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	if group := cmd.String("group"); group != "" {
		_, err := e.svc.OpenGroup(ctx, group, cmd.Bool("each"))
		return err
	}
	if cmd.Args().Len() == 0 {
		return usageError(cmd, "at least one page")
	}
	_, err = e.svc.Open(ctx, noteservice.Selector{
		Names: cmd.Args().Slice(),
		Glob:  cmd.Bool("glob"),
		Each:  cmd.Bool("each"),
	})
	return err
}

func (a *application) create(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return usageError(cmd, "at least one page")
	}
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	for _, name := range cmd.Args().Slice() {
		if _, err := e.svc.Create(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (a *application) cat(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return usageError(cmd, "exactly one page")
	}
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	return e.svc.Export(ctx, cmd.Args().First(), e.out.Writer())
}

func (a *application) appendText(ctx context.Context, cmd *cli.Command) error {
	return a.addText(ctx, cmd, false)
}

func (a *application) prependText(ctx context.Context, cmd *cli.Command) error {
	return a.addText(ctx, cmd, true)
}

func (a *application) addText(ctx context.Context, cmd *cli.Command, prepend bool) error {
	if cmd.Args().Len() == 0 {
		return usageError(cmd, "a page")
	}
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	text, err := a.readText(cmd.Args().Tail())
	if err != nil {
		return err
	}
	if prepend {
		_, err = e.svc.Prepend(ctx, cmd.Args().First(), text)
	} else {
		_, err = e.svc.Append(ctx, cmd.Args().First(), text)
	}
	return err
}

func (a *application) move(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return usageError(cmd, "a source and a target")
	}
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	_, err = e.svc.Rename(ctx, cmd.Args().Get(0), cmd.Args().Get(1), cmd.Bool("force"))
	return err
}

func (a *application) remove(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return usageError(cmd, "at least one page")
	}
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	sel := noteservice.Selector{Names: cmd.Args().Slice(), Glob: cmd.Bool("glob")}
	names, err := e.svc.Resolve(ctx, sel)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		e.out.Notice("no matching pages")
		return nil
	}
	ok, err := a.confirm(cmd, fmt.Sprintf("Delete %d page(s)?", len(names)))
	if err != nil || !ok {
		return err
	}
	deleted, err := e.svc.Delete(ctx, noteservice.Selector{Names: names})
	for _, name := range deleted {
		e.out.Notice("deleted %s", name)
	}
	return err
}

func (a *application) find(ctx context.Context, cmd *cli.Command) error {
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	pattern := cmd.Args().First()
	glob := cmd.Bool("glob")
	if glob && pattern == "" {
		pattern = "*"
	}
	names, err := e.svc.Find(ctx, pattern, glob)
	if err != nil {
		return err
	}
	e.out.Lines(names)
	return nil
}

func (a *application) grep(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return usageError(cmd, "one pattern")
	}
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	hits, err := e.svc.Grep(ctx, cmd.Args().First(), cmd.String("in"))
	if err != nil {
		return err
	}
	e.out.Hits(hits)
	return nil
}

func (a *application) group(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 2 {
		return usageError(cmd, "a group and at least one page")
	}
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	group := cmd.Args().First()
	added, err := e.svc.Group(ctx, group, noteservice.Selector{Names: cmd.Args().Tail(), Glob: cmd.Bool("glob")})
	if err != nil {
		return err
	}
	e.logger.Info("pages grouped", slog.String("group", group), slog.Int("count", len(added)))
	return nil
}

func (a *application) ungroup(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return usageError(cmd, "a group")
	}
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	group := cmd.Args().First()
	pages := cmd.Args().Tail()
	if len(pages) == 0 {
		ok, err := a.confirm(cmd, fmt.Sprintf("Delete group %q? Pages are kept.", group))
		if err != nil || !ok {
			return err
		}
	}
	return e.svc.Ungroup(ctx, group, pages)
}

func (a *application) showGroups(ctx context.Context, cmd *cli.Command) error {
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	groups, err := e.svc.Groups(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		e.out.Notice("no groups")
		return nil
	}
	return e.out.YAML(groups)
}

func (a *application) bookList(ctx context.Context, cmd *cli.Command) error {
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	if cmd.Args().Len() == 0 && !cmd.Bool("recursive") {
		books, err := e.svc.Books(ctx)
		if err != nil {
			return err
		}
		e.out.Lines(books)
		return nil
	}
	items, err := e.svc.ListPages(ctx, cmd.Args().First(), "", cmd.Bool("recursive"))
	if err != nil {
		return err
	}
	e.out.Pages(items)
	return nil
}

func (a *application) bookMake(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return usageError(cmd, "one book")
	}
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	return e.svc.MakeBook(ctx, cmd.Args().First())
}

func (a *application) bookRemove(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return usageError(cmd, "one book")
	}
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	name := cmd.Args().First()
	if !e.svc.BookExists(ctx, name) {
		return e.svc.DeleteBook(ctx, name)
	}
	ok, err := a.confirm(cmd, fmt.Sprintf("Delete book %q and every page in it?", name))
	if err != nil || !ok {
		return err
	}
	return e.svc.DeleteBook(ctx, name)
}

// bookUse persists the namespace. It is resolved against the pages root, not
// against the current namespace.
func (a *application) bookUse(ctx context.Context, cmd *cli.Command) error {
	store := a.settingsStore(cmd)
	name := cmd.Args().First()
	if name != "" {
		cfg, err := store.Load()
		if err != nil {
			return err
		}
		dir, err := cfg.BookPath(name)
		if err != nil {
			return err
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("book %q: %w", name, errBookMissing)
		}
	}
	return store.Set("namespace", name)
}

var errBookMissing = errors.New("does not exist (create it with book mk)")

func (a *application) history(ctx context.Context, cmd *cli.Command) error {
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("clear") {
		if err := e.svc.ClearHistory(ctx); err != nil {
			return err
		}
		e.out.Notice("history cleared")
		return nil
	}
	names, err := e.svc.History(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	e.out.Lines(names)
	return nil
}

func (a *application) importFile(ctx context.Context, cmd *cli.Command) error {
	if n := cmd.Args().Len(); n < 1 || n > 2 {
		return usageError(cmd, "a file and an optional page")
	}
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	d, err := e.svc.Import(ctx, cmd.Args().Get(0), cmd.Args().Get(1), cmd.Bool("force"))
	if err != nil {
		return err
	}
	e.out.Notice("imported %s", d.Fullname)
	return nil
}

func (a *application) watch(ctx context.Context, cmd *cli.Command) error {
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	book, err := e.svc.Notebook().Book(cmd.Args().First())
	if err != nil {
		return err
	}
	store, err := storage.NewFS(book.Path())
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	gCtx, cancel := context.WithCancel(gCtx)
	defer cancel()

	g.Go(func() error {
		return watcher.Watch(gCtx, store, e.cfg.Reserved, e.logger, func(ev models.Event) {
			e.out.Notice("%s %s", ev.Kind, ev.Path)
		})
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			e.logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
		}
		cancel()
		return nil
	})

	return g.Wait()
}

func (a *application) serveMCP(ctx context.Context, cmd *cli.Command) error {
	e, err := a.env(cmd)
	if err != nil {
		return err
	}
	e.logger.Info("MCP server starting", slog.String("store_path", e.cfg.StoreRoot()))
	return mcpserver.New(e.svc, a.version).ServeStdio()
}
