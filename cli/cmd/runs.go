package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/bggsnap/bggsnap/cli/render"
	"github.com/bggsnap/bggsnap/ledger"
)

// RunsCommand returns the runs command with subcommands. Both read from the
// run history and execute nothing.
func RunsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Inspect recorded runs",
		Subcommands: []*cli.Command{
			runsListCommand(),
			runsShowCommand(),
		},
	}
}

func runsListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List recorded runs, newest first",
		Flags: append(ReadOnlyFlags(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to return (0 = no limit)",
				Value: 0,
			},
		),
		Action: runsListAction,
	}
}

func runsListAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for runs commands", 1)
	}

	led, err := buildQueryLedger(c)
	if err != nil {
		return err
	}

	entries, err := led.Runs(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(entries)
}

func runsShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one recorded run by ID",
		ArgsUsage: "<run-id>",
		Flags:     ReadOnlyFlags(),
		Action:    runsShowAction,
	}
}

func runsShowAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for runs commands", 1)
	}
	if c.NArg() != 1 {
		return cli.Exit("usage: runs show <run-id>", 1)
	}

	led, err := buildQueryLedger(c)
	if err != nil {
		return err
	}

	entry, err := led.Find(c.Context, c.Args().First())
	if err != nil {
		if errors.Is(err, ledger.ErrRunNotFound) {
			return cli.Exit(err.Error(), 1)
		}
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(entry)
}

// buildQueryLedger wires the run history for read commands. Disabled history
// is an explicit error here rather than an empty result.
func buildQueryLedger(c *cli.Context) (*ledger.Ledger, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	led, err := buildLedger(c.Context, cfg)
	if err != nil {
		return nil, err
	}
	if led == nil {
		return nil, cli.Exit("run history is disabled in config", 1)
	}
	return led, nil
}
