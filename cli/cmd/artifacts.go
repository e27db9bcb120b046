package cmd

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/bggsnap/bggsnap/archive"
	"github.com/bggsnap/bggsnap/cli/render"
	"github.com/bggsnap/bggsnap/cli/tui"
	"github.com/bggsnap/bggsnap/log"
)

// ArtifactsCommand returns the artifacts command with subcommands.
func ArtifactsCommand() *cli.Command {
	return &cli.Command{
		Name:  "artifacts",
		Usage: "Manage stored artifacts",
		Subcommands: []*cli.Command{
			artifactsListCommand(),
			artifactsPruneCommand(),
		},
	}
}

func artifactsListCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List stored artifacts, newest first",
		Flags:  ReadOnlyFlags(),
		Action: artifactsListAction,
	}
}

func artifactsListAction(c *cli.Context) error {
	archiver, err := buildArchiver(c)
	if err != nil {
		return err
	}

	artifacts, err := archiver.List(c.Context)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return tui.RunArtifacts(artifacts)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(artifacts)
}

func artifactsPruneCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Delete artifacts past their retention period",
		Flags: []cli.Flag{
			ConfigFlag,
			FormatFlag,
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report expired artifacts without deleting them",
			},
		},
		Action: artifactsPruneAction,
	}
}

// pruneSummary is the rendered result of a prune.
type pruneSummary struct {
	Removed []string `json:"removed" yaml:"removed"`
	Count   int      `json:"count" yaml:"count"`
	DryRun  bool     `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
}

func artifactsPruneAction(c *cli.Context) error {
	archiver, err := buildArchiver(c)
	if err != nil {
		return err
	}

	now := time.Now()
	var removed []string
	if c.Bool("dry-run") {
		artifacts, err := archiver.List(c.Context)
		if err != nil {
			return err
		}
		for _, a := range artifacts {
			if a.Expired(now) {
				removed = append(removed, a.Name)
			}
		}
	} else {
		removed, err = archiver.Prune(c.Context, now)
		if err != nil {
			return err
		}
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(pruneSummary{
		Removed: removed,
		Count:   len(removed),
		DryRun:  c.Bool("dry-run"),
	})
}

// buildArchiver wires a store-backed archiver for read and prune surfaces.
func buildArchiver(c *cli.Context) (*archive.Archiver, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(c.Context, cfg)
	if err != nil {
		return nil, err
	}

	return archive.NewArchiver(store, log.NewProcessLogger(), nil), nil
}
