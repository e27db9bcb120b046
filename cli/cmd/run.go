package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/bggsnap/bggsnap/cli/render"
	"github.com/bggsnap/bggsnap/log"
	"github.com/bggsnap/bggsnap/pipeline"
	"github.com/bggsnap/bggsnap/types"
)

// Exit codes for the run command, one per outcome status.
const (
	exitSuccess         = 0
	exitLintFailure     = 1
	exitTestFailure     = 2
	exitDownloadFailure = 3
	exitEmptyOutput     = 4
	exitArchiveFailure  = 5
)

// RunCommand returns the run command: one manually triggered run through the
// full phase sequence.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute one snapshot run (lint, test, download, archive)",
		Flags: []cli.Flag{
			ConfigFlag,
			FormatFlag,
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "BGG username to snapshot",
			},
			&cli.StringFlag{
				Name:  "output-dir",
				Usage: "Directory the download phase writes into",
			},
			&cli.StringFlag{
				Name:  "storage-backend",
				Usage: "Artifact store backend: fs or s3",
			},
			&cli.StringFlag{
				Name:  "storage-path",
				Usage: "Artifact store path (fs: directory, s3: bucket/prefix)",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress the run summary",
			},
		},
		Action: runAction,
	}
}

// runSummary is the rendered result of a manual run.
type runSummary struct {
	RunID    string `json:"run_id" yaml:"run_id"`
	Trigger  string `json:"trigger" yaml:"trigger"`
	Status   string `json:"status" yaml:"status"`
	Phase    string `json:"phase,omitempty" yaml:"phase,omitempty"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
	Duration string `json:"duration" yaml:"duration"`

	Artifact    string `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	ArtifactURL string `json:"artifact_url,omitempty" yaml:"artifact_url,omitempty"`
	FileCount   int    `json:"file_count,omitempty" yaml:"file_count,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if v := c.String("user"); v != "" {
		cfg.Username = v
	}
	if v := c.String("output-dir"); v != "" {
		cfg.OutputDir = v
	}
	if v := c.String("storage-backend"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := c.String("storage-path"); v != "" {
		cfg.Storage.Path = v
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.NewProcessLogger()
	job, notifier, err := buildJob(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer notifier.Close()

	res, err := job.Do(ctx, types.TriggerManual)
	if err != nil {
		return err
	}

	if !c.Bool("quiet") {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}
		if err := r.Render(summarize(res)); err != nil {
			return err
		}
	}

	return cli.Exit("", outcomeToExitCode(res.Outcome.Status))
}

func summarize(res pipeline.Result) runSummary {
	s := runSummary{
		RunID:    res.Meta.RunID,
		Trigger:  string(res.Meta.Trigger),
		Status:   string(res.Outcome.Status),
		Duration: res.Duration.Round(time.Millisecond).String(),
	}
	if res.Outcome.Failed() {
		s.Phase = string(res.Outcome.Phase)
		s.Message = res.Outcome.Message
	}
	if res.Artifact != nil {
		s.Artifact = res.Artifact.Name
		s.ArtifactURL = res.Artifact.URL
		s.FileCount = res.Artifact.FileCount
		s.SizeBytes = res.Artifact.TotalBytes
	}
	return s
}

func outcomeToExitCode(status types.OutcomeStatus) int {
	switch status {
	case types.OutcomeSuccess:
		return exitSuccess
	case types.OutcomeLintFailure:
		return exitLintFailure
	case types.OutcomeTestFailure:
		return exitTestFailure
	case types.OutcomeDownloadFailure:
		return exitDownloadFailure
	case types.OutcomeEmptyOutput:
		return exitEmptyOutput
	case types.OutcomeArchiveFailure:
		return exitArchiveFailure
	default:
		return exitDownloadFailure
	}
}
