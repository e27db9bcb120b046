// Package main provides the bggsnap CLI entrypoint.
//
// Usage:
//
//	bggsnap <command> [subcommand] [options]
//
// Exit codes for `run`:
//   - 0: success (one artifact stored)
//   - 1: lint failure
//   - 2: test failure
//   - 3: download failure
//   - 4: empty output directory at archive time
//   - 5: packing or storing the artifact failed
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/bggsnap/bggsnap/cli/cmd"
	"github.com/bggsnap/bggsnap/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "bggsnap",
		Usage:          "Scheduled BGG snapshot pipeline CLI",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.RunCommand(),
			cmd.ServeCommand(),
			cmd.ArtifactsCommand(),
			cmd.RunsCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit() so run outcome codes
// propagate to callers.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N"; skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
