package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/bggsnap/bggsnap/cli/render"
	"github.com/bggsnap/bggsnap/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// VersionCommand returns the version command. It reports the canonical
// project version and never touches storage or the network.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.Bool("tui") {
			return cli.Exit("--tui is not supported for version command", 1)
		}

		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}
		return r.Render(VersionResponse{
			Version: types.Version,
			Commit:  commit,
		})
	}
}
