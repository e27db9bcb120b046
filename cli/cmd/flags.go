// Package cmd provides CLI commands for the bggsnap binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags.
var (
	// ConfigFlag points at the YAML config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to bggsnap.yaml",
	}

	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for artifacts list.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (artifacts list only)",
	}
)

// ReadOnlyFlags returns the shared flags for read-only commands. Includes
// --tui so that unsupported commands can give explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		FormatFlag,
		TUIFlag,
	}
}
