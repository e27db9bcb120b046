// Package pipeline runs the fetch-and-archive job: lint, test, download,
// archive, in that order, aborting at the first failure. External
// collaborators are reached only through narrow contracts (argv exec for
// lint/test, the Fetcher interface for download) so the sequencing logic
// stays independent of what the collaborators do.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/bggsnap/bggsnap/log"
	"github.com/bggsnap/bggsnap/types"
)

// Phase is one step of the run sequence.
type Phase interface {
	Name() types.PhaseName
	Run(ctx context.Context) error
}

// Fetcher is the download collaborator contract: produce files under dir,
// signal success or failure.
type Fetcher interface {
	Fetch(ctx context.Context, dir string) error
}

// stderrTailLimit bounds how much collaborator stderr is carried into the
// run outcome message.
const stderrTailLimit = 512

// CommandPhase runs an external collaborator as a child process and maps its
// exit status to phase success or failure.
type CommandPhase struct {
	name   types.PhaseName
	argv   []string
	dir    string
	logger *log.Logger
}

// NewCommandPhase wraps an argv command as a phase. An empty argv makes the
// phase a configured no-op that always passes.
func NewCommandPhase(name types.PhaseName, argv []string, dir string, logger *log.Logger) *CommandPhase {
	return &CommandPhase{name: name, argv: argv, dir: dir, logger: logger}
}

func (p *CommandPhase) Name() types.PhaseName { return p.name }

func (p *CommandPhase) Run(ctx context.Context) error {
	if len(p.argv) == 0 {
		p.logger.Debug("phase has no command configured, passing", map[string]any{
			"phase": string(p.name),
		})
		return nil
	}

	cmd := exec.CommandContext(ctx, p.argv[0], p.argv[1:]...)
	cmd.Dir = p.dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with status %d%s",
				p.argv[0], exitErr.ExitCode(), stderrTail(stderr.Bytes()))
		}
		return fmt.Errorf("%s: %w", p.argv[0], err)
	}
	return nil
}

// stderrTail formats the trailing stderr output for an outcome message.
func stderrTail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return ""
	}
	if len(s) > stderrTailLimit {
		s = s[len(s)-stderrTailLimit:]
	}
	return ": " + s
}

// fetchPhase adapts a Fetcher to the Phase interface.
type fetchPhase struct {
	fetcher Fetcher
	dir     string
}

// NewFetchPhase wraps the download collaborator as the download phase,
// targeting dir.
func NewFetchPhase(fetcher Fetcher, dir string) Phase {
	return &fetchPhase{fetcher: fetcher, dir: dir}
}

func (p *fetchPhase) Name() types.PhaseName { return types.PhaseDownload }

func (p *fetchPhase) Run(ctx context.Context) error {
	return p.fetcher.Fetch(ctx, p.dir)
}
