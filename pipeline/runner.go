package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/bggsnap/bggsnap/archive"
	"github.com/bggsnap/bggsnap/log"
	"github.com/bggsnap/bggsnap/metrics"
	"github.com/bggsnap/bggsnap/types"
)

// Archiver is the artifact layer contract used by the runner.
type Archiver interface {
	Create(ctx context.Context, dir string, meta types.RunMeta) (*types.ArtifactMeta, error)
}

// PhaseTiming records how long one phase ran, in milliseconds.
type PhaseTiming struct {
	Phase      types.PhaseName `json:"phase" yaml:"phase"`
	DurationMs int64           `json:"duration_ms" yaml:"duration_ms"`
}

// Result is the full outcome of one run.
type Result struct {
	Meta      types.RunMeta
	Outcome   types.RunOutcome
	Artifact  *types.ArtifactMeta
	StartedAt time.Time
	Duration  time.Duration
	Phases    []PhaseTiming
	Metrics   *metrics.Snapshot
}

// Runner executes the phase sequence for a single run.
// The sequence is identical for every trigger kind.
type Runner struct {
	phases    []Phase
	outputDir string
	archiver  Archiver
	logger    *log.Logger
	collector *metrics.Collector

	now func() time.Time
}

// NewRunner builds a runner over the lint, test, and download phases plus
// the archiver. phases must be in canonical order; archive always runs last
// and only after every phase succeeded.
func NewRunner(phases []Phase, outputDir string, archiver Archiver, logger *log.Logger, collector *metrics.Collector) *Runner {
	return &Runner{
		phases:    phases,
		outputDir: outputDir,
		archiver:  archiver,
		logger:    logger,
		collector: collector,
		now:       time.Now,
	}
}

// Execute runs every phase in order. The first failure aborts the run and
// maps to its phase-specific outcome; later phases, including archive, do
// not run. A successful run stores exactly one artifact.
func (r *Runner) Execute(ctx context.Context, meta types.RunMeta) Result {
	startedAt := r.now()
	r.collector.IncRunStarted()
	r.logger.Info("run started", map[string]any{
		"trigger": string(meta.Trigger),
	})

	res := Result{Meta: meta, StartedAt: startedAt}

	for _, phase := range r.phases {
		if err := r.runPhase(ctx, phase, &res); err != nil {
			res.Outcome = types.FailureOutcome(phase.Name())
			res.Outcome.Message = err.Error()
			return r.finish(res)
		}
	}

	phaseStart := r.now()
	artifact, err := r.archiver.Create(ctx, r.outputDir, meta)
	res.Phases = append(res.Phases, PhaseTiming{
		Phase:      types.PhaseArchive,
		DurationMs: r.now().Sub(phaseStart).Milliseconds(),
	})
	if err != nil {
		r.collector.IncRunFailed(string(types.PhaseArchive))
		r.logger.Error("phase failed", map[string]any{
			"phase": string(types.PhaseArchive),
			"error": err.Error(),
		})
		res.Outcome = types.FailureOutcome(types.PhaseArchive)
		if errors.Is(err, archive.ErrEmptyOutput) {
			res.Outcome.Status = types.OutcomeEmptyOutput
		}
		res.Outcome.Message = err.Error()
		return r.finish(res)
	}

	res.Artifact = artifact
	res.Outcome = types.RunOutcome{Status: types.OutcomeSuccess}
	r.collector.IncRunSucceeded()
	return r.finish(res)
}

func (r *Runner) runPhase(ctx context.Context, phase Phase, res *Result) error {
	name := phase.Name()
	r.logger.Info("phase started", map[string]any{"phase": string(name)})

	phaseStart := r.now()
	err := phase.Run(ctx)
	elapsed := r.now().Sub(phaseStart)
	res.Phases = append(res.Phases, PhaseTiming{Phase: name, DurationMs: elapsed.Milliseconds()})

	if err != nil {
		r.collector.IncRunFailed(string(name))
		r.logger.Error("phase failed", map[string]any{
			"phase":       string(name),
			"duration_ms": elapsed.Milliseconds(),
			"error":       err.Error(),
		})
		return err
	}

	r.logger.Info("phase succeeded", map[string]any{
		"phase":       string(name),
		"duration_ms": elapsed.Milliseconds(),
	})
	return nil
}

func (r *Runner) finish(res Result) Result {
	res.Duration = r.now().Sub(res.StartedAt)
	snap := r.collector.Snapshot()
	res.Metrics = &snap

	fields := map[string]any{
		"status":      string(res.Outcome.Status),
		"duration_ms": res.Duration.Milliseconds(),
	}
	if res.Artifact != nil {
		fields["artifact"] = res.Artifact.Name
	}
	if res.Outcome.Failed() {
		fields["phase"] = string(res.Outcome.Phase)
		r.logger.Error("run failed", fields)
	} else {
		r.logger.Info("run succeeded", fields)
	}
	return res
}
