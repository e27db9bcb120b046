package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/bggsnap/bggsnap/ledger"
	"github.com/bggsnap/bggsnap/log"
	"github.com/bggsnap/bggsnap/types"
)

// NewRunID generates a random run identifier. The alphabet is hex so run
// IDs can embed in artifact names and Hive partition segments.
func NewRunID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("run id: %v", err))
	}
	return hex.EncodeToString(b[:])
}

// Recorder appends a completed run to the run history.
type Recorder interface {
	Record(ctx context.Context, rec ledger.RunRecord) error
}

// Notifier delivers a run completion to a downstream system. Delivery
// failures are the notifier's to log; they never fail the run.
type Notifier interface {
	Notify(ctx context.Context, res Result)
}

// BuildFunc wires a runner for one run. Building per run keeps metrics
// collector dimensions (run_id, trigger) accurate.
type BuildFunc func(meta types.RunMeta) (*Runner, error)

// Job is the run entry point shared by every trigger kind: manual CLI runs,
// the schedule loop, and the push webhook all go through Do.
type Job struct {
	Build     BuildFunc
	Lock      *Lock
	Recorder  Recorder
	Notifiers []Notifier
	Logger    *log.Logger
}

// Do executes one run for the given trigger, serialized through the run
// group lock. The run result is returned even when the run failed; the
// error is non-nil only when the run could not start at all.
func (j *Job) Do(ctx context.Context, trigger types.TriggerKind) (Result, error) {
	meta := types.RunMeta{RunID: NewRunID(), Trigger: trigger, Attempt: 1}
	if err := meta.Validate(); err != nil {
		return Result{}, err
	}

	if !j.Lock.TryAcquire() {
		j.Logger.Info("run in flight, queueing", map[string]any{
			"run_id":  meta.RunID,
			"trigger": string(trigger),
		})
		if err := j.Lock.Acquire(ctx); err != nil {
			return Result{}, fmt.Errorf("waiting for run lock: %w", err)
		}
	}
	defer j.Lock.Release()

	runner, err := j.Build(meta)
	if err != nil {
		return Result{}, fmt.Errorf("wire run %s: %w", meta.RunID, err)
	}

	res := runner.Execute(ctx, meta)

	if j.Recorder != nil {
		rec := ledger.RunRecord{
			Meta:      res.Meta,
			Outcome:   res.Outcome,
			StartedAt: res.StartedAt,
			Duration:  res.Duration,
			Artifact:  res.Artifact,
		}
		if err := j.Recorder.Record(ctx, rec); err != nil {
			j.Logger.Error("run history write failed", map[string]any{
				"run_id": meta.RunID,
				"error":  err.Error(),
			})
		}
	}

	for _, n := range j.Notifiers {
		n.Notify(ctx, res)
	}
	return res, nil
}
