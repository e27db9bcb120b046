package adapter

import (
	"context"
	"time"

	"github.com/bggsnap/bggsnap/log"
	"github.com/bggsnap/bggsnap/pipeline"
)

// FromResult converts a run result into the published event payload.
func FromResult(res pipeline.Result) *RunCompletedEvent {
	ev := &RunCompletedEvent{
		EventType:  EventTypeRunCompleted,
		RunID:      res.Meta.RunID,
		Trigger:    string(res.Meta.Trigger),
		Status:     string(res.Outcome.Status),
		DurationMs: res.Duration.Milliseconds(),
		Timestamp:  res.StartedAt.Add(res.Duration).UTC().Format(time.RFC3339Nano),
	}
	if res.Outcome.Failed() {
		ev.Phase = string(res.Outcome.Phase)
		ev.Message = res.Outcome.Message
	}
	if res.Artifact != nil {
		ev.Artifact = res.Artifact.Name
		ev.ArtifactURL = res.Artifact.URL
		ev.FileCount = res.Artifact.FileCount
		ev.SizeBytes = res.Artifact.TotalBytes
	}
	return ev
}

// Notifier fans a run completion out to every configured adapter. Publish
// failures are logged and swallowed; notification never fails a run.
type Notifier struct {
	adapters []Adapter
	logger   *log.Logger
}

// NewNotifier wraps zero or more adapters.
func NewNotifier(logger *log.Logger, adapters ...Adapter) *Notifier {
	return &Notifier{adapters: adapters, logger: logger}
}

// Notify implements the pipeline notification contract.
func (n *Notifier) Notify(ctx context.Context, res pipeline.Result) {
	if len(n.adapters) == 0 {
		return
	}

	ev := FromResult(res)
	for _, a := range n.adapters {
		if err := a.Publish(ctx, ev); err != nil {
			n.logger.Error("notification failed", map[string]any{
				"run_id": ev.RunID,
				"error":  err.Error(),
			})
		}
	}
}

// Close closes every wrapped adapter.
func (n *Notifier) Close() {
	for _, a := range n.adapters {
		if err := a.Close(); err != nil {
			n.logger.Warn("adapter close failed", map[string]any{
				"error": err.Error(),
			})
		}
	}
}

var _ pipeline.Notifier = (*Notifier)(nil)
