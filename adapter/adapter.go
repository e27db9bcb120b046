// Package adapter defines the downstream notification boundary.
//
// Adapters publish run completion notifications to external systems. A
// delivery failure is logged by the caller and never fails the run.
package adapter

import "context"

// EventTypeRunCompleted is the event type carried by every notification.
const EventTypeRunCompleted = "run_completed"

// RunCompletedEvent is the payload published when a run finishes.
type RunCompletedEvent struct {
	EventType string `json:"event_type"`
	RunID     string `json:"run_id"`
	Trigger   string `json:"trigger"`
	Status    string `json:"status"`
	Phase     string `json:"phase,omitempty"`
	Message   string `json:"message,omitempty"`

	Artifact    string `json:"artifact,omitempty"`
	ArtifactURL string `json:"artifact_url,omitempty"`
	FileCount   int    `json:"file_count,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`

	DurationMs int64  `json:"duration_ms"`
	Timestamp  string `json:"timestamp"` // ISO 8601
}

// Adapter publishes run completion events to a downstream system.
type Adapter interface {
	// Publish sends a run completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *RunCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
