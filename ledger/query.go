package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/justapithecus/lode/lode"
)

// ErrRunNotFound is returned when no run-summary record matches the run ID.
var ErrRunNotFound = errors.New("run not found")

// Entry is one run as read back from the history.
type Entry struct {
	RunID     string    `json:"run_id" yaml:"run_id"`
	Trigger   string    `json:"trigger" yaml:"trigger"`
	Attempt   int       `json:"attempt" yaml:"attempt"`
	Status    string    `json:"status" yaml:"status"`
	Phase     string    `json:"phase,omitempty" yaml:"phase,omitempty"`
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
	StartedAt time.Time `json:"started_ts" yaml:"started_ts"`
	Duration  string    `json:"duration" yaml:"duration"`

	Artifact      string `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	ArtifactURL   string `json:"artifact_url,omitempty" yaml:"artifact_url,omitempty"`
	ArtifactBytes int64  `json:"artifact_bytes,omitempty" yaml:"artifact_bytes,omitempty"`
	FileCount     int    `json:"file_count,omitempty" yaml:"file_count,omitempty"`
}

// Runs reads every recorded run, newest first. limit <= 0 means no limit.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Entry, error) {
	snapshots, err := l.dataset.Snapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: snapshots: %w", err)
	}

	byRun := make(map[string]*Entry)
	for _, snap := range snapshots {
		if err := l.collect(ctx, snap, "", byRun); err != nil {
			return nil, err
		}
	}

	entries := make([]Entry, 0, len(byRun))
	for _, e := range byRun {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartedAt.After(entries[j].StartedAt)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Find reads a single run by ID. Snapshot manifests are used as a coarse
// pre-filter on the run_id partition; record fields are authoritative.
func (l *Ledger) Find(ctx context.Context, runID string) (*Entry, error) {
	snapshots, err := l.dataset.Snapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: snapshots: %w", err)
	}

	byRun := make(map[string]*Entry)
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotMatchesPartition(snap, "run_id", runID) {
			continue
		}
		if err := l.collect(ctx, snap, runID, byRun); err != nil {
			return nil, err
		}
		if e, ok := byRun[runID]; ok && e.RunID != "" {
			return e, nil
		}
	}
	return nil, fmt.Errorf("ledger: %w: %s", ErrRunNotFound, runID)
}

// collect reads one snapshot and folds its records into byRun. An empty
// runID collects everything.
func (l *Ledger) collect(ctx context.Context, snap *lode.DatasetSnapshot, runID string, byRun map[string]*Entry) error {
	data, err := l.dataset.Read(ctx, snap.ID)
	if err != nil {
		return fmt.Errorf("ledger: read snapshot %v: %w", snap.ID, err)
	}

	for _, item := range data {
		record, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := toString(record["run_id"])
		if id == "" || (runID != "" && id != runID) {
			continue
		}

		e := byRun[id]
		if e == nil {
			e = &Entry{}
			byRun[id] = e
		}

		switch record["record_kind"] {
		case RecordKindRunSummary:
			e.RunID = id
			e.Trigger = toString(record["trigger"])
			e.Attempt = int(toInt64(record["attempt"]))
			e.Status = toString(record["status"])
			e.Phase = toString(record["phase"])
			e.Message = toString(record["message"])
			e.StartedAt = toTime(record["started_ts"])
			e.Duration = (time.Duration(toInt64(record["duration_ms"])) * time.Millisecond).String()
			if name := toString(record["artifact"]); name != "" {
				e.Artifact = name
			}
		case RecordKindArtifact:
			e.Artifact = toString(record["name"])
			e.ArtifactURL = toString(record["url"])
			e.ArtifactBytes = toInt64(record["size_bytes"])
			e.FileCount = int(toInt64(record["file_count"]))
		}
	}
	return nil
}

// snapshotMatchesPartition reports whether any file path in the snapshot
// manifest contains an exact key=value segment. Exact segment matching
// avoids prefix false positives (run-1 vs run-10).
func snapshotMatchesPartition(snap *lode.DatasetSnapshot, key, value string) bool {
	segment := key + "=" + value
	for _, f := range snap.Manifest.Files {
		for _, part := range strings.Split(f.Path, "/") {
			if part == segment {
				return true
			}
		}
	}
	return false
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

// toInt64 handles the JSON number round trip: numeric fields come back from
// the JSONL codec as float64.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

func toTime(v any) time.Time {
	t, err := time.Parse(time.RFC3339Nano, toString(v))
	if err != nil {
		return time.Time{}
	}
	return t
}
