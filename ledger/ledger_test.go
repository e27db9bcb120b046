package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/bggsnap/bggsnap/types"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := New("bggsnap_test", "bggsnap", lode.NewMemoryFactory())
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return l
}

func successRecord(runID string, startedAt time.Time) RunRecord {
	createdAt := startedAt.Add(90 * time.Second)
	return RunRecord{
		Meta:      types.RunMeta{RunID: runID, Trigger: types.TriggerSchedule, Attempt: 1},
		Outcome:   types.RunOutcome{Status: types.OutcomeSuccess},
		StartedAt: startedAt,
		Duration:  90 * time.Second,
		Artifact: &types.ArtifactMeta{
			Name:       "bggsnap_20260825T031500Z_" + runID + ".tar.gz",
			RunID:      runID,
			Trigger:    types.TriggerSchedule,
			CreatedAt:  createdAt,
			ExpiresAt:  createdAt.Add(types.RetentionPeriod),
			FileCount:  12,
			TotalBytes: 4096,
			URL:        "file:///artifacts/" + runID + ".tar.gz",
		},
	}
}

func TestRecordAndRuns(t *testing.T) {
	l := newTestLedger(t)

	base := time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC)
	if err := l.Record(t.Context(), successRecord("run-1", base)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.Record(t.Context(), RunRecord{
		Meta: types.RunMeta{RunID: "run-2", Trigger: types.TriggerPush, Attempt: 1},
		Outcome: types.RunOutcome{
			Status:  types.OutcomeTestFailure,
			Phase:   types.PhaseTest,
			Message: "exit status 1",
		},
		StartedAt: base.Add(time.Hour),
		Duration:  10 * time.Second,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := l.Runs(t.Context(), 0)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// Newest first.
	if entries[0].RunID != "run-2" || entries[1].RunID != "run-1" {
		t.Errorf("order = %s, %s", entries[0].RunID, entries[1].RunID)
	}

	failed := entries[0]
	if failed.Status != "test_failure" || failed.Phase != "test" || failed.Message != "exit status 1" {
		t.Errorf("unexpected failed entry %+v", failed)
	}
	if failed.Artifact != "" {
		t.Errorf("failed run should carry no artifact, got %q", failed.Artifact)
	}

	succeeded := entries[1]
	if succeeded.Status != "success" || succeeded.Trigger != "schedule" {
		t.Errorf("unexpected success entry %+v", succeeded)
	}
	if succeeded.FileCount != 12 || succeeded.ArtifactBytes != 4096 {
		t.Errorf("artifact fields not folded in: %+v", succeeded)
	}
	if succeeded.Duration != "1m30s" {
		t.Errorf("duration = %q", succeeded.Duration)
	}
}

func TestRuns_Limit(t *testing.T) {
	l := newTestLedger(t)

	base := time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC)
	for i, runID := range []string{"run-1", "run-2", "run-3"} {
		if err := l.Record(t.Context(), successRecord(runID, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := l.Runs(t.Context(), 2)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-3" {
		t.Errorf("expected newest run first, got %s", entries[0].RunID)
	}
}

func TestFind(t *testing.T) {
	l := newTestLedger(t)

	base := time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC)
	// run-1 and run-10 exercise exact partition matching.
	for _, runID := range []string{"run-1", "run-10"} {
		if err := l.Record(t.Context(), successRecord(runID, base)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	e, err := l.Find(t.Context(), "run-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if e.RunID != "run-1" {
		t.Errorf("found %q, want run-1", e.RunID)
	}
	if e.ArtifactURL == "" {
		t.Error("artifact record should be folded into the entry")
	}
}

func TestFind_NotFound(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Record(t.Context(), successRecord("run-1", time.Now())); err != nil {
		t.Fatalf("record: %v", err)
	}

	_, err := l.Find(t.Context(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}
