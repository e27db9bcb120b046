package cmd

import (
	"testing"
	"time"

	"github.com/bggsnap/bggsnap/cli/config"
	"github.com/bggsnap/bggsnap/pipeline"
	"github.com/bggsnap/bggsnap/types"
)

func TestReadOnlyFlags_IncludesTUI(t *testing.T) {
	hasTUI := false
	for _, f := range ReadOnlyFlags() {
		if f.Names()[0] == "tui" {
			hasTUI = true
			break
		}
	}
	if !hasTUI {
		t.Error("ReadOnlyFlags should include --tui flag for explicit error handling")
	}
}

func TestOutcomeToExitCode(t *testing.T) {
	tests := []struct {
		status types.OutcomeStatus
		want   int
	}{
		{types.OutcomeSuccess, 0},
		{types.OutcomeLintFailure, 1},
		{types.OutcomeTestFailure, 2},
		{types.OutcomeDownloadFailure, 3},
		{types.OutcomeEmptyOutput, 4},
		{types.OutcomeArchiveFailure, 5},
	}

	for _, tt := range tests {
		if got := outcomeToExitCode(tt.status); got != tt.want {
			t.Errorf("outcomeToExitCode(%s) = %d, want %d", tt.status, got, tt.want)
		}
	}
}

func TestSummarize_Success(t *testing.T) {
	res := pipeline.Result{
		Meta:     types.RunMeta{RunID: "run1", Trigger: types.TriggerManual, Attempt: 1},
		Outcome:  types.RunOutcome{Status: types.OutcomeSuccess},
		Duration: 90 * time.Second,
		Artifact: &types.ArtifactMeta{
			Name:       "bggsnap_20260825T031500Z_run1.tar.gz",
			FileCount:  12,
			TotalBytes: 4096,
			URL:        "file:///artifacts/a.tar.gz",
		},
	}

	s := summarize(res)
	if s.Status != "success" || s.Phase != "" || s.Message != "" {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.Artifact != res.Artifact.Name || s.FileCount != 12 || s.SizeBytes != 4096 {
		t.Errorf("artifact fields not carried: %+v", s)
	}
	if s.Duration != "1m30s" {
		t.Errorf("duration = %q, want 1m30s", s.Duration)
	}
}

func TestSummarize_Failure(t *testing.T) {
	res := pipeline.Result{
		Meta: types.RunMeta{RunID: "run2", Trigger: types.TriggerPush, Attempt: 1},
		Outcome: types.RunOutcome{
			Status:  types.OutcomeTestFailure,
			Phase:   types.PhaseTest,
			Message: "go test exited with status 1",
		},
		Duration: 5 * time.Second,
	}

	s := summarize(res)
	if s.Status != "test_failure" || s.Phase != "test" {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.Message == "" {
		t.Error("failure message should be carried")
	}
	if s.Artifact != "" {
		t.Error("failed run must not report an artifact")
	}
}

func TestStorageBackendDefault(t *testing.T) {
	cfg := &config.Config{}
	if got := storageBackend(cfg); got != "fs" {
		t.Errorf("storageBackend = %q, want fs", got)
	}

	cfg.Storage.Backend = "s3"
	if got := storageBackend(cfg); got != "s3" {
		t.Errorf("storageBackend = %q, want s3", got)
	}
}

func TestOutputDirDefault(t *testing.T) {
	cfg := &config.Config{}
	if got := outputDir(cfg); got != defaultOutputDir {
		t.Errorf("outputDir = %q, want %q", got, defaultOutputDir)
	}

	cfg.OutputDir = "/tmp/snapshots"
	if got := outputDir(cfg); got != "/tmp/snapshots" {
		t.Errorf("outputDir = %q", got)
	}
}

func TestBuildStore_FS(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Path = t.TempDir()

	store, err := buildStore(t.Context(), cfg)
	if err != nil {
		t.Fatalf("buildStore: %v", err)
	}
	if store == nil {
		t.Fatal("expected a store")
	}
}

func TestBuildStore_UnknownBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Backend = "ftp"

	if _, err := buildStore(t.Context(), cfg); err == nil {
		t.Error("unknown backend should error")
	}
}

func TestBuildLedger_Disabled(t *testing.T) {
	disabled := false
	cfg := &config.Config{}
	cfg.Ledger.Enabled = &disabled

	led, err := buildLedger(t.Context(), cfg)
	if err != nil {
		t.Fatalf("buildLedger: %v", err)
	}
	if led != nil {
		t.Error("disabled history should yield a nil ledger")
	}
}

func TestBuildNotifier_UnknownType(t *testing.T) {
	cfg := &config.Config{}
	cfg.Adapter.Type = "carrier-pigeon"

	if _, err := buildNotifier(nil, cfg); err == nil {
		t.Error("unknown adapter type should error")
	}
}

func TestBuildRunnerFunc_RequiresUsername(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Path = t.TempDir()

	store, err := buildStore(t.Context(), cfg)
	if err != nil {
		t.Fatalf("buildStore: %v", err)
	}

	build := buildRunnerFunc(cfg, store)
	meta := types.RunMeta{RunID: "run1", Trigger: types.TriggerManual, Attempt: 1}
	if _, err := build(meta); err == nil {
		t.Error("missing username should fail runner wiring")
	}
}

func TestBuildRunnerFunc_Wires(t *testing.T) {
	cfg := &config.Config{Username: "alice"}
	cfg.Storage.Path = t.TempDir()
	cfg.OutputDir = t.TempDir()

	store, err := buildStore(t.Context(), cfg)
	if err != nil {
		t.Fatalf("buildStore: %v", err)
	}

	build := buildRunnerFunc(cfg, store)
	meta := types.RunMeta{RunID: "run1", Trigger: types.TriggerManual, Attempt: 1}
	runner, err := build(meta)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if runner == nil {
		t.Fatal("expected a runner")
	}
}
