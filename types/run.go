// Package types defines core domain types for the bggsnap pipeline.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
)

// TriggerKind identifies the event class that started a job run.
type TriggerKind string

const (
	// TriggerPush indicates the run was started by a push to the watched branch.
	TriggerPush TriggerKind = "push"
	// TriggerSchedule indicates the run was started by the cron schedule.
	TriggerSchedule TriggerKind = "schedule"
	// TriggerManual indicates the run was started by an operator invocation.
	TriggerManual TriggerKind = "manual"
)

// ValidTrigger reports whether k is a known trigger kind.
func ValidTrigger(k TriggerKind) bool {
	switch k {
	case TriggerPush, TriggerSchedule, TriggerManual:
		return true
	default:
		return false
	}
}

// PhaseName identifies one step within a job run.
type PhaseName string

const (
	// PhaseLint runs the static-analysis suite over the whole tree.
	PhaseLint PhaseName = "lint"
	// PhaseTest runs the test suite.
	PhaseTest PhaseName = "test"
	// PhaseDownload invokes the data-retrieval collaborator.
	PhaseDownload PhaseName = "download"
	// PhaseArchive packages the output directory as a retained artifact.
	PhaseArchive PhaseName = "archive"
)

// PhaseSequence is the canonical phase order. Every trigger kind executes
// the identical sequence; a failing phase prevents all later phases.
var PhaseSequence = []PhaseName{PhaseLint, PhaseTest, PhaseDownload, PhaseArchive}

// RunMeta contains run identity metadata.
type RunMeta struct {
	// RunID is the canonical run identifier. Must be globally unique.
	RunID string
	// Trigger is the event class that started this run.
	Trigger TriggerKind
	// Attempt is the attempt number. Starts at 1; incremented only by
	// explicit operator re-triggers, never automatically.
	Attempt int
}

// Validate checks run identity rules.
func (r *RunMeta) Validate() error {
	if r.RunID == "" {
		return errors.New("run_id must be non-empty")
	}

	if !ValidTrigger(r.Trigger) {
		return fmt.Errorf("unknown trigger kind %q", r.Trigger)
	}

	if r.Attempt < 1 {
		return fmt.Errorf("attempt must be >= 1, got %d", r.Attempt)
	}

	return nil
}

// OutcomeStatus classifies the terminal state of a run.
// Failure statuses are keyed by the phase that halted the run.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates all phases completed and one artifact was produced.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeLintFailure indicates the lint phase reported violations.
	OutcomeLintFailure OutcomeStatus = "lint_failure"
	// OutcomeTestFailure indicates the test phase reported failing tests.
	OutcomeTestFailure OutcomeStatus = "test_failure"
	// OutcomeDownloadFailure indicates the download collaborator failed.
	OutcomeDownloadFailure OutcomeStatus = "download_failure"
	// OutcomeEmptyOutput indicates the download phase succeeded but left the
	// output directory empty. Distinct from download_failure by design: the
	// collaborator signalled success while producing nothing to archive.
	OutcomeEmptyOutput OutcomeStatus = "empty_output"
	// OutcomeArchiveFailure indicates packing or storing the artifact failed.
	// Distinct from empty_output: there was data to archive.
	OutcomeArchiveFailure OutcomeStatus = "archive_failure"
)

// RunOutcome is the terminal result of a run.
type RunOutcome struct {
	// Status is the outcome classification.
	Status OutcomeStatus
	// Phase is the phase that determined the outcome. For success this is
	// the archive phase (the last one executed).
	Phase PhaseName
	// Message is a human-readable description.
	Message string
}

// Failed reports whether the outcome is any failure status.
func (o *RunOutcome) Failed() bool {
	return o.Status != OutcomeSuccess
}

// FailureOutcome maps a failing phase to its run outcome. An archive failure
// maps to archive_failure; callers that can tell an empty output directory
// apart from a pack or store error set empty_output themselves.
func FailureOutcome(phase PhaseName) RunOutcome {
	var status OutcomeStatus
	switch phase {
	case PhaseLint:
		status = OutcomeLintFailure
	case PhaseTest:
		status = OutcomeTestFailure
	case PhaseDownload:
		status = OutcomeDownloadFailure
	case PhaseArchive:
		status = OutcomeArchiveFailure
	default:
		status = OutcomeDownloadFailure
	}
	return RunOutcome{Status: status, Phase: phase}
}
