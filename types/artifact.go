//nolint:revive // types is a common Go package naming convention
package types

import "time"

// RetentionPeriod is how long an artifact remains retrievable after creation.
// Expiry is enforced by the prune operation, never by the run that created it.
const RetentionPeriod = 90 * 24 * time.Hour

// ArtifactMeta describes one retained snapshot of the output directory.
// Artifacts are immutable after creation.
type ArtifactMeta struct {
	// Name is the artifact object name, unique per run.
	Name string `json:"name"`
	// RunID is the run that produced this artifact.
	RunID string `json:"run_id"`
	// Trigger is the trigger kind of the producing run.
	Trigger TriggerKind `json:"trigger"`
	// CreatedAt is the archive time (UTC).
	CreatedAt time.Time `json:"created_at"`
	// ExpiresAt is CreatedAt plus the retention period.
	ExpiresAt time.Time `json:"expires_at"`
	// FileCount is the number of files packaged from the output directory.
	FileCount int `json:"file_count"`
	// TotalBytes is the size of the stored artifact in bytes.
	TotalBytes int64 `json:"total_bytes"`
	// URL is the retrievable location of the stored artifact.
	URL string `json:"url"`
}

// Expired reports whether the artifact is past its retention period at now.
func (a *ArtifactMeta) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
