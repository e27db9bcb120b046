// Package ledger keeps an append-only run history on a lode dataset.
// Records are Hive-partitioned by source/day/run_id and encoded as JSONL,
// so the history is queryable in place with standard data tooling.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"

	"github.com/bggsnap/bggsnap/types"
)

// DefaultDataset is the lode dataset ID for run history.
const DefaultDataset = "bggsnap"

// Record discriminator values.
const (
	RecordKindRunSummary = "run_summary"
	RecordKindArtifact   = "artifact"
)

// DeriveDay derives the day partition key (YYYY-MM-DD UTC) from a run's
// start time.
func DeriveDay(startedAt time.Time) string {
	return startedAt.UTC().Format("2006-01-02")
}

// S3Config selects the bucket and key prefix for ledger storage.
type S3Config struct {
	Bucket string
	Prefix string
	Region string
}

// Ledger writes and reads run history records.
type Ledger struct {
	dataset lode.Dataset
	source  string
}

// New creates a ledger on a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func New(dataset, source string, factory lode.StoreFactory) (*Ledger, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}

	ds, err := lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout("source", "day", "run_id"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	return &Ledger{dataset: ds, source: source}, nil
}

// NewFS creates a ledger with filesystem storage rooted at root.
func NewFS(dataset, source, root string) (*Ledger, error) {
	return New(dataset, source, lode.NewFSFactory(root))
}

// NewS3 creates a ledger with S3 storage.
// Uses the AWS SDK default credential chain.
func NewS3(ctx context.Context, dataset, source string, cfg S3Config) (*Ledger, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("ledger: s3 bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ledger: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)

	factory := func() (lode.Store, error) {
		return lodes3.New(client, lodes3.Config{
			Bucket: cfg.Bucket,
			Prefix: cfg.Prefix,
		})
	}
	return New(dataset, source, factory)
}

// ParseS3Path splits "bucket/prefix" into its parts.
func ParseS3Path(path string) (bucket, prefix string) {
	parts := strings.SplitN(path, "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		prefix = parts[1]
	}
	return bucket, prefix
}

// RunRecord is one completed run as the pipeline reports it.
type RunRecord struct {
	Meta      types.RunMeta
	Outcome   types.RunOutcome
	StartedAt time.Time
	Duration  time.Duration
	// Artifact is nil for failed runs.
	Artifact *types.ArtifactMeta
}

// Record appends a run-summary record, plus an artifact record when the run
// produced one, in a single dataset write.
func (l *Ledger) Record(ctx context.Context, rec RunRecord) error {
	day := DeriveDay(rec.StartedAt)

	summary := map[string]any{
		"record_kind": RecordKindRunSummary,
		"run_id":      rec.Meta.RunID,
		"trigger":     string(rec.Meta.Trigger),
		"attempt":     rec.Meta.Attempt,
		"status":      string(rec.Outcome.Status),
		"started_ts":  rec.StartedAt.UTC().Format(time.RFC3339Nano),
		"duration_ms": rec.Duration.Milliseconds(),
		"source":      l.source,
		"day":         day,
	}
	if rec.Outcome.Failed() {
		summary["phase"] = string(rec.Outcome.Phase)
		summary["message"] = rec.Outcome.Message
	}
	if rec.Artifact != nil {
		summary["artifact"] = rec.Artifact.Name
	}

	records := []any{summary}
	if rec.Artifact != nil {
		records = append(records, map[string]any{
			"record_kind": RecordKindArtifact,
			"name":        rec.Artifact.Name,
			"run_id":      rec.Artifact.RunID,
			"trigger":     string(rec.Artifact.Trigger),
			"created_ts":  rec.Artifact.CreatedAt.UTC().Format(time.RFC3339Nano),
			"expires_ts":  rec.Artifact.ExpiresAt.UTC().Format(time.RFC3339Nano),
			"file_count":  rec.Artifact.FileCount,
			"size_bytes":  rec.Artifact.TotalBytes,
			"url":         rec.Artifact.URL,
			"source":      l.source,
			"day":         day,
		})
	}

	if _, err := l.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		return fmt.Errorf("ledger: record run %s: %w", rec.Meta.RunID, err)
	}
	return nil
}
