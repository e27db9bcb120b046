package archive

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bggsnap/bggsnap/log"
	"github.com/bggsnap/bggsnap/metrics"
	"github.com/bggsnap/bggsnap/types"
)

// Artifact naming convention: bggsnap_<UTC stamp>_<run id>.tar.gz.
const (
	ArtifactPrefix = "bggsnap_"
	ArtifactSuffix = ".tar.gz"

	stampLayout = "20060102T150405Z"
)

// ArtifactName builds the stored name for a run's artifact.
func ArtifactName(runID string, createdAt time.Time) string {
	return ArtifactPrefix + createdAt.UTC().Format(stampLayout) + "_" + runID + ArtifactSuffix
}

// ParseArtifactName recovers the creation time and run ID from an artifact
// name produced by ArtifactName.
func ParseArtifactName(name string) (createdAt time.Time, runID string, err error) {
	trimmed, ok := strings.CutPrefix(name, ArtifactPrefix)
	if !ok {
		return time.Time{}, "", fmt.Errorf("artifact name %q: missing prefix", name)
	}
	trimmed, ok = strings.CutSuffix(trimmed, ArtifactSuffix)
	if !ok {
		return time.Time{}, "", fmt.Errorf("artifact name %q: missing suffix", name)
	}

	stamp, runID, ok := strings.Cut(trimmed, "_")
	if !ok || runID == "" {
		return time.Time{}, "", fmt.Errorf("artifact name %q: missing run id", name)
	}

	createdAt, err = time.Parse(stampLayout, stamp)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("artifact name %q: bad stamp: %w", name, err)
	}
	return createdAt, runID, nil
}

// Archiver packs output directories into artifacts and manages their
// retention in a store.
type Archiver struct {
	store     Store
	logger    *log.Logger
	collector *metrics.Collector

	now func() time.Time
}

// NewArchiver wires an archiver to a store.
// The collector is optional; pass nil to skip metrics.
func NewArchiver(store Store, logger *log.Logger, collector *metrics.Collector) *Archiver {
	return &Archiver{
		store:     store,
		logger:    logger,
		collector: collector,
		now:       time.Now,
	}
}

// Create packs dir and stores exactly one artifact for the run. An empty dir
// returns ErrEmptyOutput and stores nothing.
func (a *Archiver) Create(ctx context.Context, dir string, meta types.RunMeta) (*types.ArtifactMeta, error) {
	createdAt := a.now().UTC()
	name := ArtifactName(meta.RunID, createdAt)

	tmp, err := os.CreateTemp("", "bggsnap-archive-*.tar.gz")
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	res, err := pack(tmp, dir)
	if err != nil {
		return nil, err
	}

	if _, err := tmp.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	if err := a.store.Put(ctx, name, tmp, res.Bytes); err != nil {
		a.collector.IncStoreWriteFailure()
		return nil, err
	}
	a.collector.IncStoreWriteSuccess()
	a.collector.AddArchiveBytes(res.Bytes)

	artifact := &types.ArtifactMeta{
		Name:       name,
		RunID:      meta.RunID,
		Trigger:    meta.Trigger,
		CreatedAt:  createdAt,
		ExpiresAt:  createdAt.Add(types.RetentionPeriod),
		FileCount:  res.FileCount,
		TotalBytes: res.Bytes,
		URL:        a.store.URL(name),
	}

	a.logger.Info("stored artifact", map[string]any{
		"artifact": name,
		"files":    res.FileCount,
		"bytes":    res.Bytes,
		"url":      artifact.URL,
	})
	return artifact, nil
}

// List returns every stored artifact, newest first. Creation time comes from
// the artifact name; objects with foreign names are skipped.
func (a *Archiver) List(ctx context.Context) ([]types.ArtifactMeta, error) {
	objects, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}

	artifacts := make([]types.ArtifactMeta, 0, len(objects))
	for _, obj := range objects {
		createdAt, runID, err := ParseArtifactName(obj.Name)
		if err != nil {
			a.logger.Warn("skipping foreign object in artifact store", map[string]any{
				"name": obj.Name,
			})
			continue
		}
		artifacts = append(artifacts, types.ArtifactMeta{
			Name:       obj.Name,
			RunID:      runID,
			CreatedAt:  createdAt,
			ExpiresAt:  createdAt.Add(types.RetentionPeriod),
			TotalBytes: obj.Size,
			URL:        a.store.URL(obj.Name),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.After(artifacts[j].CreatedAt)
	})
	return artifacts, nil
}

// Prune deletes every artifact whose retention has lapsed as of now and
// returns the names it removed.
func (a *Archiver) Prune(ctx context.Context, now time.Time) ([]string, error) {
	artifacts, err := a.List(ctx)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, artifact := range artifacts {
		if !artifact.Expired(now) {
			continue
		}
		if err := a.store.Delete(ctx, artifact.Name); err != nil {
			return removed, err
		}
		removed = append(removed, artifact.Name)

		a.logger.Info("pruned expired artifact", map[string]any{
			"artifact": artifact.Name,
			"expired":  artifact.ExpiresAt,
		})
	}
	return removed, nil
}
