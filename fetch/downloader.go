// Package fetch implements the download collaborator: it retrieves a user's
// raw BGG API responses and writes them as XML files under the output
// directory. The pipeline depends on it only through the Fetcher contract
// ("produce files under path P; signal success/failure").
package fetch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bggsnap/bggsnap/bgg"
	"github.com/bggsnap/bggsnap/iox"
	"github.com/bggsnap/bggsnap/log"
	"github.com/bggsnap/bggsnap/metrics"
)

// API abstracts the BGG client for test injection.
type API interface {
	// Get fetches a query path and returns the raw response body.
	Get(ctx context.Context, queryPath string) ([]byte, error)
}

// Downloader retrieves a user's profile, collection, things, and plays,
// writing each raw response into the output directory.
type Downloader struct {
	api       API
	username  string
	logger    *log.Logger
	collector *metrics.Collector

	// now is injectable for timestamp tests.
	now func() time.Time
}

// New creates a downloader for the given user.
// The collector is optional; pass nil to skip metrics.
func New(api API, username string, logger *log.Logger, collector *metrics.Collector) *Downloader {
	return &Downloader{
		api:       api,
		username:  username,
		logger:    logger,
		collector: collector,
		now:       time.Now,
	}
}

// Fetch downloads everything into dir.
//
// Download order:
//  1. User profile (including buddies and guilds).
//  2. Collection, one file per subtype; item IDs are collected here.
//  3. Things for every collection item, in batches.
//  4. Logged plays, one file per page, until an empty page.
//  5. timestamp.txt recording when the download finished.
func (d *Downloader) Fetch(ctx context.Context, dir string) error {
	if err := d.fetchUser(ctx, dir); err != nil {
		return err
	}

	itemIDs, err := d.fetchCollection(ctx, dir)
	if err != nil {
		return err
	}

	if err := d.fetchThings(ctx, dir, itemIDs); err != nil {
		return err
	}

	if err := d.fetchPlays(ctx, dir); err != nil {
		return err
	}

	return d.writeTimestamp(dir)
}

// fetchOne retrieves a single query, validates the root tag, and writes the
// raw response to path.
func (d *Downloader) fetchOne(ctx context.Context, queryPath, rootTag, path string) ([]byte, error) {
	data, err := d.api.Get(ctx, queryPath)
	if err != nil {
		return nil, err
	}

	if err := bgg.InspectRoot(data, rootTag); err != nil {
		return nil, fmt.Errorf("%s: %w", queryPath, err)
	}

	if err := iox.WriteFileAtomic(path, data, 0o644); err != nil {
		return nil, err
	}

	d.collector.AddFilesFetched(1)
	return data, nil
}

func (d *Downloader) fetchUser(ctx context.Context, dir string) error {
	d.logger.Info("downloading user profile", map[string]any{"user": d.username})

	path := filepath.Join(dir, "user", "profile.xml")
	if _, err := d.fetchOne(ctx, bgg.UserQuery(d.username), bgg.RootTagUser, path); err != nil {
		return fmt.Errorf("user profile: %w", err)
	}

	d.logger.Info("saved user profile", map[string]any{"path": path})
	return nil
}

// fetchCollection downloads every collection subtype and returns the object
// IDs of all items across subtypes, in download order.
func (d *Downloader) fetchCollection(ctx context.Context, dir string) ([]int, error) {
	d.logger.Info("downloading collection", nil)

	var itemIDs []int
	for _, subtype := range bgg.CollectionSubtypes {
		path := filepath.Join(dir, "collection", subtype+".xml")
		data, err := d.fetchOne(ctx, bgg.CollectionQuery(d.username, subtype), bgg.RootTagItems, path)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", subtype, err)
		}

		ids, err := bgg.ParseItemIDs(data)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", subtype, err)
		}
		itemIDs = append(itemIDs, ids...)

		d.logger.Info("saved collection subtype", map[string]any{
			"subtype": subtype,
			"items":   len(ids),
			"path":    path,
		})
	}

	return itemIDs, nil
}

func (d *Downloader) fetchThings(ctx context.Context, dir string, itemIDs []int) error {
	batches := bgg.Batches(itemIDs, bgg.ThingBatchSize)
	d.logger.Info("downloading things", map[string]any{
		"things":  len(itemIDs),
		"batches": len(batches),
	})

	for i, batch := range batches {
		batchNum := i + 1
		path := filepath.Join(dir, "thing", fmt.Sprintf("batch_%d.xml", batchNum))
		if _, err := d.fetchOne(ctx, bgg.ThingQuery(batch), bgg.RootTagItems, path); err != nil {
			return fmt.Errorf("thing batch %d: %w", batchNum, err)
		}

		d.logger.Info("saved thing batch", map[string]any{
			"batch": batchNum,
			"of":    len(batches),
			"path":  path,
		})
	}

	return nil
}

// fetchPlays downloads plays page by page until a page holds no plays.
// Pages hold up to 100 plays; the empty page itself is not written.
func (d *Downloader) fetchPlays(ctx context.Context, dir string) error {
	d.logger.Info("downloading plays", nil)

	for page := 1; ; page++ {
		data, err := d.api.Get(ctx, bgg.PlaysQuery(d.username, page))
		if err != nil {
			return fmt.Errorf("plays page %d: %w", page, err)
		}

		if err := bgg.InspectRoot(data, bgg.RootTagPlays); err != nil {
			return fmt.Errorf("plays page %d: %w", page, err)
		}

		hasPlays, err := bgg.HasPlays(data)
		if err != nil {
			return fmt.Errorf("plays page %d: %w", page, err)
		}
		if !hasPlays {
			d.logger.Debug("end of logged plays", map[string]any{"page": page})
			return nil
		}

		path := filepath.Join(dir, "plays", fmt.Sprintf("page_%d.xml", page))
		if err := iox.WriteFileAtomic(path, data, 0o644); err != nil {
			return fmt.Errorf("plays page %d: %w", page, err)
		}
		d.collector.AddFilesFetched(1)

		d.logger.Info("saved plays page", map[string]any{"page": page, "path": path})
	}
}

// writeTimestamp records the download completion time as an ISO 8601 UTC
// timestamp with a trailing newline, overwriting any previous value.
func (d *Downloader) writeTimestamp(dir string) error {
	path := filepath.Join(dir, "timestamp.txt")
	ts := d.now().UTC().Format("2006-01-02T15:04:05.999999Z07:00")

	if err := iox.WriteFileAtomic(path, []byte(ts+"\n"), 0o644); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	d.collector.AddFilesFetched(1)

	d.logger.Info("saved timestamp", map[string]any{"path": path, "ts": ts})
	return nil
}
