package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bggsnap/bggsnap/bgg"
	"github.com/bggsnap/bggsnap/log"
	"github.com/bggsnap/bggsnap/metrics"
)

// scriptedAPI serves canned responses keyed by exact query path and records
// the order of requests.
type scriptedAPI struct {
	responses map[string]string
	requests  []string
}

func (s *scriptedAPI) Get(_ context.Context, queryPath string) ([]byte, error) {
	s.requests = append(s.requests, queryPath)
	body, ok := s.responses[queryPath]
	if !ok {
		return nil, fmt.Errorf("unscripted query %q", queryPath)
	}
	return []byte(body), nil
}

func collectionXML(ids ...int) string {
	var b strings.Builder
	b.WriteString(`<items totalitems="` + fmt.Sprint(len(ids)) + `">`)
	for _, id := range ids {
		fmt.Fprintf(&b, `<item objectid="%d"/>`, id)
	}
	b.WriteString(`</items>`)
	return b.String()
}

// fullAPI scripts a complete happy-path download: a profile, three collection
// subtypes holding 22 items total (two thing batches), and two pages of plays.
func fullAPI(username string) *scriptedAPI {
	bigIDs := make([]int, 20)
	for i := range bigIDs {
		bigIDs[i] = 100 + i
	}

	api := &scriptedAPI{responses: map[string]string{
		bgg.UserQuery(username):                             `<user id="1" name="` + username + `"/>`,
		bgg.CollectionQuery(username, "boardgame"):          collectionXML(bigIDs...),
		bgg.CollectionQuery(username, "boardgameexpansion"): collectionXML(822),
		bgg.CollectionQuery(username, "boardgameaccessory"): collectionXML(22510),
		bgg.ThingQuery(bigIDs):                              `<items><item id="100"/></items>`,
		bgg.ThingQuery([]int{822, 22510}):                   `<items><item id="822"/></items>`,
		bgg.PlaysQuery(username, 1):                         `<plays total="1"><play id="1"/></plays>`,
		bgg.PlaysQuery(username, 2):                         `<plays total="1"></plays>`,
	}}
	return api
}

func newTestDownloader(api API) *Downloader {
	d := New(api, "someone", log.NewNopLogger(), metrics.NewCollector("run-1", "manual", "fs"))
	d.now = func() time.Time {
		return time.Date(2026, 8, 25, 12, 30, 0, 500000000, time.UTC)
	}
	return d
}

func TestFetch_WritesAllFiles(t *testing.T) {
	api := fullAPI("someone")
	d := newTestDownloader(api)

	dir := t.TempDir()
	if err := d.Fetch(t.Context(), dir); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	wantFiles := []string{
		"user/profile.xml",
		"collection/boardgame.xml",
		"collection/boardgameexpansion.xml",
		"collection/boardgameaccessory.xml",
		"thing/batch_1.xml",
		"thing/batch_2.xml",
		"plays/page_1.xml",
		"timestamp.txt",
	}
	for _, rel := range wantFiles {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}

	// The empty final plays page is probed but never written.
	if _, err := os.Stat(filepath.Join(dir, "plays", "page_2.xml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("empty plays page should not be written, stat err = %v", err)
	}
}

func TestFetch_DownloadOrder(t *testing.T) {
	api := fullAPI("someone")
	d := newTestDownloader(api)

	if err := d.Fetch(t.Context(), t.TempDir()); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	wantPrefixes := []string{
		"/user?",
		"/collection?",
		"/collection?",
		"/collection?",
		"/thing?",
		"/thing?",
		"/plays?page=1",
		"/plays?page=2",
	}
	if len(api.requests) != len(wantPrefixes) {
		t.Fatalf("expected %d requests, got %d: %v", len(wantPrefixes), len(api.requests), api.requests)
	}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(api.requests[i], prefix) {
			t.Errorf("request %d: expected prefix %q, got %q", i, prefix, api.requests[i])
		}
	}
}

func TestFetch_Timestamp(t *testing.T) {
	api := fullAPI("someone")
	d := newTestDownloader(api)

	dir := t.TempDir()
	if err := d.Fetch(t.Context(), dir); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "timestamp.txt"))
	if err != nil {
		t.Fatalf("read timestamp: %v", err)
	}
	if got, want := string(data), "2026-08-25T12:30:00.5Z\n"; got != want {
		t.Errorf("timestamp = %q, want %q", got, want)
	}
}

func TestFetch_AbortsOnUnexpectedRoot(t *testing.T) {
	api := fullAPI("someone")
	api.responses[bgg.UserQuery("someone")] = `<html><body>error</body></html>`
	d := newTestDownloader(api)

	dir := t.TempDir()
	err := d.Fetch(t.Context(), dir)
	if err == nil {
		t.Fatal("expected error for unexpected root tag")
	}
	if !strings.Contains(err.Error(), "unexpected root tag") {
		t.Errorf("unexpected error: %v", err)
	}

	// Nothing past the failing step is requested or written.
	if len(api.requests) != 1 {
		t.Errorf("expected download to stop after the first request, got %v", api.requests)
	}
	if _, err := os.Stat(filepath.Join(dir, "user", "profile.xml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("failed response should not be written, stat err = %v", err)
	}
}

func TestFetch_PropagatesAPIError(t *testing.T) {
	api := fullAPI("someone")
	delete(api.responses, bgg.PlaysQuery("someone", 1))
	d := newTestDownloader(api)

	err := d.Fetch(t.Context(), t.TempDir())
	if err == nil {
		t.Fatal("expected error when plays request fails")
	}
	if !strings.Contains(err.Error(), "plays page 1") {
		t.Errorf("error should name the failing step, got %v", err)
	}
}

func TestFetch_NoItemsSkipsThings(t *testing.T) {
	api := fullAPI("someone")
	for _, subtype := range bgg.CollectionSubtypes {
		api.responses[bgg.CollectionQuery("someone", subtype)] = collectionXML()
	}
	d := newTestDownloader(api)

	dir := t.TempDir()
	if err := d.Fetch(t.Context(), dir); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	for _, req := range api.requests {
		if strings.HasPrefix(req, "/thing?") {
			t.Errorf("no thing request expected for an empty collection, got %q", req)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "thing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("thing directory should not exist, stat err = %v", err)
	}
}
