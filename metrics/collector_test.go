package metrics

import (
	"sync"
	"testing"
)

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	// None of these may panic on a nil receiver.
	c.IncRunStarted()
	c.IncRunSucceeded()
	c.IncRunFailed("lint")
	c.IncAPIRequest()
	c.IncAPIRetry()
	c.AddFilesFetched(3)
	c.AddArchiveBytes(1024)
	c.IncStoreWriteSuccess()
	c.IncStoreWriteFailure()

	snap := c.Snapshot()
	if snap.RunsStarted != 0 {
		t.Errorf("nil collector snapshot should be zero, got %+v", snap)
	}
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("run-001", "schedule", "fs")

	c.IncRunStarted()
	c.IncRunFailed("test")
	c.IncRunFailed("test")
	c.IncRunFailed("download")
	c.IncAPIRequest()
	c.IncAPIRequest()
	c.IncAPIRetry()
	c.AddFilesFetched(7)
	c.AddArchiveBytes(4096)
	c.IncStoreWriteSuccess()

	snap := c.Snapshot()
	if snap.RunsStarted != 1 {
		t.Errorf("runs started: got %d", snap.RunsStarted)
	}
	if snap.RunsFailed != 3 {
		t.Errorf("runs failed: got %d", snap.RunsFailed)
	}
	if snap.PhaseFailures["test"] != 2 {
		t.Errorf("test phase failures: got %d", snap.PhaseFailures["test"])
	}
	if snap.PhaseFailures["download"] != 1 {
		t.Errorf("download phase failures: got %d", snap.PhaseFailures["download"])
	}
	if snap.APIRequests != 2 || snap.APIRetries != 1 {
		t.Errorf("api counters: got %d/%d", snap.APIRequests, snap.APIRetries)
	}
	if snap.FilesFetched != 7 {
		t.Errorf("files fetched: got %d", snap.FilesFetched)
	}
	if snap.ArchiveBytes != 4096 {
		t.Errorf("archive bytes: got %d", snap.ArchiveBytes)
	}
	if snap.RunID != "run-001" || snap.Trigger != "schedule" || snap.Backend != "fs" {
		t.Errorf("dimensions: got %s/%s/%s", snap.RunID, snap.Trigger, snap.Backend)
	}
}

func TestCollector_SnapshotIsolation(t *testing.T) {
	c := NewCollector("run-001", "manual", "fs")
	c.IncRunFailed("lint")

	snap := c.Snapshot()
	c.IncRunFailed("lint")

	if snap.PhaseFailures["lint"] != 1 {
		t.Errorf("snapshot mutated after creation: got %d", snap.PhaseFailures["lint"])
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector("run-001", "manual", "fs")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncAPIRequest()
			c.AddFilesFetched(1)
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	if snap.APIRequests != 50 {
		t.Errorf("expected 50 api requests, got %d", snap.APIRequests)
	}
	if snap.FilesFetched != 50 {
		t.Errorf("expected 50 files fetched, got %d", snap.FilesFetched)
	}
}
