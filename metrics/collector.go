// Package metrics provides per-run metrics collection.
//
// The Collector accumulates counters during a single run. It is a leaf
// package with no internal dependencies. All increment methods are
// nil-receiver safe so callers can run without a collector wired in.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all run metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Run lifecycle
	RunsStarted   int64 `json:"runs_started"`
	RunsSucceeded int64 `json:"runs_succeeded"`
	RunsFailed    int64 `json:"runs_failed"`

	// Phase failures, keyed by phase name
	PhaseFailures map[string]int64 `json:"phase_failures"`

	// API client
	APIRequests int64 `json:"api_requests"`
	APIRetries  int64 `json:"api_retries"`

	// Download output
	FilesFetched int64 `json:"files_fetched"`

	// Archive / storage
	ArchiveBytes      int64 `json:"archive_bytes"`
	StoreWriteSuccess int64 `json:"store_write_success"`
	StoreWriteFailure int64 `json:"store_write_failure"`

	// Dimensions (informational, set at construction)
	RunID   string `json:"run_id"`
	Trigger string `json:"trigger"`
	Backend string `json:"backend"`
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	runsStarted   int64
	runsSucceeded int64
	runsFailed    int64

	phaseFailures map[string]int64

	apiRequests int64
	apiRetries  int64

	filesFetched int64

	archiveBytes      int64
	storeWriteSuccess int64
	storeWriteFailure int64

	runID   string
	trigger string
	backend string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(runID, trigger, backend string) *Collector {
	return &Collector{
		phaseFailures: make(map[string]int64),
		runID:         runID,
		trigger:       trigger,
		backend:       backend,
	}
}

// IncRunStarted records a run start.
func (c *Collector) IncRunStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsStarted++
	c.mu.Unlock()
}

// IncRunSucceeded records a successful run completion.
func (c *Collector) IncRunSucceeded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsSucceeded++
	c.mu.Unlock()
}

// IncRunFailed records a run failure at the named phase.
func (c *Collector) IncRunFailed(phase string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsFailed++
	c.phaseFailures[phase]++
	c.mu.Unlock()
}

// IncAPIRequest records one HTTP request to the upstream API.
func (c *Collector) IncAPIRequest() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.apiRequests++
	c.mu.Unlock()
}

// IncAPIRetry records one retried HTTP request.
func (c *Collector) IncAPIRetry() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.apiRetries++
	c.mu.Unlock()
}

// AddFilesFetched records n files written by the download phase.
func (c *Collector) AddFilesFetched(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.filesFetched += n
	c.mu.Unlock()
}

// AddArchiveBytes records the uncompressed byte count of an archive.
func (c *Collector) AddArchiveBytes(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.archiveBytes += n
	c.mu.Unlock()
}

// IncStoreWriteSuccess records a successful artifact store write (per-call).
func (c *Collector) IncStoreWriteSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.storeWriteSuccess++
	c.mu.Unlock()
}

// IncStoreWriteFailure records a failed artifact store write (per-call).
func (c *Collector) IncStoreWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.storeWriteFailure++
	c.mu.Unlock()
}

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	failures := make(map[string]int64, len(c.phaseFailures))
	for k, v := range c.phaseFailures {
		failures[k] = v
	}

	return Snapshot{
		RunsStarted:   c.runsStarted,
		RunsSucceeded: c.runsSucceeded,
		RunsFailed:    c.runsFailed,

		PhaseFailures: failures,

		APIRequests: c.apiRequests,
		APIRetries:  c.apiRetries,

		FilesFetched: c.filesFetched,

		ArchiveBytes:      c.archiveBytes,
		StoreWriteSuccess: c.storeWriteSuccess,
		StoreWriteFailure: c.storeWriteFailure,

		RunID:   c.runID,
		Trigger: c.trigger,
		Backend: c.backend,
	}
}
