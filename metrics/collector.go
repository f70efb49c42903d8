// Package metrics provides per-run counters for one extraction: a leaf
// package with no internal dependencies, nil-receiver-safe increments,
// and an immutable Snapshot that the extract command reports at the end
// of a run.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters. Returned
// by Collector.Snapshot. Safe to read concurrently after creation.
type Snapshot struct {
	// Finder
	FinderEventsReceived int64
	FinderMalformedTrace int64
	DerivationsFound     int64

	// Describer workers
	DerivationsDescribed int64
	DerivationsEmitted   int64
	DerivationsSkipped   int64
	DescriberFailures    int64

	// Dedup
	OutputPathsDeduped int64

	// Sink
	SinkWriteFailures int64

	// Dimensions (informational, set at construction)
	FlakeRef     string
	ExtractionID string
}

// Collector accumulates counters during a single extraction run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver
// safe so a coordinator built without metrics enabled can pass a nil
// *Collector through unconditionally.
type Collector struct {
	mu sync.Mutex

	finderEventsReceived int64
	finderMalformedTrace int64
	derivationsFound     int64

	derivationsDescribed int64
	derivationsEmitted   int64
	derivationsSkipped   int64
	describerFailures    int64

	outputPathsDeduped int64

	sinkWriteFailures int64

	flakeRef     string
	extractionID string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(flakeRef, extractionID string) *Collector {
	return &Collector{flakeRef: flakeRef, extractionID: extractionID}
}

// IncFinderEventsReceived records one parsed "trace:" event line.
func (c *Collector) IncFinderEventsReceived() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.finderEventsReceived++
	c.mu.Unlock()
}

// IncFinderMalformedTrace records a "trace:" line that failed to parse
// or was missing required fields.
func (c *Collector) IncFinderMalformedTrace() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.finderMalformedTrace++
	c.mu.Unlock()
}

// IncDerivationsFound records one freshly discovered (attribute path,
// output path) pair pushed onto the work queue by the finder reader.
func (c *Collector) IncDerivationsFound() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.derivationsFound++
	c.mu.Unlock()
}

// IncDerivationsDescribed records one completed describer invocation,
// regardless of outcome.
func (c *Collector) IncDerivationsDescribed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.derivationsDescribed++
	c.mu.Unlock()
}

// IncDerivationsEmitted records one record written to the sink.
func (c *Collector) IncDerivationsEmitted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.derivationsEmitted++
	c.mu.Unlock()
}

// IncDerivationsSkipped records a describer call that produced no
// record (empty stdout).
func (c *Collector) IncDerivationsSkipped() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.derivationsSkipped++
	c.mu.Unlock()
}

// IncDescriberFailures records a describer call whose stdout failed to
// parse as a Record.
func (c *Collector) IncDescriberFailures() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.describerFailures++
	c.mu.Unlock()
}

// IncOutputPathsDeduped records a build-input edge or finder event whose
// output path was already present in queued_output_paths.
func (c *Collector) IncOutputPathsDeduped() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.outputPathsDeduped++
	c.mu.Unlock()
}

// IncSinkWriteFailures records a fatal sink write failure.
func (c *Collector) IncSinkWriteFailures() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sinkWriteFailures++
	c.mu.Unlock()
}

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		FinderEventsReceived: c.finderEventsReceived,
		FinderMalformedTrace: c.finderMalformedTrace,
		DerivationsFound:     c.derivationsFound,

		DerivationsDescribed: c.derivationsDescribed,
		DerivationsEmitted:   c.derivationsEmitted,
		DerivationsSkipped:   c.derivationsSkipped,
		DescriberFailures:    c.describerFailures,

		OutputPathsDeduped: c.outputPathsDeduped,

		SinkWriteFailures: c.sinkWriteFailures,

		FlakeRef:     c.flakeRef,
		ExtractionID: c.extractionID,
	}
}
