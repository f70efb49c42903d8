package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("github:NixOS/nixpkgs", "run-001")

	c.IncFinderEventsReceived()
	c.IncFinderEventsReceived()
	c.IncFinderMalformedTrace()
	c.IncDerivationsFound()
	c.IncDerivationsDescribed()
	c.IncDerivationsDescribed()
	c.IncDerivationsEmitted()
	c.IncDerivationsSkipped()
	c.IncDescriberFailures()
	c.IncOutputPathsDeduped()
	c.IncOutputPathsDeduped()
	c.IncOutputPathsDeduped()
	c.IncSinkWriteFailures()

	s := c.Snapshot()

	if s.FinderEventsReceived != 2 {
		t.Errorf("FinderEventsReceived = %d, want 2", s.FinderEventsReceived)
	}
	if s.FinderMalformedTrace != 1 {
		t.Errorf("FinderMalformedTrace = %d, want 1", s.FinderMalformedTrace)
	}
	if s.DerivationsFound != 1 {
		t.Errorf("DerivationsFound = %d, want 1", s.DerivationsFound)
	}
	if s.DerivationsDescribed != 2 {
		t.Errorf("DerivationsDescribed = %d, want 2", s.DerivationsDescribed)
	}
	if s.DerivationsEmitted != 1 {
		t.Errorf("DerivationsEmitted = %d, want 1", s.DerivationsEmitted)
	}
	if s.DerivationsSkipped != 1 {
		t.Errorf("DerivationsSkipped = %d, want 1", s.DerivationsSkipped)
	}
	if s.DescriberFailures != 1 {
		t.Errorf("DescriberFailures = %d, want 1", s.DescriberFailures)
	}
	if s.OutputPathsDeduped != 3 {
		t.Errorf("OutputPathsDeduped = %d, want 3", s.OutputPathsDeduped)
	}
	if s.SinkWriteFailures != 1 {
		t.Errorf("SinkWriteFailures = %d, want 1", s.SinkWriteFailures)
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("github:NixOS/nixpkgs", "run-42")
	s := c.Snapshot()

	if s.FlakeRef != "github:NixOS/nixpkgs" {
		t.Errorf("FlakeRef = %q, want %q", s.FlakeRef, "github:NixOS/nixpkgs")
	}
	if s.ExtractionID != "run-42" {
		t.Errorf("ExtractionID = %q, want %q", s.ExtractionID, "run-42")
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("flake", "run-001")
	c.IncDerivationsFound()

	s1 := c.Snapshot()

	c.IncDerivationsFound()
	c.IncDerivationsFound()

	if s1.DerivationsFound != 1 {
		t.Errorf("s1.DerivationsFound = %d, want 1 (snapshot should be frozen)", s1.DerivationsFound)
	}

	s2 := c.Snapshot()
	if s2.DerivationsFound != 3 {
		t.Errorf("s2.DerivationsFound = %d, want 3", s2.DerivationsFound)
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	c.IncFinderEventsReceived()
	c.IncFinderMalformedTrace()
	c.IncDerivationsFound()
	c.IncDerivationsDescribed()
	c.IncDerivationsEmitted()
	c.IncDerivationsSkipped()
	c.IncDescriberFailures()
	c.IncOutputPathsDeduped()
	c.IncSinkWriteFailures()

	s := c.Snapshot()
	if s.DerivationsFound != 0 {
		t.Errorf("nil collector snapshot DerivationsFound = %d, want 0", s.DerivationsFound)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("flake", "run-001")
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.IncDerivationsFound()
				c.IncDerivationsEmitted()
				c.IncOutputPathsDeduped()
			}
		}()
	}

	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)

	if s.DerivationsFound != want {
		t.Errorf("DerivationsFound = %d, want %d", s.DerivationsFound, want)
	}
	if s.DerivationsEmitted != want {
		t.Errorf("DerivationsEmitted = %d, want %d", s.DerivationsEmitted, want)
	}
	if s.OutputPathsDeduped != want {
		t.Errorf("OutputPathsDeduped = %d, want %d", s.OutputPathsDeduped, want)
	}
}

func TestCollector_ZeroValueSnapshot(t *testing.T) {
	c := NewCollector("flake", "run-001")
	s := c.Snapshot()

	if s.FinderEventsReceived != 0 || s.DerivationsFound != 0 || s.DerivationsDescribed != 0 {
		t.Error("fresh collector should have zero counters")
	}
	if s.DerivationsEmitted != 0 || s.DerivationsSkipped != 0 || s.DescriberFailures != 0 {
		t.Error("fresh collector should have zero describer counters")
	}
	if s.OutputPathsDeduped != 0 || s.SinkWriteFailures != 0 {
		t.Error("fresh collector should have zero dedup/sink counters")
	}
}
