package routing

import (
	"math"
	"testing"
	"time"

	"github.com/mbenedetti/percorsi/internal/core/domain"
)

func TestCollector_SequencePolicy(t *testing.T) {
	c := newCollector(PolicySequence, 0)

	c.add(domain.Path{1, 2, 3})
	c.add(domain.Path{1, 3, 2}) // same set, different order: kept
	c.add(domain.Path{1, 2, 3}) // exact duplicate: dropped

	if c.set.Len() != 2 {
		t.Fatalf("expected 2 distinct sequences, got %d", c.set.Len())
	}
	first := c.set.Paths()[0]
	if first[1] != 2 {
		t.Errorf("first-seen order not preserved: %v", first)
	}
}

func TestCollector_NodeSetPolicy(t *testing.T) {
	c := newCollector(PolicyNodeSet, 0)

	c.add(domain.Path{1, 2, 3})
	c.add(domain.Path{1, 3, 2}) // same node set: dropped
	c.add(domain.Path{1, 2, 4})

	if c.set.Len() != 2 {
		t.Fatalf("expected 2 distinct node sets, got %d", c.set.Len())
	}
	first := c.set.Paths()[0]
	if first[1] != 2 || first[2] != 3 {
		t.Errorf("first-seen representative not preserved: %v", first)
	}
}

func TestCollector_LimitStopsCollection(t *testing.T) {
	c := newCollector(PolicySequence, 2)

	if !c.add(domain.Path{1, 2}) {
		t.Fatal("first add should allow more")
	}
	if c.add(domain.Path{1, 3}) {
		t.Fatal("second add reaches the limit and must stop the search")
	}
	if c.add(domain.Path{1, 4}) {
		t.Fatal("a full collector must keep refusing")
	}
	if c.set.Len() != 2 {
		t.Fatalf("expected 2 routes, got %d", c.set.Len())
	}
}

func TestCollector_DuplicateDoesNotStopSearch(t *testing.T) {
	c := newCollector(PolicySequence, 2)
	c.add(domain.Path{1, 2})
	if !c.add(domain.Path{1, 2}) {
		t.Fatal("a dropped duplicate must not stop the search")
	}
}

func TestTracker_ZeroCompletedHasNoEstimate(t *testing.T) {
	tr := newTracker(10)
	if eta := tr.snapshot(0).ETASeconds; eta != 0 {
		t.Errorf("expected 0 ETA with nothing completed, got %f", eta)
	}
}

func TestTracker_EstimateScalesWithRemaining(t *testing.T) {
	tr := &tracker{start: time.Now().Add(-10 * time.Second), total: 4}

	snap := tr.snapshot(2)
	// 10s over 2 units leaves 2 units at ~5s each.
	if math.Abs(snap.ETASeconds-10) > 0.5 {
		t.Errorf("expected ~10s remaining, got %f", snap.ETASeconds)
	}

	done := tr.snapshot(4)
	if done.ETASeconds != 0 {
		t.Errorf("expected 0 remaining when complete, got %f", done.ETASeconds)
	}
}

func TestCollapseDuplicates_Idempotent(t *testing.T) {
	pts := []domain.GeoPoint{
		{Lat: 1, Lon: 1},
		{Lat: 1, Lon: 1},
		{Lat: 2, Lon: 2},
		{Lat: 2, Lon: 2},
		{Lat: 1, Lon: 1}, // non-consecutive repeat stays
	}

	clean := collapseDuplicates(pts)
	if len(clean) != 3 {
		t.Fatalf("expected 3 points, got %d: %v", len(clean), clean)
	}

	again := collapseDuplicates(append([]domain.GeoPoint(nil), clean...))
	if len(again) != len(clean) {
		t.Fatalf("collapse is not idempotent: %d then %d", len(clean), len(again))
	}
	for i := range clean {
		if again[i] != clean[i] {
			t.Errorf("point %d changed on second pass", i)
		}
	}
}

func TestCollapseDuplicates_Empty(t *testing.T) {
	if got := collapseDuplicates(nil); len(got) != 0 {
		t.Errorf("expected empty output, got %v", got)
	}
}
