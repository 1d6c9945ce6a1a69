package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/tidwall/geojson/geometry"

	"github.com/cbusmaps/agemap/pkg/geom"
	"github.com/cbusmaps/agemap/pkg/spatial"
)

func newDeduper(t *testing.T, dated []*geom.Polygon) *Deduper {
	t.Helper()
	index, err := spatial.Build(dated)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return NewDeduper(dated, index, 0, zerolog.Nop())
}

func TestDiscardIdenticalShape(t *testing.T) {
	// U1 identical in shape and position to dated D1.
	d := newDeduper(t, []*geom.Polygon{square(0, 0, 10)})
	if !d.ShouldDiscard(square(0, 0, 10)) {
		t.Error("identical undated shape should be discarded")
	}
}

func TestKeepDisjointShape(t *testing.T) {
	d := newDeduper(t, []*geom.Polygon{square(0, 0, 10)})
	if d.ShouldDiscard(square(50, 50, 10)) {
		t.Error("disjoint undated shape should be kept")
	}
}

func TestKeepOnEmptyDatedIndex(t *testing.T) {
	d := newDeduper(t, nil)
	if d.ShouldDiscard(square(0, 0, 10)) {
		t.Error("empty dated index should keep everything")
	}
}

func TestDiscardOnAnyIntersection(t *testing.T) {
	d := newDeduper(t, []*geom.Polygon{
		square(100, 100, 10),
		square(0, 0, 10),
	})
	// Overlaps only the second dated shape.
	if !d.ShouldDiscard(square(8, 8, 4)) {
		t.Error("partially overlapping undated shape should be discarded")
	}
}

func TestKeepOnPredicatePanic(t *testing.T) {
	// A nil dated shape panics the predicate; the decision must fall back
	// to keeping the footprint.
	index, err := spatial.BuildRects([]geometry.Rect{square(0, 0, 10).Rect()})
	if err != nil {
		t.Fatalf("BuildRects failed: %v", err)
	}
	d := NewDeduper([]*geom.Polygon{nil}, index, 0, zerolog.Nop())
	if d.ShouldDiscard(square(2, 2, 2)) {
		t.Error("predicate panic should keep the footprint")
	}
}
