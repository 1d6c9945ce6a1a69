package geom

import (
	"math"
	"testing"

	"github.com/tidwall/geojson/geometry"
)

// square builds an axis-aligned square with the given origin and side.
func square(x, y, side float64) *Polygon {
	return NewPolygon([]geometry.Point{
		{X: x, Y: y},
		{X: x + side, Y: y},
		{X: x + side, Y: y + side},
		{X: x, Y: y + side},
		{X: x, Y: y},
	}, nil)
}

func TestArea(t *testing.T) {
	if got := square(0, 0, 10).Area(); math.Abs(got-100) > 1e-9 {
		t.Errorf("Area = %v, want 100", got)
	}
}

func TestAreaWithHole(t *testing.T) {
	p := NewPolygon([]geometry.Point{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0},
	}, [][]geometry.Point{{
		{X: 4, Y: 4}, {X: 6, Y: 4}, {X: 6, Y: 6}, {X: 4, Y: 6}, {X: 4, Y: 4},
	}})
	if got := p.Area(); math.Abs(got-96) > 1e-9 {
		t.Errorf("Area = %v, want 96", got)
	}
}

func TestRect(t *testing.T) {
	r := square(2, 3, 4).Rect()
	if r.Min.X != 2 || r.Min.Y != 3 || r.Max.X != 6 || r.Max.Y != 7 {
		t.Errorf("Rect = %+v", r)
	}
}

func TestBuffer(t *testing.T) {
	r := Buffer(square(0, 0, 10).Rect(), 0.5)
	if r.Min.X != -0.5 || r.Max.Y != 10.5 {
		t.Errorf("buffered rect = %+v", r)
	}
	same := Buffer(square(0, 0, 10).Rect(), 0)
	if same != square(0, 0, 10).Rect() {
		t.Errorf("zero eps should be a no-op, got %+v", same)
	}
}

func TestPredicates(t *testing.T) {
	outer := square(0, 0, 10)
	inner := square(4, 4, 2)
	straddler := square(8, 4, 4)
	far := square(100, 100, 2)

	if !inner.Within(outer) {
		t.Error("inner should be within outer")
	}
	if !outer.Contains(inner) {
		t.Error("outer should contain inner")
	}
	if !straddler.Intersects(outer) {
		t.Error("straddler should intersect outer")
	}
	if straddler.Within(outer) {
		t.Error("straddler should not be within outer")
	}
	if far.Intersects(outer) {
		t.Error("far square should not intersect outer")
	}
}

func TestPreparedPredicatesAgree(t *testing.T) {
	outer := square(0, 0, 10)
	inner := square(4, 4, 2)
	prep := inner.Prepared()

	if prep.Within(outer) != inner.Within(outer) {
		t.Error("prepared Within disagrees with plain Within")
	}
	if prep.Intersects(outer) != inner.Intersects(outer) {
		t.Error("prepared Intersects disagrees with plain Intersects")
	}
	if prep.Area() != inner.Area() {
		t.Error("preparing changed the area")
	}
	if prep.Prepared() != prep {
		t.Error("re-preparing should return the same polygon")
	}
}

func TestContainsPoint(t *testing.T) {
	p := square(0, 0, 10)
	if !p.ContainsPoint(geometry.Point{X: 5, Y: 5}) {
		t.Error("center point should be contained")
	}
	if p.ContainsPoint(geometry.Point{X: 15, Y: 5}) {
		t.Error("outside point should not be contained")
	}
}

func TestOverlapArea(t *testing.T) {
	a := square(0, 0, 10).Rect()
	b := square(5, 5, 10).Rect()
	if got := OverlapArea(a, b); math.Abs(got-25) > 1e-9 {
		t.Errorf("OverlapArea = %v, want 25", got)
	}
	c := square(100, 100, 10).Rect()
	if got := OverlapArea(a, c); got != 0 {
		t.Errorf("disjoint OverlapArea = %v, want 0", got)
	}
}
