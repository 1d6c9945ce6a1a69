// Package geom provides the immutable polygon value used throughout the
// matching pipeline. It wraps tidwall/geojson/geometry polygons and exposes
// exactly the operations the engines need: bounding box, area, buffered
// bounding box, binary predicates, and a prepared (segment-indexed) variant
// for repeated predicate evaluation.
package geom

import (
	"math"

	"github.com/tidwall/geojson/geometry"
)

// Polygon is an immutable 2-D polygon: one exterior ring and zero or more
// interior holes, in lon/lat working coordinates.
type Polygon struct {
	poly     *geometry.Poly
	prepared bool
}

// preparedIndexOptions enables the quadtree segment index on a ring, which
// makes repeated Contains/Intersects tests against many other polygons much
// cheaper. MinPoints 16 indexes even small rings since prepared polygons are
// always evaluated against many candidates.
var preparedIndexOptions = &geometry.IndexOptions{
	Kind:      geometry.QuadTree,
	MinPoints: 16,
}

// noIndexOptions builds a plain ring with no acceleration structure.
var noIndexOptions = &geometry.IndexOptions{Kind: geometry.None}

// NewPolygon constructs a polygon from an exterior ring and optional holes.
// Rings do not need to be explicitly closed.
func NewPolygon(exterior []geometry.Point, holes [][]geometry.Point) *Polygon {
	return &Polygon{poly: geometry.NewPoly(exterior, holes, noIndexOptions)}
}

// FromPoly wraps an already-parsed geometry.Poly.
func FromPoly(poly *geometry.Poly) *Polygon {
	return &Polygon{poly: poly}
}

// Base returns the underlying geometry.Poly. Callers must not mutate it.
func (p *Polygon) Base() *geometry.Poly {
	return p.poly
}

// Empty reports whether the polygon has no usable geometry.
func (p *Polygon) Empty() bool {
	return p == nil || p.poly == nil || p.poly.Empty()
}

// Rect returns the axis-aligned bounding box.
func (p *Polygon) Rect() geometry.Rect {
	return p.poly.Rect()
}

// Prepared returns a variant of p carrying a quadtree segment index.
// The receiver is not modified; preparing an already-prepared polygon
// returns it unchanged.
func (p *Polygon) Prepared() *Polygon {
	if p.prepared {
		return p
	}
	exterior, holes := p.rings()
	return &Polygon{
		poly:     geometry.NewPoly(exterior, holes, preparedIndexOptions),
		prepared: true,
	}
}

// rings copies the ring coordinates out of the underlying poly.
func (p *Polygon) rings() ([]geometry.Point, [][]geometry.Point) {
	exterior := seriesPoints(p.poly.Exterior)
	var holes [][]geometry.Point
	if len(p.poly.Holes) > 0 {
		holes = make([][]geometry.Point, len(p.poly.Holes))
		for i, h := range p.poly.Holes {
			holes[i] = seriesPoints(h)
		}
	}
	return exterior, holes
}

func seriesPoints(s geometry.Ring) []geometry.Point {
	n := s.NumPoints()
	pts := make([]geometry.Point, n)
	for i := 0; i < n; i++ {
		pts[i] = s.PointAt(i)
	}
	return pts
}

// Area returns the planar area of the polygon: the exterior ring's area
// minus the holes.
func (p *Polygon) Area() float64 {
	area := ringArea(p.poly.Exterior)
	for _, h := range p.poly.Holes {
		area -= ringArea(h)
	}
	if area < 0 {
		return 0
	}
	return area
}

// ringArea computes the unsigned shoelace area of a ring.
func ringArea(s geometry.Ring) float64 {
	n := s.NumPoints()
	if n < 3 {
		return 0
	}
	var sum float64
	prev := s.PointAt(n - 1)
	for i := 0; i < n; i++ {
		pt := s.PointAt(i)
		sum += prev.X*pt.Y - pt.X*prev.Y
		prev = pt
	}
	return math.Abs(sum) / 2
}

// Contains reports whether p fully contains o.
func (p *Polygon) Contains(o *Polygon) bool {
	return p.poly.ContainsPoly(o.poly)
}

// Within reports whether p is fully contained by o.
func (p *Polygon) Within(o *Polygon) bool {
	return o.poly.ContainsPoly(p.poly)
}

// Intersects reports whether p and o share any point.
func (p *Polygon) Intersects(o *Polygon) bool {
	return p.poly.IntersectsPoly(o.poly)
}

// ContainsPoint reports whether pt lies inside p.
func (p *Polygon) ContainsPoint(pt geometry.Point) bool {
	return p.poly.ContainsPoint(pt)
}
