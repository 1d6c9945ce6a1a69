// Package spatial provides a bulk-built, read-only spatial index over
// bounding boxes. The index is a conservative filter: a query returns the
// refs of every indexed box intersecting the query rect, and callers must
// re-check exact geometry. Once built the index is immutable, so concurrent
// queries from multiple workers need no locking.
package spatial

import (
	"fmt"

	"github.com/flatrtree/flatrtree-go"
	"github.com/tidwall/geojson/geometry"

	"github.com/cbusmaps/agemap/pkg/geom"
)

// omtDegree is the node fan-out for the packed OMT build.
const omtDegree = 64

// Index is a static R-tree over a finite set of bounding boxes. Refs are
// the positions of the boxes in the slice the index was built from.
type Index struct {
	tree  *flatrtree.RTree
	count int
}

// BuildRects bulk-builds an index over the given rects. Building over zero
// rects yields an index whose queries always return nil.
func BuildRects(rects []geometry.Rect) (*Index, error) {
	builder := flatrtree.NewOMTBuilder()
	for i, r := range rects {
		builder.Add(int64(i), r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
	}
	tree, err := builder.Finish(omtDegree)
	if err != nil {
		return nil, fmt.Errorf("build rtree: %w", err)
	}
	return &Index{tree: tree, count: len(rects)}, nil
}

// Build bulk-builds an index over the bounding boxes of the given polygons.
func Build(shapes []*geom.Polygon) (*Index, error) {
	rects := make([]geometry.Rect, len(shapes))
	for i, s := range shapes {
		rects[i] = s.Rect()
	}
	return BuildRects(rects)
}

// BuildPoints bulk-builds an index over degenerate point rects.
func BuildPoints(points []geometry.Point) (*Index, error) {
	rects := make([]geometry.Rect, len(points))
	for i, pt := range points {
		rects[i] = geom.PointRect(pt)
	}
	return BuildRects(rects)
}

// Query returns the refs of every indexed box intersecting region, in
// unspecified order.
func (ix *Index) Query(region geometry.Rect) []int64 {
	if ix.count == 0 {
		return nil
	}
	var refs []int64
	ix.tree.Search(region.Min.X, region.Min.Y, region.Max.X, region.Max.Y,
		func(ref int64) bool {
			refs = append(refs, ref)
			return true
		})
	return refs
}

// Len returns the number of indexed boxes.
func (ix *Index) Len() int {
	return ix.count
}
