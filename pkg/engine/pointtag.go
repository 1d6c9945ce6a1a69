package engine

import (
	"slices"

	"github.com/tidwall/geojson/geometry"

	"github.com/cbusmaps/agemap/pkg/geom"
	"github.com/cbusmaps/agemap/pkg/spatial"
)

// AgePoint is a surveyed location with a known construction year, used to
// date buildings that no parcel could date.
type AgePoint struct {
	Pos  geometry.Point
	Year int
}

// Tagger assigns construction years to buildings from a point survey: a
// building takes the year of an age point it contains.
type Tagger struct {
	points []AgePoint
	index  *spatial.Index
}

// NewTagger builds a tagger over the given age points.
func NewTagger(points []AgePoint) (*Tagger, error) {
	pts := make([]geometry.Point, len(points))
	for i, p := range points {
		pts[i] = p.Pos
	}
	index, err := spatial.BuildPoints(pts)
	if err != nil {
		return nil, err
	}
	return &Tagger{points: points, index: index}, nil
}

// Tag returns the year of the lowest-ref age point contained by the
// building, or ok=false when the building contains none.
func (t *Tagger) Tag(building *geom.Polygon) (year int, ok bool) {
	refs := t.index.Query(building.Rect())
	if len(refs) == 0 {
		return 0, false
	}
	slices.Sort(refs)
	for _, ref := range refs {
		if building.ContainsPoint(t.points[ref].Pos) {
			return t.points[ref].Year, true
		}
	}
	return 0, false
}
