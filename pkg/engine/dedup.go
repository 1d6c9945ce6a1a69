package engine

import (
	"github.com/rs/zerolog"

	"github.com/cbusmaps/agemap/pkg/geom"
	"github.com/cbusmaps/agemap/pkg/spatial"
)

// Deduper decides whether an undated footprint duplicates an already-dated
// building. It is a pure existence check over a shared read-only index:
// cheaper than matching, no tiering, short-circuits on the first hit.
type Deduper struct {
	dated   []*geom.Polygon
	index   *spatial.Index
	epsilon float64
	log     zerolog.Logger
}

// NewDeduper creates a deduper over the dated shapes and their index.
// The index refs must be positions in dated.
func NewDeduper(dated []*geom.Polygon, index *spatial.Index, epsilon float64, log zerolog.Logger) *Deduper {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Deduper{dated: dated, index: index, epsilon: epsilon, log: log}
}

// ShouldDiscard reports whether undated intersects any indexed dated
// building. An empty dated index keeps everything. A predicate panic is
// recovered as false: when in doubt, keep the footprint.
func (d *Deduper) ShouldDiscard(undated *geom.Polygon) (discard bool) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Interface("cause", r).
				Msg("geometry predicate failed, keeping undated building")
			discard = false
		}
	}()

	refs := d.index.Query(geom.Buffer(undated.Rect(), d.epsilon))
	if len(refs) == 0 {
		return false
	}

	// Only prep if there are multiple nearby shapes to check.
	probe := undated
	if len(refs) > 1 {
		probe = undated.Prepared()
	}

	for _, ref := range refs {
		if ref < 0 || ref >= int64(len(d.dated)) {
			continue
		}
		if probe.Intersects(d.dated[ref]) {
			return true
		}
	}
	return false
}
