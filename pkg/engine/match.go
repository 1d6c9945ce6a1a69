// Package engine implements the spatial matching core: assigning each
// building footprint to the parcel it occupies, and discarding undated
// footprints that coincide with already-dated buildings.
package engine

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/cbusmaps/agemap/pkg/geom"
	"github.com/cbusmaps/agemap/pkg/spatial"
	"github.com/cbusmaps/agemap/pkg/store"
)

// DefaultEpsilon is the bounding-box dilation applied before index queries.
// Footprints and parcels come from independent digitization passes, so
// near-touching boundaries need a small tolerance in working (lon/lat)
// coordinates to surface as candidates at all.
const DefaultEpsilon = 0.001

// MatchStatus is the tier of confidence in a building/parcel assignment.
type MatchStatus uint8

const (
	// MatchNone means no indexed parcel intersects the building.
	MatchNone MatchStatus = iota
	// MatchPartial means the building overlaps at least one parcel but is
	// fully contained by none.
	MatchPartial
	// MatchFull means the building lies entirely inside a parcel.
	MatchFull
)

// String returns the status name used in logs and output properties.
func (s MatchStatus) String() string {
	switch s {
	case MatchFull:
		return "full"
	case MatchPartial:
		return "partial"
	default:
		return "none"
	}
}

// MatchResult is the outcome of matching one building against the parcel
// index. Parcel is store.NoParcel iff Status is MatchNone.
type MatchResult struct {
	Status   MatchStatus
	Building *geom.Polygon
	Parcel   int64
}

// Matcher assigns buildings to parcels using a shared read-only spatial
// index. It is safe for concurrent use by multiple workers.
type Matcher struct {
	parcels *store.ParcelSet
	index   *spatial.Index
	epsilon float64
	log     zerolog.Logger
}

// NewMatcher creates a matcher over the given parcel set and its index.
// An epsilon of 0 or less falls back to DefaultEpsilon.
func NewMatcher(parcels *store.ParcelSet, index *spatial.Index, epsilon float64, log zerolog.Logger) *Matcher {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Matcher{parcels: parcels, index: index, epsilon: epsilon, log: log}
}

// Match classifies one building against the parcel index.
//
// Candidates are ranked deterministically rather than scanned in index
// order: a FULL match goes to the tightest containing parcel (greatest
// building-to-parcel area fraction), a PARTIAL match to the candidate with
// the greatest bounding-box overlap. Exact ties break to the smallest ref,
// so identical inputs always classify identically regardless of index
// return order.
//
// A panic from a geometry predicate (malformed polygon, numerical
// degeneracy) is recovered here: the building is recorded as MatchNone and
// the batch continues.
func (m *Matcher) Match(building *geom.Polygon) (result MatchResult) {
	result = MatchResult{Status: MatchNone, Building: building, Parcel: store.NoParcel}

	defer func() {
		if r := recover(); r != nil {
			m.log.Error().
				Interface("cause", r).
				Msg("geometry predicate failed, recording unmatched building")
			result = MatchResult{Status: MatchNone, Building: building, Parcel: store.NoParcel}
		}
	}()

	refs := m.index.Query(geom.Buffer(building.Rect(), m.epsilon))
	if len(refs) == 0 {
		return result
	}
	slices.Sort(refs)

	// Only pay for the segment index when there is more than one candidate
	// to test against.
	probe := building
	if len(refs) > 1 {
		probe = building.Prepared()
	}

	buildingArea := building.Area()
	buildingRect := building.Rect()

	fullRef := store.NoParcel
	var fullFrac float64
	partialRef := store.NoParcel
	var partialOverlap float64

	for _, ref := range refs {
		parcel, ok := m.parcels.Get(ref)
		if !ok {
			continue
		}

		if probe.Within(parcel.Shape) {
			frac := containmentFraction(buildingArea, parcel.Shape)
			if fullRef == store.NoParcel || frac > fullFrac {
				fullRef = ref
				fullFrac = frac
			}
			continue
		}

		if fullRef == store.NoParcel && probe.Intersects(parcel.Shape) {
			overlap := geom.OverlapArea(buildingRect, parcel.Shape.Rect())
			if partialRef == store.NoParcel || overlap > partialOverlap {
				partialRef = ref
				partialOverlap = overlap
			}
		}
	}

	switch {
	case fullRef != store.NoParcel:
		result = MatchResult{Status: MatchFull, Building: building, Parcel: fullRef}
	case partialRef != store.NoParcel:
		result = MatchResult{Status: MatchPartial, Building: building, Parcel: partialRef}
	}
	return result
}

// containmentFraction returns how tightly a parcel wraps a contained
// building: building area over parcel area, clamped to [0, 1]. A
// degenerate parcel area counts as a perfect fit.
func containmentFraction(buildingArea float64, parcel *geom.Polygon) float64 {
	parcelArea := parcel.Area()
	if parcelArea <= 0 {
		return 1
	}
	frac := buildingArea / parcelArea
	if frac > 1 {
		return 1
	}
	return frac
}

// Annotate converts a match result into a building record carrying the
// matched parcel's attributes, or an undated record for MatchNone.
func (m *Matcher) Annotate(res MatchResult) store.Building {
	b := store.Building{Shape: res.Building}
	if res.Status == MatchNone {
		return b
	}
	parcel, ok := m.parcels.Get(res.Parcel)
	if !ok {
		return b
	}
	b.ParcelID = parcel.ID
	b.Address = parcel.Address
	b.YearBuilt = parcel.YearBuilt
	return b
}
