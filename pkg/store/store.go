// Package store holds the in-memory attribute records the pipeline joins:
// parcels with construction years and addresses, and building footprints.
//
// Parcels are addressed by a synthetic int64 ref assigned at load time (the
// position in the set). The ref doubles as the spatial index ref, so a
// geometry returned from a spatial query resolves to its parcel without any
// geometry-encoded keying, and geometrically identical parcels never
// collide.
package store

import "github.com/cbusmaps/agemap/pkg/geom"

// NoParcel is the ref carried by unmatched buildings.
const NoParcel int64 = -1

// Parcel is a property parcel with validated attributes.
type Parcel struct {
	ID        string
	Address   string
	YearBuilt int
	Shape     *geom.Polygon
}

// Building is a footprint, possibly annotated with the attributes of the
// parcel it occupies. YearBuilt 0 means undated.
type Building struct {
	Shape     *geom.Polygon
	ParcelID  string
	Address   string
	YearBuilt int
}

// Dated reports whether the building carries a known construction year.
func (b Building) Dated() bool {
	return b.YearBuilt > 0
}

// ParcelSet is a read-only-after-load collection of parcels.
type ParcelSet struct {
	parcels []Parcel
}

// NewParcelSet creates an empty set with the given capacity hint.
func NewParcelSet(capacity int) *ParcelSet {
	return &ParcelSet{parcels: make([]Parcel, 0, capacity)}
}

// Add appends a parcel and returns its ref.
func (s *ParcelSet) Add(p Parcel) int64 {
	s.parcels = append(s.parcels, p)
	return int64(len(s.parcels) - 1)
}

// Get returns the parcel for ref. ok is false for NoParcel or an
// out-of-range ref.
func (s *ParcelSet) Get(ref int64) (Parcel, bool) {
	if ref < 0 || ref >= int64(len(s.parcels)) {
		return Parcel{}, false
	}
	return s.parcels[ref], true
}

// Len returns the number of parcels.
func (s *ParcelSet) Len() int {
	return len(s.parcels)
}

// Shapes returns the parcel geometries in ref order, suitable for building
// a spatial index whose refs resolve back through Get.
func (s *ParcelSet) Shapes() []*geom.Polygon {
	shapes := make([]*geom.Polygon, len(s.parcels))
	for i := range s.parcels {
		shapes[i] = s.parcels[i].Shape
	}
	return shapes
}

// PartitionByDate splits buildings into dated (YearBuilt > 0) and undated
// subsets, preserving relative order.
func PartitionByDate(buildings []Building) (dated, undated []Building) {
	for _, b := range buildings {
		if b.Dated() {
			dated = append(dated, b)
		} else {
			undated = append(undated, b)
		}
	}
	return dated, undated
}
