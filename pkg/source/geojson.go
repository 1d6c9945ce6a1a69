// Package source loads parcels, building footprints, dated buildings and
// age survey points from GeoJSON and CSV files on disk.
package source

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/tidwall/geojson/geometry"
	"github.com/tidwall/gjson"

	"github.com/cbusmaps/agemap/pkg/geom"
	"github.com/cbusmaps/agemap/pkg/store"
)

// LoadParcels reads an auditor parcel FeatureCollection. Parcels with a
// missing or letter-bearing id, an implausible construction year, or no
// usable geometry are skipped and counted, not fatal.
func LoadParcels(path string, log zerolog.Logger) (*store.ParcelSet, error) {
	doc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	set := store.NewParcelSet(int(doc.Get("features.#").Int()))
	var skippedID, skippedYear, skippedGeom int64
	doc.Get("features").ForEach(func(_, feat gjson.Result) bool {
		rawID := firstProp(feat, "PARCELID", "parcel_id").String()
		if !ValidParcelID(rawID) {
			skippedID++
			return true
		}
		year := int(firstProp(feat, "RESYRBLT", "year_built").Int())
		if !SaneYear(year) {
			skippedYear++
			return true
		}
		polys := featurePolygons(feat)
		if len(polys) == 0 {
			skippedGeom++
			return true
		}
		id := CleanParcelID(rawID)
		addr := firstProp(feat, "SITEADDRESS", "address").String()
		for _, shape := range polys {
			set.Add(store.Parcel{
				ID:        id,
				Address:   addr,
				YearBuilt: year,
				Shape:     shape,
			})
		}
		return true
	})

	log.Info().
		Str("path", path).
		Int("parcels", set.Len()).
		Int64("skipped_bad_id", skippedID).
		Int64("skipped_bad_year", skippedYear).
		Int64("skipped_no_geometry", skippedGeom).
		Msg("parcels_loaded")
	return set, nil
}

// LoadFootprints reads building footprint shapes. MultiPolygon features
// are split into one shape per part.
func LoadFootprints(path string, log zerolog.Logger) ([]*geom.Polygon, error) {
	doc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	var shapes []*geom.Polygon
	var skippedGeom int64
	doc.Get("features").ForEach(func(_, feat gjson.Result) bool {
		polys := featurePolygons(feat)
		if len(polys) == 0 {
			skippedGeom++
			return true
		}
		shapes = append(shapes, polys...)
		return true
	})

	log.Info().
		Str("path", path).
		Int("footprints", len(shapes)).
		Int64("skipped_no_geometry", skippedGeom).
		Msg("footprints_loaded")
	return shapes, nil
}

// LoadDatedBuildings reads a FeatureCollection of buildings that already
// carry a year_built property. Years outside the sanity window become 0
// so the building lands in the undated partition instead of poisoning
// the dated index.
func LoadDatedBuildings(path string, log zerolog.Logger) ([]store.Building, error) {
	doc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	var out []store.Building
	var skippedGeom int64
	doc.Get("features").ForEach(func(_, feat gjson.Result) bool {
		polys := featurePolygons(feat)
		if len(polys) == 0 {
			skippedGeom++
			return true
		}
		year := int(firstProp(feat, "year_built", "RESYRBLT").Int())
		if !SaneYear(year) {
			year = 0
		}
		addr := firstProp(feat, "address", "SITEADDRESS").String()
		for _, shape := range polys {
			out = append(out, store.Building{
				Shape:     shape,
				Address:   addr,
				YearBuilt: year,
			})
		}
		return true
	})

	log.Info().
		Str("path", path).
		Int("buildings", len(out)).
		Int64("skipped_no_geometry", skippedGeom).
		Msg("dated_buildings_loaded")
	return out, nil
}

func readFeatureCollection(path string) (gjson.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("parse %s: not valid JSON", path)
	}
	doc := gjson.ParseBytes(data)
	if doc.Get("type").String() != "FeatureCollection" {
		return gjson.Result{}, fmt.Errorf("parse %s: expected a FeatureCollection, got %q", path, doc.Get("type").String())
	}
	return doc, nil
}

// firstProp returns the first property under feat.properties that exists.
func firstProp(feat gjson.Result, names ...string) gjson.Result {
	props := feat.Get("properties")
	for _, name := range names {
		if v := props.Get(name); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// featurePolygons extracts zero or more polygons from a feature's
// geometry. Nil geometries and degenerate rings yield nothing.
func featurePolygons(feat gjson.Result) []*geom.Polygon {
	g := feat.Get("geometry")
	if !g.Exists() || g.Type == gjson.Null {
		return nil
	}
	switch g.Get("type").String() {
	case "Polygon":
		if p := parsePolygon(g.Get("coordinates")); p != nil {
			return []*geom.Polygon{p}
		}
	case "MultiPolygon":
		var out []*geom.Polygon
		for _, part := range g.Get("coordinates").Array() {
			if p := parsePolygon(part); p != nil {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}

func parsePolygon(coords gjson.Result) *geom.Polygon {
	rings := coords.Array()
	if len(rings) == 0 {
		return nil
	}
	exterior := ringPoints(rings[0])
	if len(exterior) < 3 {
		return nil
	}
	var holes [][]geometry.Point
	for _, ring := range rings[1:] {
		if pts := ringPoints(ring); len(pts) >= 3 {
			holes = append(holes, pts)
		}
	}
	p := geom.NewPolygon(exterior, holes)
	if p.Empty() {
		return nil
	}
	return p
}

func ringPoints(ring gjson.Result) []geometry.Point {
	var pts []geometry.Point
	for _, pos := range ring.Array() {
		xy := pos.Array()
		if len(xy) < 2 {
			continue
		}
		pts = append(pts, geometry.Point{X: xy[0].Float(), Y: xy[1].Float()})
	}
	return pts
}
