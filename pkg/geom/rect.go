package geom

import "github.com/tidwall/geojson/geometry"

// Buffer returns r dilated by eps on every side. A zero or negative eps
// returns r unchanged.
func Buffer(r geometry.Rect, eps float64) geometry.Rect {
	if eps <= 0 {
		return r
	}
	return geometry.Rect{
		Min: geometry.Point{X: r.Min.X - eps, Y: r.Min.Y - eps},
		Max: geometry.Point{X: r.Max.X + eps, Y: r.Max.Y + eps},
	}
}

// OverlapArea returns the area of the intersection of two rects, or 0 when
// they are disjoint.
func OverlapArea(a, b geometry.Rect) float64 {
	w := min(a.Max.X, b.Max.X) - max(a.Min.X, b.Min.X)
	if w <= 0 {
		return 0
	}
	h := min(a.Max.Y, b.Max.Y) - max(a.Min.Y, b.Min.Y)
	if h <= 0 {
		return 0
	}
	return w * h
}

// PointRect returns the degenerate rect covering a single point.
func PointRect(pt geometry.Point) geometry.Rect {
	return geometry.Rect{Min: pt, Max: pt}
}
