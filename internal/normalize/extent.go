package normalize

import (
	"github.com/paulmach/orb"

	"github.com/woozymasta/geolayers/internal/geo"
)

// Extent returns the bounding box of every position in the records.
// ok is false when the records contain no usable position.
func Extent(records []Record) (bound orb.Bound, ok bool) {
	extend := func(p geo.Position) {
		if len(p) < 2 {
			return
		}
		pt := orb.Point{p[0], p[1]}
		if !ok {
			bound, ok = pt.Bound(), true
			return
		}
		bound = bound.Extend(pt)
	}

	for _, r := range records {
		g := r.Geometry
		switch g.Type {
		case GeometryPoint:
			extend(geo.Position{g.X, g.Y})
		case GeometryMultipoint:
			for _, p := range g.Points {
				extend(p)
			}
		case GeometryPolyline:
			for _, path := range g.Paths {
				for _, p := range path {
					extend(p)
				}
			}
		case GeometryPolygon:
			for _, ring := range g.Rings {
				for _, p := range ring {
					extend(p)
				}
			}
		}
	}

	return bound, ok
}
