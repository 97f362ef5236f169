// Package export writes normalized layers back out as GeoJSON or FlatGeobuf.
package export

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/woozymasta/geolayers/internal/geo"
	"github.com/woozymasta/geolayers/internal/normalize"
)

// FeatureCollection rebuilds a flat GeoJSON collection from normalized
// records, one feature per record. Positions are reduced to x/y.
func FeatureCollection(res *normalize.Result) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if res == nil {
		return fc
	}

	for _, r := range res.Records {
		g := OrbGeometry(r.Geometry)
		if g == nil {
			continue
		}

		f := geojson.NewFeature(g)
		for _, prop := range r.Attributes {
			f.Properties[prop.Key] = prop.Value.Interface()
		}
		if v, ok := r.Attributes.Get(res.IDField); ok && !v.IsNull() {
			f.ID = v.Interface()
		}

		fc.Append(f)
	}

	return fc
}

// OrbGeometry converts a record geometry into its orb equivalent.
// Polylines with a single path become a LineString.
func OrbGeometry(g normalize.Geometry) orb.Geometry {
	switch g.Type {
	case normalize.GeometryPoint:
		return orb.Point{g.X, g.Y}

	case normalize.GeometryMultipoint:
		mp := make(orb.MultiPoint, 0, len(g.Points))
		for _, p := range g.Points {
			if pt, ok := orbPoint(p); ok {
				mp = append(mp, pt)
			}
		}
		return mp

	case normalize.GeometryPolyline:
		mls := make(orb.MultiLineString, 0, len(g.Paths))
		for _, path := range g.Paths {
			mls = append(mls, orbLine(path))
		}
		if len(mls) == 1 {
			return mls[0]
		}
		return mls

	case normalize.GeometryPolygon:
		poly := make(orb.Polygon, 0, len(g.Rings))
		for _, ring := range g.Rings {
			poly = append(poly, orb.Ring(orbLine(ring)))
		}
		return poly
	}

	return nil
}

func orbLine(positions []geo.Position) orb.LineString {
	ls := make(orb.LineString, 0, len(positions))
	for _, p := range positions {
		if pt, ok := orbPoint(p); ok {
			ls = append(ls, pt)
		}
	}
	return ls
}

func orbPoint(p geo.Position) (orb.Point, bool) {
	if len(p) < 2 {
		return orb.Point{}, false
	}
	return orb.Point{p[0], p[1]}, true
}
