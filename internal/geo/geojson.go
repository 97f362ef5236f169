// Package geo holds the GeoJSON input model: features with verbatim coordinates
// and attributes kept in document order.
package geo

// GeoJSON geometry type names.
const (
	TypePoint              = "Point"
	TypeMultiPoint         = "MultiPoint"
	TypeLineString         = "LineString"
	TypeMultiLineString    = "MultiLineString"
	TypePolygon            = "Polygon"
	TypeMultiPolygon       = "MultiPolygon"
	TypeGeometryCollection = "GeometryCollection"

	TypeFeature           = "Feature"
	TypeFeatureCollection = "FeatureCollection"
)

// Position is a coordinate tuple exactly as it appeared in the source: [x, y, ...].
type Position []float64

// Geometry is a GeoJSON geometry. Only the member matching Type is populated:
//   - Point:                        Point
//   - MultiPoint, LineString:       Line
//   - MultiLineString, Polygon:     Lines (parts or rings)
//   - MultiPolygon:                 Polygons
//
// Other types (GeometryCollection, unknown names) only carry Type.
type Geometry struct {
	Type     string
	Point    Position
	Line     []Position
	Lines    [][]Position
	Polygons [][][]Position
}

// Feature is a geometry plus its optional attributes.
type Feature struct {
	Geometry   *Geometry
	Properties Properties
}

// GeometryType returns the feature's geometry type, or "" for a null geometry.
func (f Feature) GeometryType() string {
	if f.Geometry == nil {
		return ""
	}
	return f.Geometry.Type
}

// FeatureCollection is the GeoJSON top-level container.
type FeatureCollection struct {
	Features []Feature
}

// NewPoint builds a Point geometry.
func NewPoint(p Position) *Geometry {
	return &Geometry{Type: TypePoint, Point: p}
}

// NewLineString builds a LineString geometry.
func NewLineString(line []Position) *Geometry {
	return &Geometry{Type: TypeLineString, Line: line}
}

// NewMultiPoint builds a MultiPoint geometry.
func NewMultiPoint(points []Position) *Geometry {
	return &Geometry{Type: TypeMultiPoint, Line: points}
}

// NewPolygon builds a Polygon geometry from its rings, outer ring first.
func NewPolygon(rings [][]Position) *Geometry {
	return &Geometry{Type: TypePolygon, Lines: rings}
}

// NewMultiLineString builds a MultiLineString geometry.
func NewMultiLineString(lines [][]Position) *Geometry {
	return &Geometry{Type: TypeMultiLineString, Lines: lines}
}

// NewMultiPolygon builds a MultiPolygon geometry.
func NewMultiPolygon(polygons [][][]Position) *Geometry {
	return &Geometry{Type: TypeMultiPolygon, Polygons: polygons}
}
