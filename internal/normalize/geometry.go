package normalize

import (
	"encoding/json"

	"github.com/woozymasta/geolayers/internal/geo"
)

// Target geometry types accepted by the feature table.
const (
	GeometryPoint      = "point"
	GeometryMultipoint = "multipoint"
	GeometryPolyline   = "polyline"
	GeometryPolygon    = "polygon"
)

var targetTypes = map[string]string{
	geo.TypePoint:           GeometryPoint,
	geo.TypeMultiPoint:      GeometryMultipoint,
	geo.TypeLineString:      GeometryPolyline,
	geo.TypeMultiLineString: GeometryPolyline,
	geo.TypePolygon:         GeometryPolygon,
	geo.TypeMultiPolygon:    GeometryPolygon,
}

// TargetGeometryType maps a GeoJSON geometry type to its flat record type.
func TargetGeometryType(sourceType string) (string, bool) {
	t, ok := targetTypes[sourceType]
	return t, ok
}

// Geometry is a single-part geometry of a flat record. Which members are set
// depends on Type: X/Y (and Z when the source had it) for point, Points for
// multipoint, Paths for polyline and Rings for polygon.
type Geometry struct {
	Z      *float64
	Type   string
	Points []geo.Position
	Paths  [][]geo.Position
	Rings  [][]geo.Position
	X      float64
	Y      float64
}

// Record is one flat feature-table row.
type Record struct {
	Geometry   Geometry       `json:"geometry" yaml:"geometry"`
	Attributes geo.Properties `json:"attributes" yaml:"attributes"`
}

type pointJSON struct {
	Type string   `json:"type" yaml:"type"`
	X    float64  `json:"x" yaml:"x"`
	Y    float64  `json:"y" yaml:"y"`
	Z    *float64 `json:"z,omitempty" yaml:"z,omitempty"`
}

type multipointJSON struct {
	Type   string         `json:"type" yaml:"type"`
	Points []geo.Position `json:"points" yaml:"points"`
}

type polylineJSON struct {
	Type  string           `json:"type" yaml:"type"`
	Paths [][]geo.Position `json:"paths" yaml:"paths"`
}

type polygonJSON struct {
	Type  string           `json:"type" yaml:"type"`
	Rings [][]geo.Position `json:"rings" yaml:"rings"`
}

// shape returns the wire form of the geometry for its type.
func (g Geometry) shape() interface{} {
	switch g.Type {
	case GeometryPoint:
		return pointJSON{Type: g.Type, X: g.X, Y: g.Y, Z: g.Z}
	case GeometryMultipoint:
		return multipointJSON{Type: g.Type, Points: nonNil(g.Points)}
	case GeometryPolyline:
		return polylineJSON{Type: g.Type, Paths: nonNil(g.Paths)}
	case GeometryPolygon:
		return polygonJSON{Type: g.Type, Rings: nonNil(g.Rings)}
	default:
		return struct {
			Type string `json:"type" yaml:"type"`
		}{g.Type}
	}
}

// MarshalJSON writes the geometry in x/y, points, paths or rings form.
func (g Geometry) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.shape())
}

// MarshalYAML mirrors MarshalJSON.
func (g Geometry) MarshalYAML() (interface{}, error) {
	return g.shape(), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Normalize converts features of one geometry type into flat records.
// MultiLineString and MultiPolygon features are exploded into one record per
// part, every part carrying a copy of the parent attributes. MultiPoint stays
// a single record. Coordinates are passed through untouched.
func Normalize(features []geo.Feature, sourceType string) ([]Record, error) {
	targetType, ok := TargetGeometryType(sourceType)
	if !ok {
		return nil, &Failure{Kind: FailureUnsupportedGeometry, GeometryType: sourceType}
	}

	records := make([]Record, 0, len(features))
	for _, f := range features {
		g := f.Geometry
		if g == nil {
			g = &geo.Geometry{Type: sourceType}
		}

		switch sourceType {
		case geo.TypePoint:
			records = append(records, newRecord(pointGeometry(g.Point), f))

		case geo.TypeMultiPoint:
			records = append(records, newRecord(Geometry{Type: targetType, Points: g.Line}, f))

		case geo.TypeLineString:
			records = append(records, newRecord(Geometry{Type: targetType, Paths: [][]geo.Position{g.Line}}, f))

		case geo.TypeMultiLineString:
			for _, line := range g.Lines {
				records = append(records, newRecord(Geometry{Type: targetType, Paths: [][]geo.Position{line}}, f))
			}

		case geo.TypePolygon:
			records = append(records, newRecord(Geometry{Type: targetType, Rings: g.Lines}, f))

		case geo.TypeMultiPolygon:
			for _, polygon := range g.Polygons {
				records = append(records, newRecord(Geometry{Type: targetType, Rings: polygon}, f))
			}
		}
	}

	return records, nil
}

func newRecord(g Geometry, f geo.Feature) Record {
	return Record{Geometry: g, Attributes: f.Properties.Clone()}
}

// pointGeometry takes x and y from the first two ordinates; a third becomes Z.
// Missing ordinates stay zero.
func pointGeometry(p geo.Position) Geometry {
	g := Geometry{Type: GeometryPoint}
	if len(p) > 0 {
		g.X = p[0]
	}
	if len(p) > 1 {
		g.Y = p[1]
	}
	if len(p) > 2 {
		z := p[2]
		g.Z = &z
	}
	return g
}
