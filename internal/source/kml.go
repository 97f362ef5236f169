package source

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/woozymasta/geolayers/internal/geo"
)

// ErrInvalidKML is returned when the document is not well-formed XML.
var ErrInvalidKML = errors.New("source: invalid KML document")

type kmlPlacemark struct {
	Name         *string         `xml:"name"`
	Description  *string         `xml:"description"`
	ExtendedData kmlExtendedData `xml:"ExtendedData"`
	kmlGeometries
}

type kmlExtendedData struct {
	Data []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value"`
	} `xml:"Data"`
	SchemaData []struct {
		SimpleData []struct {
			Name  string `xml:"name,attr"`
			Value string `xml:",chardata"`
		} `xml:"SimpleData"`
	} `xml:"SchemaData"`
}

// kmlGeometries collects the geometry children of a Placemark or MultiGeometry.
type kmlGeometries struct {
	Points        []kmlCoordinates `xml:"Point"`
	LineStrings   []kmlCoordinates `xml:"LineString"`
	Polygons      []kmlPolygon     `xml:"Polygon"`
	MultiGeometry []kmlGeometries  `xml:"MultiGeometry"`
}

type kmlCoordinates struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPolygon struct {
	Outer string   `xml:"outerBoundaryIs>LinearRing>coordinates"`
	Inner []string `xml:"innerBoundaryIs>LinearRing>coordinates"`
}

// ParseKML converts every Placemark of a KML document, at any Document or
// Folder depth, into a GeoJSON feature.
func ParseKML(data []byte) (*geo.FeatureCollection, error) {
	fc := &geo.FeatureCollection{Features: []geo.Feature{}}
	dec := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKML, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Placemark" {
			continue
		}

		var pm kmlPlacemark
		if err := dec.DecodeElement(&pm, &start); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKML, err)
		}
		fc.Features = append(fc.Features, pm.feature())
	}

	return fc, nil
}

func (pm kmlPlacemark) feature() geo.Feature {
	props := geo.Properties{}
	if pm.Name != nil {
		props.Set("name", geo.String(strings.TrimSpace(*pm.Name)))
	}
	if pm.Description != nil {
		props.Set("description", geo.String(strings.TrimSpace(*pm.Description)))
	}
	for _, d := range pm.ExtendedData.Data {
		props.Set(d.Name, geo.String(d.Value))
	}
	for _, sd := range pm.ExtendedData.SchemaData {
		for _, d := range sd.SimpleData {
			props.Set(d.Name, geo.String(d.Value))
		}
	}

	return geo.Feature{Geometry: pm.geometry(), Properties: props}
}

// geometry returns the single geometry of the placemark, a Multi* geometry
// for a homogeneous MultiGeometry, or a GeometryCollection otherwise.
func (g kmlGeometries) geometry() *geo.Geometry {
	points, lines, polygons := g.flatten()

	kinds := 0
	for _, n := range []int{len(points), len(lines), len(polygons)} {
		if n > 0 {
			kinds++
		}
	}

	multi := len(g.MultiGeometry) > 0
	switch {
	case kinds == 0:
		if multi {
			return &geo.Geometry{Type: geo.TypeGeometryCollection}
		}
		return nil
	case kinds > 1:
		return &geo.Geometry{Type: geo.TypeGeometryCollection}
	}

	switch {
	case len(points) > 0:
		if !multi && len(points) == 1 {
			return geo.NewPoint(points[0])
		}
		return geo.NewMultiPoint(points)
	case len(lines) > 0:
		if !multi && len(lines) == 1 {
			return geo.NewLineString(lines[0])
		}
		return geo.NewMultiLineString(lines)
	default:
		if !multi && len(polygons) == 1 {
			return geo.NewPolygon(polygons[0])
		}
		return geo.NewMultiPolygon(polygons)
	}
}

// flatten gathers the parts of this level and any nested MultiGeometry.
func (g kmlGeometries) flatten() (points []geo.Position, lines [][]geo.Position, polygons [][][]geo.Position) {
	for _, p := range g.Points {
		if pos := parseCoordinates(p.Coordinates); len(pos) > 0 {
			points = append(points, pos[0])
		}
	}
	for _, l := range g.LineStrings {
		lines = append(lines, parseCoordinates(l.Coordinates))
	}
	for _, p := range g.Polygons {
		rings := [][]geo.Position{parseCoordinates(p.Outer)}
		for _, inner := range p.Inner {
			rings = append(rings, parseCoordinates(inner))
		}
		polygons = append(polygons, rings)
	}
	for _, m := range g.MultiGeometry {
		pts, ls, polys := m.flatten()
		points = append(points, pts...)
		lines = append(lines, ls...)
		polygons = append(polygons, polys...)
	}
	return points, lines, polygons
}

// parseCoordinates reads whitespace separated lon,lat[,alt] tuples.
// Malformed tuples are skipped.
func parseCoordinates(s string) []geo.Position {
	out := []geo.Position{}
	for _, tuple := range strings.Fields(s) {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			continue
		}

		pos := make(geo.Position, 0, len(parts))
		for _, part := range parts {
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				pos = nil
				break
			}
			pos = append(pos, v)
		}
		if pos != nil {
			out = append(out, pos)
		}
	}
	return out
}
