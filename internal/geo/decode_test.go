package geo

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestDecodeGeometries(t *testing.T) {
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [121.5, 25.05, 12]}, "properties": null},
			{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 1]]}},
			{"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [4, 0], [4, 4], [0, 0]], [[1, 1], [2, 1], [2, 2], [1, 1]]]}, "properties": {}},
			{"type": "Feature", "geometry": {"type": "MultiPolygon", "coordinates": [[[[0, 0], [1, 0], [1, 1], [0, 0]]], [[[5, 5], [6, 5], [6, 6], [5, 5]]]]}},
			{"type": "Feature", "geometry": {"type": "GeometryCollection", "geometries": []}},
			{"type": "Feature", "geometry": null}
		]
	}`)

	fc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(fc.Features) != 6 {
		t.Fatalf("expected 6 features, got %d", len(fc.Features))
	}

	point := fc.Features[0]
	if point.GeometryType() != TypePoint {
		t.Fatalf("expected Point, got %q", point.GeometryType())
	}
	if !reflect.DeepEqual(point.Geometry.Point, Position{121.5, 25.05, 12}) {
		t.Errorf("point coordinates: got %v", point.Geometry.Point)
	}
	if point.Properties != nil {
		t.Errorf("null properties should decode as nil, got %v", point.Properties)
	}

	if fc.Features[1].Properties != nil {
		t.Errorf("missing properties should decode as nil, got %v", fc.Features[1].Properties)
	}
	wantLine := []Position{{0, 0}, {1, 1}}
	if !reflect.DeepEqual(fc.Features[1].Geometry.Line, wantLine) {
		t.Errorf("line coordinates: expected %v, got %v", wantLine, fc.Features[1].Geometry.Line)
	}

	poly := fc.Features[2]
	if poly.Properties == nil || len(poly.Properties) != 0 {
		t.Errorf("empty properties object should decode as empty non-nil, got %#v", poly.Properties)
	}
	if len(poly.Geometry.Lines) != 2 {
		t.Errorf("expected 2 rings, got %d", len(poly.Geometry.Lines))
	}

	if got := len(fc.Features[3].Geometry.Polygons); got != 2 {
		t.Errorf("expected 2 polygons, got %d", got)
	}

	if fc.Features[4].GeometryType() != TypeGeometryCollection {
		t.Errorf("expected GeometryCollection, got %q", fc.Features[4].GeometryType())
	}

	if fc.Features[5].Geometry != nil || fc.Features[5].GeometryType() != "" {
		t.Errorf("null geometry should decode as nil, got %#v", fc.Features[5].Geometry)
	}
}

func TestDecodePropertiesOrderAndValues(t *testing.T) {
	data := []byte(`{"type":"FeatureCollection","features":[{"type":"Feature",
		"geometry":{"type":"Point","coordinates":[1,2]},
		"properties":{"zeta":"z","count":3,"ratio":1.5,"whole":2.0,"flag":true,"off":false,"none":null,"tags":["a","b"],"zeta":"again"}}]}`)

	fc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	props := fc.Features[0].Properties
	wantKeys := []string{"zeta", "count", "ratio", "whole", "flag", "off", "none", "tags"}
	if !reflect.DeepEqual(props.Keys(), wantKeys) {
		t.Fatalf("keys: expected %v, got %v", wantKeys, props.Keys())
	}

	tests := []struct {
		key  string
		want Value
	}{
		{"zeta", String("again")},
		{"count", Integer(3)},
		{"ratio", Double(1.5)},
		{"whole", Integer(2)},
		{"flag", Bool(true)},
		{"off", Bool(false)},
		{"none", Null()},
		{"tags", String(`["a","b"]`)},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := props.Get(tt.key)
			if !ok {
				t.Fatalf("key %q missing", tt.key)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"Invalid JSON", `{"type":`, ErrInvalidJSON},
		{"Array Root", `[]`, ErrNotFeatureCollection},
		{"Single Feature", `{"type":"Feature","geometry":null}`, ErrNotFeatureCollection},
		{"Features Not Array", `{"type":"FeatureCollection","features":{}}`, ErrNotFeatureCollection},
		{"Feature Not Object", `{"type":"FeatureCollection","features":[1]}`, ErrNotFeatureCollection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeEmptyFeatures(t *testing.T) {
	for _, input := range []string{
		`{"type":"FeatureCollection","features":[]}`,
		`{"type":"FeatureCollection"}`,
	} {
		fc, err := DecodeReader(strings.NewReader(input))
		if err != nil {
			t.Fatalf("DecodeReader(%s) failed: %v", input, err)
		}
		if len(fc.Features) != 0 {
			t.Errorf("expected no features, got %d", len(fc.Features))
		}
	}
}

func TestPropertiesMarshalJSON(t *testing.T) {
	props := Properties{
		{Key: "name", Value: String("A")},
		{Key: "pop", Value: Integer(12)},
		{Key: "area", Value: Double(0.25)},
		{Key: "ok", Value: Bool(true)},
		{Key: "note", Value: Null()},
	}

	data, err := json.Marshal(props)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	want := `{"name":"A","pop":12,"area":0.25,"ok":true,"note":null}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}

	var nilProps Properties
	data, err = json.Marshal(nilProps)
	if err != nil {
		t.Fatalf("Marshal nil failed: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("nil properties: expected {}, got %s", data)
	}
}

func TestPropertiesClone(t *testing.T) {
	props := Properties{{Key: "name", Value: String("A")}}
	clone := props.Clone()
	clone.Set("name", String("B"))

	if v, _ := props.Get("name"); v.Str() != "A" {
		t.Errorf("clone mutated the source: %v", v.Str())
	}

	var nilProps Properties
	if nilProps.Clone() != nil {
		t.Error("clone of nil properties should be nil")
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want ValueKind
	}{
		{3, ValueInteger},
		{-7, ValueInteger},
		{1.5, ValueDouble},
		{1e300, ValueDouble},
	}

	for _, tt := range tests {
		if got := Number(tt.in).Kind(); got != tt.want {
			t.Errorf("Number(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}
