package geo

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/tidwall/gjson"
)

// Decoding errors.
var (
	ErrInvalidJSON          = errors.New("geo: invalid JSON")
	ErrNotFeatureCollection = errors.New("geo: not a FeatureCollection")
)

// Decode parses a GeoJSON FeatureCollection. Attribute keys keep their
// document order and coordinates are copied without any rounding.
func Decode(data []byte) (*FeatureCollection, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ErrNotFeatureCollection
	}
	if typ := root.Get("type").String(); typ != TypeFeatureCollection {
		return nil, fmt.Errorf("%w: type %q", ErrNotFeatureCollection, typ)
	}

	features := root.Get("features")
	fc := &FeatureCollection{Features: []Feature{}}
	if !features.Exists() || features.Type == gjson.Null {
		return fc, nil
	}
	if !features.IsArray() {
		return nil, fmt.Errorf("%w: features is not an array", ErrNotFeatureCollection)
	}

	var err error
	features.ForEach(func(_, f gjson.Result) bool {
		if !f.IsObject() {
			err = fmt.Errorf("%w: feature %d is not an object", ErrNotFeatureCollection, len(fc.Features))
			return false
		}
		fc.Features = append(fc.Features, featureFromJSON(f))
		return true
	})
	if err != nil {
		return nil, err
	}

	return fc, nil
}

// DecodeReader reads r fully and decodes it with Decode.
func DecodeReader(r io.Reader) (*FeatureCollection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func featureFromJSON(f gjson.Result) Feature {
	var feature Feature

	if geom := f.Get("geometry"); geom.IsObject() {
		feature.Geometry = geometryFromJSON(geom)
	}

	if props := f.Get("properties"); props.IsObject() {
		feature.Properties = propertiesFromJSON(props)
	}

	return feature
}

func geometryFromJSON(geom gjson.Result) *Geometry {
	g := &Geometry{Type: geom.Get("type").String()}
	coords := geom.Get("coordinates")

	switch g.Type {
	case TypePoint:
		g.Point = positionFromJSON(coords)
	case TypeMultiPoint, TypeLineString:
		g.Line = positionsFromJSON(coords)
	case TypeMultiLineString, TypePolygon:
		g.Lines = linesFromJSON(coords)
	case TypeMultiPolygon:
		g.Polygons = polygonsFromJSON(coords)
	}

	return g
}

func positionFromJSON(coords gjson.Result) Position {
	pos := Position{}
	eachElement(coords, func(val gjson.Result) {
		pos = append(pos, val.Float())
	})
	return pos
}

func positionsFromJSON(coords gjson.Result) []Position {
	out := []Position{}
	eachElement(coords, func(val gjson.Result) {
		out = append(out, positionFromJSON(val))
	})
	return out
}

func linesFromJSON(coords gjson.Result) [][]Position {
	out := [][]Position{}
	eachElement(coords, func(val gjson.Result) {
		out = append(out, positionsFromJSON(val))
	})
	return out
}

func polygonsFromJSON(coords gjson.Result) [][][]Position {
	out := [][][]Position{}
	eachElement(coords, func(val gjson.Result) {
		out = append(out, linesFromJSON(val))
	})
	return out
}

// eachElement calls fn for every element of an array; anything else is
// treated as an empty coordinate list.
func eachElement(arr gjson.Result, fn func(val gjson.Result)) {
	if !arr.IsArray() {
		return
	}
	arr.ForEach(func(_, val gjson.Result) bool {
		fn(val)
		return true
	})
}

// propertiesFromJSON walks the object in document order. A repeated key keeps
// its first position and takes the last value.
func propertiesFromJSON(props gjson.Result) Properties {
	out := Properties{}
	props.ForEach(func(key, val gjson.Result) bool {
		out.Set(key.String(), valueFromJSON(val))
		return true
	})
	return out
}

func valueFromJSON(val gjson.Result) Value {
	switch val.Type {
	case gjson.String:
		return String(val.Str)
	case gjson.Number:
		if i, err := strconv.ParseInt(val.Raw, 10, 64); err == nil {
			return Integer(i)
		}
		return Number(val.Num)
	case gjson.True:
		return Bool(true)
	case gjson.False:
		return Bool(false)
	case gjson.JSON:
		// nested objects and arrays are kept as their JSON text
		return String(val.Raw)
	default:
		return Null()
	}
}
