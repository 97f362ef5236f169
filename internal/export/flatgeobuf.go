package export

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strconv"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geolayers/internal/geo"
	"github.com/woozymasta/geolayers/internal/normalize"
)

// ErrNoRecords is returned when no record has a position to write.
var ErrNoRecords = errors.New("export: no records to write")

// WGS84 is the CRS written into every FlatGeobuf header.
const WGS84 = 4326

var columnTypes = map[normalize.FieldType]flattypes.ColumnType{
	normalize.FieldInteger: flattypes.ColumnTypeLong,
	normalize.FieldDouble:  flattypes.ColumnTypeDouble,
	normalize.FieldString:  flattypes.ColumnTypeString,
}

// WriteFlatGeobuf writes the normalized records as a FlatGeobuf file with a
// packed spatial index. Columns follow res.Fields and are all nullable.
// Records without a single usable position are skipped.
func WriteFlatGeobuf(w io.Writer, res *normalize.Result, name string) error {
	if res == nil || !hasPositions(res.Records) {
		return ErrNoRecords
	}

	builder := flatbuffers.NewBuilder(4096)

	header := writer.NewHeader(builder)
	header.SetGeometryType(headerGeometryType(res))
	if name != "" {
		header.SetName(name)
	}
	if res.TitleField != "" {
		header.SetDescription("title field: " + res.TitleField)
	}

	columns := make([]*writer.Column, 0, len(res.Fields))
	for _, field := range res.Fields {
		col := writer.NewColumn(builder)
		col.SetName(field.Name)
		col.SetTitle(field.Label)
		col.SetType(columnTypes[field.Type])
		col.SetNullable(true)
		columns = append(columns, col)
	}
	if len(columns) > 0 {
		header.SetColumns(columns)
	}

	crs := writer.NewCrs(builder)
	crs.SetOrg("EPSG")
	crs.SetCode(WGS84)
	crs.SetName("WGS 84")
	header.SetCrs(crs)

	gen := &recordGenerator{records: res.Records, fields: res.Fields}
	gen.index = make(map[string]int, len(res.Fields))
	for i, field := range res.Fields {
		gen.index[field.Name] = i
	}

	if _, err := writer.NewWriter(header, true, gen, nil).Write(w); err != nil {
		return err
	}

	if gen.skipped > 0 {
		log.Debug().Str("layer", name).Int("skipped", gen.skipped).Msg("Records without coordinates skipped")
	}

	return nil
}

// hasPositions reports whether at least one record can be encoded. The packed
// index cannot be built over zero features.
func hasPositions(records []normalize.Record) bool {
	builder := flatbuffers.NewBuilder(0)
	for _, r := range records {
		if recordGeometry(r.Geometry, builder) != nil {
			return true
		}
	}
	return false
}

// headerGeometryType picks the FlatGeobuf type shared by all records.
func headerGeometryType(res *normalize.Result) flattypes.GeometryType {
	switch res.GeometryType {
	case normalize.GeometryPoint:
		return flattypes.GeometryTypePoint
	case normalize.GeometryMultipoint:
		return flattypes.GeometryTypeMultiPoint
	case normalize.GeometryPolygon:
		return flattypes.GeometryTypePolygon
	case normalize.GeometryPolyline:
		for _, r := range res.Records {
			if len(r.Geometry.Paths) > 1 {
				return flattypes.GeometryTypeMultiLineString
			}
		}
		return flattypes.GeometryTypeLineString
	}
	return flattypes.GeometryTypeUnknown
}

// recordGenerator feeds records to the FlatGeobuf writer one at a time.
type recordGenerator struct {
	records []normalize.Record
	fields  []normalize.Field
	index   map[string]int
	pos     int
	skipped int
}

func (g *recordGenerator) Generate() *writer.Feature {
	for g.pos < len(g.records) {
		r := g.records[g.pos]
		g.pos++

		builder := flatbuffers.NewBuilder(1024)
		geom := recordGeometry(r.Geometry, builder)
		if geom == nil {
			g.skipped++
			continue
		}

		feature := writer.NewFeature(builder)
		feature.SetGeometry(geom)
		if props := g.encode(r.Attributes); len(props) > 0 {
			feature.SetProperties(props)
		}
		return feature
	}
	return nil
}

// encode writes each attribute as a little-endian uint16 column index followed
// by its value. Nulls and values that do not fit the column are left out.
func (g *recordGenerator) encode(attrs geo.Properties) []byte {
	var buf bytes.Buffer
	for _, prop := range attrs {
		i, ok := g.index[prop.Key]
		if !ok || prop.Value.IsNull() {
			continue
		}

		value, ok := encodeValue(g.fields[i].Type, prop.Value)
		if !ok {
			continue
		}

		_ = binary.Write(&buf, binary.LittleEndian, uint16(i))
		buf.Write(value)
	}
	return buf.Bytes()
}

func encodeValue(t normalize.FieldType, v geo.Value) ([]byte, bool) {
	switch t {
	case normalize.FieldInteger:
		if !v.IsNumeric() {
			return nil, false
		}
		if v.Kind() == geo.ValueDouble && !fitsInt64(v.Float()) {
			return nil, false
		}
		return binary.LittleEndian.AppendUint64(nil, uint64(v.Int())), true

	case normalize.FieldDouble:
		if !v.IsNumeric() {
			return nil, false
		}
		return binary.LittleEndian.AppendUint64(nil, math.Float64bits(v.Float())), true

	default:
		s := stringValue(v)
		out := binary.LittleEndian.AppendUint32(nil, uint32(len(s)))
		return append(out, s...), true
	}
}

// fitsInt64 reports whether f is whole and inside the int64 range.
func fitsInt64(f float64) bool {
	return f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64
}

func stringValue(v geo.Value) string {
	switch v.Kind() {
	case geo.ValueString:
		return v.Str()
	case geo.ValueInteger:
		return strconv.FormatInt(v.Int(), 10)
	case geo.ValueDouble:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case geo.ValueBool:
		return strconv.FormatBool(v.Boolean())
	}
	return ""
}

// recordGeometry converts a record geometry to x/y pairs with part ends.
// It returns nil when the geometry has no usable position.
func recordGeometry(g normalize.Geometry, builder *flatbuffers.Builder) *writer.Geometry {
	fg := writer.NewGeometry(builder)

	switch g.Type {
	case normalize.GeometryPoint:
		fg.SetType(flattypes.GeometryTypePoint)
		fg.SetXY([]float64{g.X, g.Y})
		return fg

	case normalize.GeometryMultipoint:
		xy, _ := flatten([][]geo.Position{g.Points})
		if len(xy) == 0 {
			return nil
		}
		fg.SetType(flattypes.GeometryTypeMultiPoint)
		fg.SetXY(xy)
		return fg

	case normalize.GeometryPolyline:
		xy, ends := flatten(g.Paths)
		if len(xy) == 0 {
			return nil
		}
		if len(ends) > 1 {
			fg.SetType(flattypes.GeometryTypeMultiLineString)
			fg.SetEnds(ends)
		} else {
			fg.SetType(flattypes.GeometryTypeLineString)
		}
		fg.SetXY(xy)
		return fg

	case normalize.GeometryPolygon:
		xy, ends := flatten(g.Rings)
		if len(xy) == 0 {
			return nil
		}
		fg.SetType(flattypes.GeometryTypePolygon)
		fg.SetXY(xy)
		fg.SetEnds(ends)
		return fg
	}

	return nil
}

// flatten interleaves x/y of every part and records the running end index of
// each non-empty part.
func flatten(parts [][]geo.Position) ([]float64, []uint32) {
	var (
		xy   []float64
		ends []uint32
		n    uint32
	)
	for _, part := range parts {
		start := n
		for _, p := range part {
			if len(p) < 2 {
				continue
			}
			xy = append(xy, p[0], p[1])
			n++
		}
		if n > start {
			ends = append(ends, n)
		}
	}
	return xy, ends
}
