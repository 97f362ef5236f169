package geo

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ValueKind tags the scalar stored in a Value.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueString
	ValueInteger
	ValueDouble
	ValueBool
)

// String returns the lower-case name of the kind.
func (k ValueKind) String() string {
	switch k {
	case ValueString:
		return "string"
	case ValueInteger:
		return "integer"
	case ValueDouble:
		return "double"
	case ValueBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is a single attribute value: null, string, integer, double or bool.
// The zero Value is null.
type Value struct {
	s    string
	i    int64
	f    float64
	kind ValueKind
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// String wraps a string.
func String(s string) Value { return Value{kind: ValueString, s: s} }

// Integer wraps a whole number.
func Integer(i int64) Value { return Value{kind: ValueInteger, i: i} }

// Double wraps a number with a fractional part.
func Double(f float64) Value { return Value{kind: ValueDouble, f: f} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: ValueBool, b: b} }

// Number classifies a JSON number: integer when it has no fractional
// component and fits into int64, double otherwise.
func Number(f float64) Value {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return Integer(int64(f))
	}
	return Double(f)
}

// Kind reports which scalar the value holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == ValueNull }

// IsNumeric reports whether v is an integer or a double.
func (v Value) IsNumeric() bool { return v.kind == ValueInteger || v.kind == ValueDouble }

// Str returns the string payload; empty for other kinds.
func (v Value) Str() string { return v.s }

// Int returns the integer payload; doubles are truncated.
func (v Value) Int() int64 {
	if v.kind == ValueDouble {
		return int64(v.f)
	}
	return v.i
}

// Float returns the numeric payload as float64.
func (v Value) Float() float64 {
	if v.kind == ValueInteger {
		return float64(v.i)
	}
	return v.f
}

// Boolean returns the bool payload.
func (v Value) Boolean() bool { return v.b }

// Interface returns the value as a plain Go value:
// nil, string, int64, float64 or bool.
func (v Value) Interface() interface{} {
	switch v.kind {
	case ValueString:
		return v.s
	case ValueInteger:
		return v.i
	case ValueDouble:
		return v.f
	case ValueBool:
		return v.b
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.appendJSON(nil), nil
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}

func (v Value) appendJSON(dst []byte) []byte {
	switch v.kind {
	case ValueString:
		quoted, _ := json.Marshal(v.s)
		return append(dst, quoted...)
	case ValueInteger:
		return strconv.AppendInt(dst, v.i, 10)
	case ValueDouble:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return append(dst, "null"...)
		}
		return strconv.AppendFloat(dst, v.f, 'g', -1, 64)
	case ValueBool:
		return strconv.AppendBool(dst, v.b)
	default:
		return append(dst, "null"...)
	}
}

// Property is one key/value pair of a feature.
type Property struct {
	Key   string
	Value Value
}

// Properties keeps feature attributes in document order.
// A nil Properties means the feature had no properties member (or null),
// an empty non-nil one means it had an empty object.
type Properties []Property

// Keys returns the attribute keys in document order.
func (p Properties) Keys() []string {
	keys := make([]string, len(p))
	for i, prop := range p {
		keys[i] = prop.Key
	}
	return keys
}

// Get looks up a value by key.
func (p Properties) Get(key string) (Value, bool) {
	for _, prop := range p {
		if prop.Key == key {
			return prop.Value, true
		}
	}
	return Value{}, false
}

// Set replaces the value of an existing key in place or appends a new one.
func (p *Properties) Set(key string, v Value) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = v
			return
		}
	}
	*p = append(*p, Property{Key: key, Value: v})
}

// Clone returns an independent copy; nil stays nil.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	copy(out, p)
	return out
}

// Map converts the attributes into a plain map, losing the key order.
func (p Properties) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(p))
	for _, prop := range p {
		m[prop.Key] = prop.Value.Interface()
	}
	return m
}

// MarshalJSON writes the attributes as an object in document order.
// Nil properties are written as an empty object.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(prop.Value.appendJSON(nil))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML writes the attributes as a mapping in document order.
func (p Properties) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, prop := range p {
		var value yaml.Node
		if err := value.Encode(prop.Value.Interface()); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: prop.Key},
			&value,
		)
	}
	return node, nil
}
