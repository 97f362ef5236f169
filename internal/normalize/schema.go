package normalize

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/woozymasta/geolayers/internal/geo"
)

// DefaultIDField is used when the features carry no attributes at all.
const DefaultIDField = "OBJECTID"

// FieldType is the primitive column type inferred for an attribute.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldDouble  FieldType = "double"
)

// Field describes one attribute column.
type Field struct {
	Name  string    `json:"name" yaml:"name"`
	Type  FieldType `json:"type" yaml:"type"`
	Label string    `json:"label" yaml:"label"`
}

// Schema is the column metadata derived from a feature collection.
type Schema struct {
	// TitleField is empty when the features have no attributes.
	TitleField string
	IDField    string
	Fields     []Field
}

// Substring keywords, highest priority first.
var titleKeywords = []string{"name", "title", "label", "id", "code", "name_zh", "name_en"}

// Exact key names, highest priority first.
var idKeywords = []string{"id", "objectid", "fid", "gid", "oid", "no", "code"}

var camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

// InferSchema derives title, identity and column metadata from the first
// feature only. Later features are assumed to share its keys and value types.
func InferSchema(features []geo.Feature) Schema {
	if len(features) == 0 {
		return Schema{IDField: DefaultIDField, Fields: []Field{}}
	}

	props := features[0].Properties
	keys := props.Keys()

	fields := make([]Field, 0, len(props))
	for _, prop := range props {
		fields = append(fields, Field{
			Name:  prop.Key,
			Type:  InferFieldType(prop.Value),
			Label: FormatFieldLabel(prop.Key),
		})
	}

	return Schema{
		TitleField: FindTitleField(keys),
		IDField:    FindIDField(keys),
		Fields:     fields,
	}
}

// FindTitleField returns the first key whose lower-cased form contains a
// title keyword, trying keywords in priority order. Without a match the first
// key wins; without keys the result is empty.
func FindTitleField(keys []string) string {
	for _, keyword := range titleKeywords {
		for _, key := range keys {
			if strings.Contains(strings.ToLower(key), keyword) {
				return key
			}
		}
	}
	if len(keys) > 0 {
		return keys[0]
	}
	return ""
}

// FindIDField returns the first key equal (ignoring case) to an identity
// keyword, trying keywords in priority order. Without a match the first key
// wins; without keys DefaultIDField is returned.
func FindIDField(keys []string) string {
	for _, keyword := range idKeywords {
		for _, key := range keys {
			if strings.ToLower(key) == keyword {
				return key
			}
		}
	}
	if len(keys) > 0 {
		return keys[0]
	}
	return DefaultIDField
}

// InferFieldType classifies a sample value: whole numbers are integer, other
// numbers double, everything else (null and bool included) string.
func InferFieldType(v geo.Value) FieldType {
	switch v.Kind() {
	case geo.ValueInteger:
		return FieldInteger
	case geo.ValueDouble:
		if f := v.Float(); f == math.Trunc(f) && !math.IsInf(f, 0) {
			return FieldInteger
		}
		return FieldDouble
	default:
		return FieldString
	}
}

// FormatFieldLabel makes a display label from an attribute key. All-caps keys
// such as OBJECTID are kept; otherwise underscores become spaces, camelCase
// boundaries are split and the first letter is capitalized.
func FormatFieldLabel(name string) string {
	if name == strings.ToUpper(name) {
		return name
	}

	label := strings.ReplaceAll(name, "_", " ")
	label = camelBoundary.ReplaceAllString(label, "$1 $2")

	if r, size := utf8.DecodeRuneInString(label); r != utf8.RuneError {
		label = string(unicode.ToUpper(r)) + label[size:]
	}

	return strings.TrimSpace(label)
}
