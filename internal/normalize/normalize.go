// Package normalize turns a GeoJSON FeatureCollection into flat single-part
// records plus column metadata, ready for bulk loading into a feature table.
//
// All functions are pure: they keep no state between calls and may run
// concurrently.
package normalize

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geolayers/internal/geo"
)

// Pipeline errors, matched with errors.Is against a *Failure.
var (
	ErrEmptyInput           = errors.New("normalize: feature collection is empty")
	ErrInconsistentFeatures = errors.New("normalize: features differ in geometry type or attribute keys")
	ErrUnsupportedGeometry  = errors.New("normalize: unsupported geometry type")
)

// FailureKind names why a collection was rejected.
type FailureKind string

const (
	FailureEmptyInput          FailureKind = "EmptyInput"
	FailureInconsistent        FailureKind = "InconsistentFeatures"
	FailureUnsupportedGeometry FailureKind = "UnsupportedGeometry"
)

// Failure is returned when a collection cannot be normalized. No partial
// result accompanies it.
type Failure struct {
	Kind FailureKind
	// GeometryType is set for FailureUnsupportedGeometry.
	GeometryType string
}

func (f *Failure) Error() string {
	if f.Kind == FailureUnsupportedGeometry {
		return fmt.Sprintf("%s %q", ErrUnsupportedGeometry, f.GeometryType)
	}
	return f.sentinel().Error()
}

// Is lets errors.Is match the package sentinels.
func (f *Failure) Is(target error) bool {
	return target == f.sentinel()
}

func (f *Failure) sentinel() error {
	switch f.Kind {
	case FailureEmptyInput:
		return ErrEmptyInput
	case FailureInconsistent:
		return ErrInconsistentFeatures
	default:
		return ErrUnsupportedGeometry
	}
}

// Result is the normalized form of one FeatureCollection.
type Result struct {
	PopupTemplate      *PopupTemplate `json:"popupTemplate" yaml:"popupTemplate"`
	GeometryType       string         `json:"geometryType" yaml:"geometryType"`
	SourceGeometryType string         `json:"originalGeometryType" yaml:"originalGeometryType"`
	TitleField         string         `json:"titleField,omitempty" yaml:"titleField,omitempty"`
	IDField            string         `json:"idField" yaml:"idField"`
	Records            []Record       `json:"records" yaml:"records"`
	Fields             []Field        `json:"fields" yaml:"fields"`
}

// Process validates and normalizes a collection:
//  1. no features              -> FailureEmptyInput
//  2. mixed geometry or keys   -> FailureInconsistent
//  3. unsupported geometry     -> FailureUnsupportedGeometry
//  4. flat records, schema and popup template otherwise
func Process(fc *geo.FeatureCollection) (*Result, error) {
	if fc == nil || len(fc.Features) == 0 {
		return nil, &Failure{Kind: FailureEmptyInput}
	}

	features := fc.Features
	if !CheckConsistency(features) {
		return nil, &Failure{Kind: FailureInconsistent}
	}

	sourceType := features[0].GeometryType()
	targetType, ok := TargetGeometryType(sourceType)
	if !ok {
		return nil, &Failure{Kind: FailureUnsupportedGeometry, GeometryType: sourceType}
	}

	records, err := Normalize(features, sourceType)
	if err != nil {
		return nil, err
	}

	schema := InferSchema(features)

	log.Debug().
		Str("geometry", sourceType).
		Int("features", len(features)).
		Int("records", len(records)).
		Int("fields", len(schema.Fields)).
		Str("title_field", schema.TitleField).
		Str("id_field", schema.IDField).
		Msg("Feature collection normalized")

	return &Result{
		Records:            records,
		GeometryType:       targetType,
		SourceGeometryType: sourceType,
		PopupTemplate:      BuildPopupTemplate(features),
		TitleField:         schema.TitleField,
		IDField:            schema.IDField,
		Fields:             schema.Fields,
	}, nil
}
