package processor

import (
	"context"
	"fmt"

	"github.com/woozymasta/geolayers/internal/config"
	"github.com/woozymasta/geolayers/internal/geo"
	"github.com/woozymasta/geolayers/internal/normalize"
)

// Source loads the feature collection behind a catalogue layer.
type Source interface {
	Load(ctx context.Context, layer config.Layer) (*geo.FeatureCollection, error)
}

// LayerPayload is what the dashboard receives for a normalized layer.
// Extent is [minX, minY, maxX, maxY]; Extent and Center are omitted when the
// records carry no positions.
type LayerPayload struct {
	Layer  *config.Layer     `json:"layer,omitempty"`
	Result *normalize.Result `json:"result"`
	Extent *[4]float64       `json:"extent,omitempty"`
	Center *[2]float64       `json:"center,omitempty"`
}

// NewPayload wraps a normalization result with its extent and centre.
func NewPayload(layer *config.Layer, res *normalize.Result) *LayerPayload {
	p := &LayerPayload{Layer: layer, Result: res}

	if bound, ok := normalize.Extent(res.Records); ok {
		center := bound.Center()
		p.Extent = &[4]float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]}
		p.Center = &[2]float64{center[0], center[1]}
	}

	return p
}

// Build loads and normalizes a single layer.
func Build(ctx context.Context, src Source, layer config.Layer) (*LayerPayload, error) {
	if !layer.Normalizable() {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotNormalizable, layer.ID, layer.Type)
	}

	fc, err := src.Load(ctx, layer)
	if err != nil {
		return nil, err
	}

	res, err := normalize.Process(fc)
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", layer.ID, err)
	}

	return NewPayload(&layer, res), nil
}
