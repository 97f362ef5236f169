// Package config handles the dashboard layer catalogue.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Layer types understood by the dashboard map.
const (
	TypeFeatureLayer               = "FeatureLayer"
	TypeGeoJSONLayer               = "GeoJSONLayer"
	TypeSceneLayer                 = "SceneLayer"
	TypeIntegratedMesh3DTilesLayer = "IntegratedMesh3DTilesLayer"
	TypeElevationLayer             = "ElevationLayer"
	TypeWMTSLayer                  = "WMTSLayer"
	TypeVectorTileLayer            = "VectorTileLayer"
	TypeTileLayer                  = "TileLayer"
)

// ErrInvalidLayer is wrapped by every catalogue validation error.
var ErrInvalidLayer = errors.New("config: invalid layer")

// Layer ids double as cache directory names.
var layerID = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9_.-]*$`)

// Config represents the root configuration file structure.
type Config struct {
	DataDir  string  `yaml:"data_dir" json:"-"`
	CacheDir string  `yaml:"cache_dir" json:"-"`
	Layers   []Layer `yaml:"layers" json:"layers"`
}

// Layer is a single entry of the layer catalogue.
type Layer struct {
	Params     map[string]interface{} `yaml:"params" json:"params"`
	ID         string                 `yaml:"id" json:"id"`
	Name       string                 `yaml:"name" json:"name"`
	Type       string                 `yaml:"type" json:"type"`
	URL        string                 `yaml:"url" json:"url"`
	Opacity    float64                `yaml:"opacity" json:"opacity"`
	Local      bool                   `yaml:"local" json:"isLocal"`
	Visible    bool                   `yaml:"visible" json:"visible"`
	OnlyThreeD bool                   `yaml:"-" json:"onlyThreeD"`
}

// UnmarshalYAML fills in the defaults for keys missing from the entry.
func (l *Layer) UnmarshalYAML(node *yaml.Node) error {
	type plain Layer
	raw := plain{Opacity: 1, Visible: true}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*l = Layer(raw)
	if l.Params == nil {
		l.Params = map[string]interface{}{}
	}
	l.OnlyThreeD = IsThreeD(l.Type)

	return nil
}

// IsThreeD reports whether a layer type can only be shown in the 3D scene view.
func IsThreeD(layerType string) bool {
	switch layerType {
	case TypeSceneLayer, TypeIntegratedMesh3DTilesLayer, TypeElevationLayer:
		return true
	}
	return false
}

// Normalizable reports whether the layer source goes through the GeoJSON
// normalization pipeline before reaching the map.
func (l Layer) Normalizable() bool {
	return l.Type == TypeFeatureLayer
}

// Load reads, parses and validates the YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes and validates a YAML catalogue.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks ids, types, urls and opacity of every layer.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Layers))

	for i, l := range c.Layers {
		switch {
		case l.ID == "":
			return fmt.Errorf("%w: layer #%d has no id", ErrInvalidLayer, i)
		case !layerID.MatchString(l.ID):
			return fmt.Errorf("%w: id %q may only contain letters, digits, '.', '_' and '-'", ErrInvalidLayer, l.ID)
		case seen[l.ID]:
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidLayer, l.ID)
		case l.Type == "":
			return fmt.Errorf("%w: %q has no type", ErrInvalidLayer, l.ID)
		case l.URL == "":
			return fmt.Errorf("%w: %q has no url", ErrInvalidLayer, l.ID)
		case l.Opacity < 0 || l.Opacity > 1:
			return fmt.Errorf("%w: %q opacity %v out of [0,1]", ErrInvalidLayer, l.ID, l.Opacity)
		}
		seen[l.ID] = true
	}

	return nil
}

// Layer looks up a layer by id.
func (c *Config) Layer(id string) (Layer, bool) {
	for _, l := range c.Layers {
		if l.ID == id {
			return l, true
		}
	}
	return Layer{}, false
}

// Filter returns the layers whose ids are listed, in the given order.
// Unknown ids are returned separately.
func (c *Config) Filter(ids []string) (layers []Layer, missing []string) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		if l, ok := c.Layer(id); ok {
			layers = append(layers, l)
		} else {
			missing = append(missing, id)
		}
	}
	return layers, missing
}
