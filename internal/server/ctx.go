package server

import (
	"net/http"
	"os"
	"regexp"

	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	minjson "github.com/tdewolff/minify/v2/json"

	"github.com/woozymasta/geolayers/internal/config"
	"github.com/woozymasta/geolayers/internal/processor"
)

// DefaultMaxBodySize caps uploads to POST /api/normalize.
const DefaultMaxBodySize = 32 << 20

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config      *config.Config
	Source      processor.Source
	Minifier    *minify.M
	layers      map[string]config.Layer
	MaxBodySize int64
}

// NewServerContext indexes the catalogue and reports which layers already
// have a cached payload.
func NewServerContext(cfg *config.Config, src processor.Source) *ServerContext {
	log.Info().Int("config_layers_count", len(cfg.Layers)).Msg("Initializing server context")

	m := minify.New()
	m.AddFuncRegexp(regexp.MustCompile(`[/+]json$`), minjson.Minify)

	layers := make(map[string]config.Layer, len(cfg.Layers))
	cached := 0

	for _, l := range cfg.Layers {
		layers[l.ID] = l

		if !l.Normalizable() {
			log.Trace().
				Str("layer", l.ID).
				Str("type", l.Type).
				Msg("Layer served by URL")
			continue
		}

		if _, err := os.Stat(processor.PayloadPath(cfg.CacheDir, l.ID)); err == nil {
			cached++
			log.Trace().
				Str("layer", l.ID).
				Msg("Cached payload found")
		} else {
			log.Trace().
				Str("layer", l.ID).
				Msg("No cached payload, will normalize on demand")
		}
	}

	log.Info().
		Int("layers_count", len(layers)).
		Int("cached_count", cached).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:      cfg,
		Source:      src,
		Minifier:    m,
		layers:      layers,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// Routes registers every handler on a new mux.
func (s *ServerContext) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/layers", s.HandleLayersList)
	mux.HandleFunc("GET /api/layers/{id}", s.HandleLayer)
	mux.HandleFunc("POST /api/normalize", s.HandleNormalize)
	mux.HandleFunc("GET /data/", s.HandleData)
	return mux
}
