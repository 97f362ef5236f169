// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/woozymasta/geolayers/internal/normalize"
	"github.com/woozymasta/geolayers/internal/processor"
	"github.com/woozymasta/geolayers/internal/source"
)

const etagCap = 64

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error        string `json:"error"`
	Message      string `json:"message"`
	GeometryType string `json:"geometryType,omitempty"`
}

// HandleLayersList serves the layer catalogue.
func (s *ServerContext) HandleLayersList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Config.Layers)
}

// HandleLayer serves the normalized payload of a FeatureLayer, from the
// cache when the loader has produced one.
func (s *ServerContext) HandleLayer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	layer, ok := s.layers[id]
	if !ok {
		writeError(w, http.StatusNotFound, "NotFound", "unknown layer "+strconv.Quote(id))
		return
	}

	if !layer.Normalizable() {
		writeError(w, http.StatusConflict, "NotNormalizable", layer.Type+" layers are loaded from their own url")
		return
	}

	if s.serveFile(w, r, processor.PayloadPath(s.Config.CacheDir, id), "application/json") {
		return
	}

	payload, err := processor.Build(r.Context(), s.Source, layer)
	if err != nil {
		var failure *normalize.Failure
		if errors.As(err, &failure) {
			writeFailure(w, r, failure)
			return
		}

		zerolog.Ctx(r.Context()).Error().Err(err).Str("layer", id).Msg("Failed to load layer source")
		writeError(w, http.StatusBadGateway, "SourceError", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

// HandleNormalize runs an uploaded GeoJSON, KML or KMZ document through the
// pipeline. The format is taken from the Content-Type header.
func (s *ServerContext) HandleNormalize(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "TooLarge", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}

	fc, err := source.Decode(data, source.FormatFromContentType(r.Header.Get("Content-Type")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}

	res, err := normalize.Process(fc)
	if err != nil {
		var failure *normalize.Failure
		if errors.As(err, &failure) {
			writeFailure(w, r, failure)
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, processor.NewPayload(nil, res))
}

// HandleData serves local layer files below the data directory.
// JSON and GeoJSON are minified on the way out.
func (s *ServerContext) HandleData(w http.ResponseWriter, r *http.Request) {
	rel := path.Clean("/" + strings.TrimPrefix(r.URL.Path, "/data/"))
	file := filepath.Join(s.Config.DataDir, filepath.FromSlash(rel))

	contentType := ""
	switch strings.ToLower(path.Ext(rel)) {
	case ".geojson":
		s.serveMinified(w, r, file, "application/geo+json")
		return
	case ".json":
		s.serveMinified(w, r, file, "application/json")
		return
	case ".kml":
		contentType = "application/vnd.google-earth.kml+xml"
	case ".kmz":
		contentType = "application/vnd.google-earth.kmz"
	}

	if !s.serveFile(w, r, file, contentType) {
		http.NotFound(w, r)
	}
}

func (s *ServerContext) serveMinified(w http.ResponseWriter, r *http.Request, file, contentType string) {
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	etag := fileETag(info)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	f, err := os.Open(file)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	w.Header().Set("Content-Type", contentType)

	if err := s.Minifier.Minify(contentType, w, f); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", file).Msg("Failed to minify file")
	}
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, file string, contentType string) bool {
	info, err := os.Stat(file)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}

	etag := fileETag(info)

	// check If-None-Match (client sent ETag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, file)
	return true
}

func fileETag(info os.FileInfo) string {
	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	return string(buf)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Error: kind, Message: message})
}

// writeFailure answers 422 for a collection the pipeline rejected.
func writeFailure(w http.ResponseWriter, r *http.Request, f *normalize.Failure) {
	zerolog.Ctx(r.Context()).Warn().
		Str("kind", string(f.Kind)).
		Str("geometry", f.GeometryType).
		Msg("Layer not added")

	writeJSON(w, http.StatusUnprocessableEntity, errorBody{
		Error:        string(f.Kind),
		Message:      f.Error(),
		GeometryType: f.GeometryType,
	})
}
