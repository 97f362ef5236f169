package processor

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geolayers/internal/export"
)

// Cache file names inside <cache>/<layer id>/.
const (
	PayloadFile    = "layer.json"
	FlatGeobufFile = "layer.fgb"
)

// PayloadPath returns where the cached payload of a layer lives.
func PayloadPath(cacheDir, layerID string) string {
	return filepath.Join(cacheDir, layerID, PayloadFile)
}

// FlatGeobufPath returns where the FlatGeobuf export of a layer lives.
func FlatGeobufPath(cacheDir, layerID string) string {
	return filepath.Join(cacheDir, layerID, FlatGeobufFile)
}

// SavePayload writes the FlatGeobuf export and then the payload JSON of a
// layer. The payload marks the entry as complete, so it is written last.
// A result without positions gets no FlatGeobuf file.
func SavePayload(cacheDir string, p *LayerPayload) error {
	dir := filepath.Join(cacheDir, p.Layer.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	fgbPath := FlatGeobufPath(cacheDir, p.Layer.ID)
	err := writeFile(fgbPath, func(f *os.File) error {
		return export.WriteFlatGeobuf(f, p.Result, p.Layer.Name)
	})
	switch {
	case errors.Is(err, export.ErrNoRecords):
		log.Debug().Str("layer", p.Layer.ID).Msg("No positions to export, FlatGeobuf skipped")
		if err := os.Remove(fgbPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	case err != nil:
		return err
	}

	return writeFile(PayloadPath(cacheDir, p.Layer.ID), func(f *os.File) error {
		return json.NewEncoder(f).Encode(p)
	})
}

// writeFile writes through a temporary file renamed into place, so readers
// never see a partial cache entry.
func writeFile(path string, write func(f *os.File) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}

	// We care about write errors on close
	if err = tmp.Close(); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to close file")
		return err
	}

	return os.Rename(tmp.Name(), path)
}
