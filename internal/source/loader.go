package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geolayers/internal/config"
	"github.com/woozymasta/geolayers/internal/geo"
)

var (
	// ErrOutsideDataDir is returned for local urls resolving outside the data directory.
	ErrOutsideDataDir = errors.New("source: path escapes data directory")
	// ErrStatus is wrapped when a remote source answers with a non-200 status.
	ErrStatus = errors.New("source: unexpected HTTP status")
)

// Loader fetches layer sources. Local layers are read relative to DataDir,
// remote ones are downloaded with Client.
type Loader struct {
	Client  *http.Client
	DataDir string
}

// NewLoader returns a loader with a pooled HTTP client.
func NewLoader(dataDir string, timeout time.Duration) *Loader {
	return &Loader{
		Client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
			},
			Timeout: timeout,
		},
		DataDir: dataDir,
	}
}

// Load fetches the layer source and decodes it into a feature collection.
func (l *Loader) Load(ctx context.Context, layer config.Layer) (*geo.FeatureCollection, error) {
	data, err := l.Fetch(ctx, layer)
	if err != nil {
		return nil, err
	}

	fc, err := Decode(data, DetectFormat(layer.URL))
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", layer.ID, err)
	}

	log.Debug().
		Str("layer", layer.ID).
		Int("bytes", len(data)).
		Int("features", len(fc.Features)).
		Msg("Layer source loaded")

	return fc, nil
}

// Fetch returns the raw bytes of the layer source.
func (l *Loader) Fetch(ctx context.Context, layer config.Layer) ([]byte, error) {
	if layer.Local {
		path, err := l.LocalPath(layer.URL)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(path)
	}

	return l.download(ctx, layer.URL)
}

// LocalPath resolves a local layer url inside DataDir.
func (l *Loader) LocalPath(url string) (string, error) {
	root, err := filepath.Abs(l.DataDir)
	if err != nil {
		return "", err
	}

	path := filepath.Join(root, filepath.FromSlash(url))
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideDataDir, url)
	}

	return path, nil
}

func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d from %s", ErrStatus, resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}

// Decode parses raw source bytes of the given format.
func Decode(data []byte, format Format) (*geo.FeatureCollection, error) {
	switch format {
	case FormatKMZ:
		doc, err := UnzipKMZ(data)
		if err != nil {
			return nil, err
		}
		return ParseKML(doc)
	case FormatKML:
		return ParseKML(data)
	default:
		return geo.Decode(data)
	}
}
