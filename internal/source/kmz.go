package source

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoKML is returned for a KMZ archive without a .kml entry.
var ErrNoKML = errors.New("source: no KML document in KMZ archive")

// UnzipKMZ returns the first .kml document found in a KMZ archive.
func UnzipKMZ(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("source: open KMZ: %w", err)
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(f.Name), ".kml") {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("source: open %s: %w", f.Name, err)
		}
		doc, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("source: read %s: %w", f.Name, err)
		}

		return doc, nil
	}

	return nil, ErrNoKML
}
