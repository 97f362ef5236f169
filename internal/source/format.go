// Package source loads layer data from disk or over HTTP and turns KML and
// KMZ documents into GeoJSON feature collections.
package source

import (
	"path"
	"strings"
)

// Format is the encoding of a layer source.
type Format string

const (
	FormatGeoJSON Format = "geojson"
	FormatKML     Format = "kml"
	FormatKMZ     Format = "kmz"
)

// DetectFormat picks the format from the file extension of a path or URL.
// Query strings and fragments are ignored; unknown extensions are GeoJSON.
func DetectFormat(name string) Format {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}

	switch strings.ToLower(path.Ext(name)) {
	case ".kml":
		return FormatKML
	case ".kmz":
		return FormatKMZ
	default:
		return FormatGeoJSON
	}
}

// FormatFromContentType maps an HTTP Content-Type to a format.
func FormatFromContentType(contentType string) Format {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))

	switch mediaType {
	case "application/vnd.google-earth.kml+xml", "application/xml", "text/xml":
		return FormatKML
	case "application/vnd.google-earth.kmz", "application/zip":
		return FormatKMZ
	default:
		return FormatGeoJSON
	}
}
