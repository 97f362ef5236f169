package normalize

import (
	"sort"

	"github.com/woozymasta/geolayers/internal/geo"
)

// CheckConsistency reports whether all features share the geometry type of
// the first feature and the same attribute key set. Key order does not
// matter; if the first feature has no properties, none of them may.
// An empty slice is consistent.
func CheckConsistency(features []geo.Feature) bool {
	if len(features) == 0 {
		return true
	}

	first := features[0]
	geometryType := first.GeometryType()

	if first.Properties == nil {
		for _, f := range features {
			if f.GeometryType() != geometryType || f.Properties != nil {
				return false
			}
		}
		return true
	}

	refKeys := sortedKeys(first.Properties)
	for _, f := range features {
		if f.GeometryType() != geometryType || f.Properties == nil {
			return false
		}
		if !equalKeys(refKeys, sortedKeys(f.Properties)) {
			return false
		}
	}

	return true
}

func sortedKeys(props geo.Properties) []string {
	keys := props.Keys()
	sort.Strings(keys)
	return keys
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
