package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woozymasta/geolayers/internal/config"
	"github.com/woozymasta/geolayers/internal/processor"
	"github.com/woozymasta/geolayers/internal/source"
)

const (
	districts = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [2, 0], [2, 2], [0, 0]]]}, "properties": {"name": "North", "pop": 120}},
    {"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[4, 4], [6, 4], [6, 6], [4, 4]]]}, "properties": {"pop": 80, "name": "South"}}
  ]
}`
	inconsistent = `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"a":1}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[1,1]}}
	]}`
	collection = `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"GeometryCollection","geometries":[]},"properties":{"a":1}}
	]}`
)

func newTestServer(t *testing.T) (*ServerContext, http.Handler) {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	cacheDir := filepath.Join(root, "cache")

	for name, content := range map[string]string{
		"districts.geojson":    districts,
		"inconsistent.geojson": inconsistent,
		"notes.txt":            "plain",
	} {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	cfg, err := config.Parse([]byte(`
layers:
  - {id: districts, name: Districts, type: FeatureLayer, url: /districts.geojson, local: true}
  - {id: broken, name: Broken, type: FeatureLayer, url: /inconsistent.geojson, local: true}
  - {id: missing, name: Missing, type: FeatureLayer, url: /missing.geojson, local: true}
  - {id: buildings, name: Buildings, type: SceneLayer, url: https://example.com/SceneServer}
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	cfg.DataDir = dataDir
	cfg.CacheDir = cacheDir

	s := NewServerContext(cfg, &source.Loader{DataDir: dataDir})
	return s, RequestLogger(s.Routes())
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
}

func TestHandleLayersList(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/layers", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var layers []map[string]interface{}
	decodeBody(t, rec, &layers)
	if len(layers) != 4 {
		t.Fatalf("expected 4 layers, got %d", len(layers))
	}
	if layers[3]["onlyThreeD"] != true || layers[0]["onlyThreeD"] != false {
		t.Errorf("unexpected onlyThreeD flags: %v", layers)
	}
}

func TestHandleLayerOnDemand(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/layers/districts", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var payload struct {
		Layer  config.Layer `json:"layer"`
		Result struct {
			GeometryType string            `json:"geometryType"`
			TitleField   string            `json:"titleField"`
			Records      []json.RawMessage `json:"records"`
		} `json:"result"`
		Extent []float64 `json:"extent"`
		Center []float64 `json:"center"`
	}
	decodeBody(t, rec, &payload)

	if payload.Layer.ID != "districts" || payload.Result.GeometryType != "polygon" || payload.Result.TitleField != "name" {
		t.Errorf("unexpected payload %s", rec.Body)
	}
	if len(payload.Result.Records) != 2 {
		t.Errorf("expected 2 records, got %d", len(payload.Result.Records))
	}
	if len(payload.Center) != 2 || payload.Center[0] != 3 || payload.Center[1] != 3 {
		t.Errorf("unexpected center %v", payload.Center)
	}
}

func TestHandleLayerFromCache(t *testing.T) {
	s, h := newTestServer(t)

	cached := `{"result":{"records":[]},"cached":true}`
	path := processor.PayloadPath(s.Config.CacheDir, "districts")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(cached), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/layers/districts", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != cached {
		t.Fatalf("expected cached payload, got %d %q", rec.Code, rec.Body)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/layers/districts", nil)
	req.Header.Set("If-None-Match", etag)
	if rec := do(h, req); rec.Code != http.StatusNotModified {
		t.Errorf("expected 304, got %d", rec.Code)
	}
}

func TestHandleLayerErrors(t *testing.T) {
	_, h := newTestServer(t)

	tests := []struct {
		path   string
		status int
		kind   string
	}{
		{"/api/layers/nope", http.StatusNotFound, "NotFound"},
		{"/api/layers/buildings", http.StatusConflict, "NotNormalizable"},
		{"/api/layers/broken", http.StatusUnprocessableEntity, "InconsistentFeatures"},
		{"/api/layers/missing", http.StatusBadGateway, "SourceError"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(h, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body)
			}
			var body errorBody
			decodeBody(t, rec, &body)
			if body.Error != tt.kind || body.Message == "" {
				t.Errorf("unexpected error body %+v", body)
			}
		})
	}
}

func TestHandleNormalize(t *testing.T) {
	_, h := newTestServer(t)

	kml := `<kml><Document><Placemark><name>Gate</name><Point><coordinates>121.5,25</coordinates></Point></Placemark></Document></kml>`

	tests := []struct {
		name        string
		body        string
		contentType string
		status      int
		want        string
	}{
		{"GeoJSON", districts, "application/geo+json", http.StatusOK, `"geometryType":"polygon"`},
		{"KML", kml, "application/vnd.google-earth.kml+xml", http.StatusOK, `"titleField":"name"`},
		{"Unsupported", collection, "application/json", http.StatusUnprocessableEntity, `"geometryType":"GeometryCollection"`},
		{"Empty", `{"type":"FeatureCollection","features":[]}`, "application/json", http.StatusUnprocessableEntity, `"error":"EmptyInput"`},
		{"Malformed", `{"type":`, "application/json", http.StatusBadRequest, `"error":"BadRequest"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/normalize", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)

			rec := do(h, req)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("expected body to contain %s, got %s", tt.want, rec.Body)
			}
		})
	}
}

func TestHandleNormalizeTooLarge(t *testing.T) {
	s, h := newTestServer(t)
	s.MaxBodySize = 16

	req := httptest.NewRequest(http.MethodPost, "/api/normalize", strings.NewReader(districts))
	if rec := do(h, req); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestHandleNormalizeMethod(t *testing.T) {
	_, h := newTestServer(t)

	if rec := do(h, httptest.NewRequest(http.MethodGet, "/api/normalize", nil)); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestHandleDataMinifiesGeoJSON(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/data/districts.geojson", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	if strings.ContainsAny(body, "\n ") {
		t.Errorf("expected minified JSON, got %q", body)
	}
	if !json.Valid(rec.Body.Bytes()) {
		t.Errorf("minified output is not valid JSON: %q", body)
	}

	req := httptest.NewRequest(http.MethodGet, "/data/districts.geojson", nil)
	req.Header.Set("If-None-Match", rec.Header().Get("ETag"))
	if rec := do(h, req); rec.Code != http.StatusNotModified {
		t.Errorf("expected 304, got %d", rec.Code)
	}
}

func TestHandleDataOtherFiles(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/data/notes.txt", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "plain" {
		t.Errorf("expected plain file, got %d %q", rec.Code, rec.Body)
	}

	if rec := do(h, httptest.NewRequest(http.MethodGet, "/data/none.geojson", nil)); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRequestLoggerRequestID(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/layers", nil))
	if id := rec.Header().Get(RequestIDHeader); len(id) != 36 {
		t.Errorf("expected a generated uuid, got %q", id)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/layers", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	if id := do(h, req).Header().Get(RequestIDHeader); id != "abc-123" {
		t.Errorf("expected the incoming id to be echoed, got %q", id)
	}
}
