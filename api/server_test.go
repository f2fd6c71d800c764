package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pawel-madurski/elasticsearch-image/core"
	"github.com/pawel-madurski/elasticsearch-image/docstore"
	"github.com/pawel-madurski/elasticsearch-image/engine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	eng := engine.NewEngine(docstore.NewMemoryStore(), engine.DefaultOptions())
	return NewServer(eng, DefaultServerConfig())
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func testPNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	return buf.Bytes()
}

func createIndexRequest() CreateIndexRequest {
	return CreateIndexRequest{
		Mapping: core.Mapping{Fields: map[string]core.FieldMapping{
			"img": {
				Features: []core.FeatureKind{core.FeatureColorHistogram},
				Hashes:   []core.HashKind{core.HashBitSampling},
			},
		}},
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var health HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("unexpected status: %s", health.Status)
	}
}

func TestIndexLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, "PUT", "/photos", createIndexRequest())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, "PUT", "/photos", createIndexRequest())
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate create should be 409, got %d", rec.Code)
	}

	rec = doRequest(t, s, "GET", "/indices", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var indices []IndexResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &indices); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(indices) != 1 || indices[0].Name != "photos" {
		t.Errorf("unexpected indices: %+v", indices)
	}

	rec = doRequest(t, s, "DELETE", "/photos", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, s, "DELETE", "/photos", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleting a missing index should be 404, got %d", rec.Code)
	}
}

func TestIndexDocumentAndSearch(t *testing.T) {
	s := newTestServer(t)

	if rec := doRequest(t, s, "PUT", "/photos", createIndexRequest()); rec.Code != http.StatusCreated {
		t.Fatalf("create index failed: %d %s", rec.Code, rec.Body.String())
	}

	red := testPNG(t, color.RGBA{R: 255, A: 255})

	rec := doRequest(t, s, "PUT", "/photos/photo/red", map[string][]byte{"img": red})
	if rec.Code != http.StatusCreated {
		t.Fatalf("index document failed: %d %s", rec.Code, rec.Body.String())
	}

	searchBody := map[string]interface{}{
		"size": 10,
		"query": map[string]interface{}{
			"image": map[string]interface{}{
				"img": map[string]interface{}{
					"feature": "COLORHISTOGRAM",
					"image":   red,
					"hash":    "BIT_SAMPLING",
				},
			},
		},
	}

	rec = doRequest(t, s, "POST", "/photos/_search", searchBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("search failed: %d %s", rec.Code, rec.Body.String())
	}

	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.Total != 1 || len(resp.Hits) != 1 || resp.Hits[0].ID != "red" {
		t.Errorf("unexpected search response: %+v", resp)
	}
}

func TestIndexDocumentAutoID(t *testing.T) {
	s := newTestServer(t)

	if rec := doRequest(t, s, "PUT", "/photos", createIndexRequest()); rec.Code != http.StatusCreated {
		t.Fatalf("create index failed: %d", rec.Code)
	}

	rec := doRequest(t, s, "POST", "/photos/photo",
		map[string][]byte{"img": testPNG(t, color.RGBA{G: 255, A: 255})})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp IndexDocumentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.ID == "" {
		t.Error("expected a generated document ID")
	}
}

func TestGetAndDeleteDocument(t *testing.T) {
	s := newTestServer(t)

	if rec := doRequest(t, s, "PUT", "/photos", createIndexRequest()); rec.Code != http.StatusCreated {
		t.Fatalf("create index failed: %d", rec.Code)
	}
	if rec := doRequest(t, s, "PUT", "/photos/photo/1",
		map[string][]byte{"img": testPNG(t, color.RGBA{B: 255, A: 255})}); rec.Code != http.StatusCreated {
		t.Fatalf("index document failed: %d", rec.Code)
	}

	rec := doRequest(t, s, "GET", "/photos/photo/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var doc core.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(doc.Fields["img.COLORHISTOGRAM"]) == 0 {
		t.Error("document should carry its extracted feature field")
	}

	rec = doRequest(t, s, "DELETE", "/photos/photo/1", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, s, "GET", "/photos/photo/1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestSearchRejectsUnknownParameter(t *testing.T) {
	s := newTestServer(t)

	if rec := doRequest(t, s, "PUT", "/photos", createIndexRequest()); rec.Code != http.StatusCreated {
		t.Fatalf("create index failed: %d", rec.Code)
	}

	searchBody := map[string]interface{}{
		"query": map[string]interface{}{
			"image": map[string]interface{}{
				"img": map[string]interface{}{
					"feature":   "COLORHISTOGRAM",
					"image":     testPNG(t, color.RGBA{A: 255}),
					"fuzziness": 2,
				},
			},
		},
	}

	rec := doRequest(t, s, "POST", "/photos/_search", searchBody)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "does not support [fuzziness]") {
		t.Errorf("error should name the offending parameter: %s", rec.Body.String())
	}
}

func TestSearchRejectsMissingFeature(t *testing.T) {
	s := newTestServer(t)

	if rec := doRequest(t, s, "PUT", "/photos", createIndexRequest()); rec.Code != http.StatusCreated {
		t.Fatalf("create index failed: %d", rec.Code)
	}

	searchBody := map[string]interface{}{
		"query": map[string]interface{}{
			"image": map[string]interface{}{
				"img": map[string]interface{}{
					"image": testPNG(t, color.RGBA{A: 255}),
				},
			},
		},
	}

	rec := doRequest(t, s, "POST", "/photos/_search", searchBody)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing feature should be 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSearchMissingIndex(t *testing.T) {
	s := newTestServer(t)

	searchBody := map[string]interface{}{
		"query": map[string]interface{}{
			"image": map[string]interface{}{
				"img": map[string]interface{}{
					"feature": "COLORHISTOGRAM",
					"image":   testPNG(t, color.RGBA{A: 255}),
				},
			},
		},
	}

	rec := doRequest(t, s, "POST", "/ghost/_search", searchBody)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}
