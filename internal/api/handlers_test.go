package api

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/s1prep/internal/catalog"
)

// brokenCatalog fails every read.
type brokenCatalog struct{}

func (brokenCatalog) List() ([]*stac.Item, error) { return nil, errors.New("disk on fire") }
func (brokenCatalog) Get(string) (*stac.Item, error) {
	return nil, errors.New("disk on fire")
}
func (brokenCatalog) DataPath(*stac.Item) (string, error) { return "", errors.New("disk on fire") }

func createTestItem(id string) *stac.Item {
	return &stac.Item{
		Version:    catalog.Version,
		Id:         id,
		Collection: catalog.CollectionID,
		Properties: map[string]any{"datetime": "2023-01-01T10:20:30Z"},
		Assets: map[string]*stac.Asset{
			"data": {Href: id + ".tif", Type: catalog.GeoTIFFMediaType, Roles: []string{"data"}},
		},
		Links: []*stac.Link{},
	}
}

// createTestServer fills a catalog directory with n items and returns a router over it.
func createTestServer(t *testing.T, ids ...string) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()
	store := catalog.NewStore(dir)
	for _, id := range ids {
		if err := store.Put(createTestItem(id)); err != nil {
			t.Fatalf("Put(%s) failed: %v", id, err)
		}
		if err := os.WriteFile(filepath.Join(dir, id+".tif"), []byte("GeoTIFF:"+id), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandlers(store, Options{BaseURL: "http://localhost:8080/"}, logger)
	return NewRouter(h, logger), dir
}

func get(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeCollection(t *testing.T, w *httptest.ResponseRecorder) catalog.ItemCollection {
	t.Helper()
	var ic catalog.ItemCollection
	if err := json.Unmarshal(w.Body.Bytes(), &ic); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	return ic
}

func findLink(links []*stac.Link, rel string) *stac.Link {
	for _, l := range links {
		if l.Rel == rel {
			return l
		}
	}
	return nil
}

func TestHandlers_LandingPage(t *testing.T) {
	router, _ := createTestServer(t)

	w := get(t, router, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var landing catalog.LandingPage
	if err := json.Unmarshal(w.Body.Bytes(), &landing); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if landing.Type != "Catalog" || landing.Id != catalog.CollectionID {
		t.Errorf("unexpected landing page %+v", landing)
	}
	if l := findLink(landing.Links, "items"); l == nil || l.Href != "http://localhost:8080/items" {
		t.Errorf("Expected items link, got %+v", landing.Links)
	}
}

func TestHandlers_Items_Paging(t *testing.T) {
	router, _ := createTestServer(t, "scene-a", "scene-b", "scene-c")

	w := get(t, router, "/items?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("Expected Content-Type application/geo+json, got %s", ct)
	}

	ic := decodeCollection(t, w)
	if len(ic.Features) != 2 || ic.NumberMatched != 3 || ic.NumberReturned != 2 {
		t.Fatalf("unexpected page: %d features, matched %d", len(ic.Features), ic.NumberMatched)
	}
	if ic.Features[0].Id != "scene-a" || ic.Features[1].Id != "scene-b" {
		t.Errorf("items not in id order: %s, %s", ic.Features[0].Id, ic.Features[1].Id)
	}

	next := findLink(ic.Links, "next")
	if next == nil {
		t.Fatal("Expected next link on first page")
	}
	if next.Href != "http://localhost:8080/items?limit=2&offset=2" {
		t.Errorf("unexpected next link %s", next.Href)
	}
	if findLink(ic.Links, "prev") != nil {
		t.Error("first page must not have a prev link")
	}

	w = get(t, router, "/items?limit=2&offset=2")
	ic = decodeCollection(t, w)
	if len(ic.Features) != 1 || ic.Features[0].Id != "scene-c" {
		t.Fatalf("unexpected second page: %+v", ic.Features)
	}
	if findLink(ic.Links, "next") != nil {
		t.Error("last page must not have a next link")
	}
	if prev := findLink(ic.Links, "prev"); prev == nil || prev.Href != "http://localhost:8080/items?limit=2" {
		t.Errorf("unexpected prev link %+v", prev)
	}
}

func TestHandlers_Items_EmptyCatalog(t *testing.T) {
	router, _ := createTestServer(t)

	ic := decodeCollection(t, get(t, router, "/items"))
	if ic.Type != "FeatureCollection" || len(ic.Features) != 0 {
		t.Errorf("unexpected empty collection %+v", ic)
	}
}

func TestHandlers_Items_InvalidParameters(t *testing.T) {
	router, _ := createTestServer(t, "scene-a")

	for _, target := range []string{"/items?limit=0", "/items?limit=abc", "/items?offset=-1"} {
		w := get(t, router, target)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", target, w.Code)
		}
		var resp STACError
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}
		if resp.Code != ErrCodeInvalidParameter {
			t.Errorf("%s: expected code %s, got %s", target, ErrCodeInvalidParameter, resp.Code)
		}
	}
}

func TestHandlers_Items_LimitCapped(t *testing.T) {
	router, _ := createTestServer(t, "scene-a")

	ic := decodeCollection(t, get(t, router, "/items?limit=100000"))
	self := findLink(ic.Links, "self")
	if self == nil || !strings.Contains(self.Href, "limit=250") {
		t.Errorf("Expected limit capped at 250, got %+v", self)
	}
}

func TestHandlers_Item(t *testing.T) {
	router, _ := createTestServer(t, "scene-a")

	w := get(t, router, "/items/scene-a")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var item stac.Item
	if err := json.Unmarshal(w.Body.Bytes(), &item); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if item.Id != "scene-a" {
		t.Errorf("Expected item scene-a, got %s", item.Id)
	}
	if self := findLink(item.Links, "self"); self == nil || self.Href != "http://localhost:8080/items/scene-a" {
		t.Errorf("unexpected self link %+v", self)
	}
	if item.Assets["data"].Href != "http://localhost:8080/items/scene-a/data" {
		t.Errorf("data asset should point at the data endpoint, got %s", item.Assets["data"].Href)
	}
}

func TestHandlers_Item_NotFound(t *testing.T) {
	router, _ := createTestServer(t, "scene-a")

	for _, target := range []string{"/items/missing", "/items/.hidden", "/items/missing/data"} {
		w := get(t, router, target)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", target, w.Code)
		}
	}
}

func TestHandlers_ItemData(t *testing.T) {
	router, dir := createTestServer(t, "scene-a")

	w := get(t, router, "/items/scene-a/data")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "GeoTIFF:scene-a" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != catalog.GeoTIFFMediaType {
		t.Errorf("Expected Content-Type %s, got %s", catalog.GeoTIFFMediaType, ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "scene-a.tif") {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}

	// ranges are served for partial reads of large rasters
	req := httptest.NewRequest(http.MethodGet, "/items/scene-a/data", nil)
	req.Header.Set("Range", "bytes=0-6")
	rw := httptest.NewRecorder()
	router.ServeHTTP(rw, req)
	if rw.Code != http.StatusPartialContent || rw.Body.String() != "GeoTIFF" {
		t.Errorf("Expected partial content, got %d %q", rw.Code, rw.Body.String())
	}

	// sidecar without raster
	if err := os.Remove(filepath.Join(dir, "scene-a.tif")); err != nil {
		t.Fatal(err)
	}
	if w := get(t, router, "/items/scene-a/data"); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for missing raster, got %d", w.Code)
	}
}

func TestHandlers_Health(t *testing.T) {
	router, _ := createTestServer(t)

	w := get(t, router, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestHandlers_CatalogFailures(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(NewHandlers(brokenCatalog{}, Options{}, logger), logger)

	tests := []struct {
		target string
		want   int
	}{
		{"/health", http.StatusServiceUnavailable},
		{"/items", http.StatusInternalServerError},
		{"/items/scene-a", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if w := get(t, router, tt.target); w.Code != tt.want {
			t.Errorf("%s: expected status %d, got %d", tt.target, tt.want, w.Code)
		}
	}
}

func TestRouter_NotFound(t *testing.T) {
	router, _ := createTestServer(t)

	w := get(t, router, "/collections")
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
	var resp STACError
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Code != ErrCodeNotFound {
		t.Errorf("Expected code NotFound, got %s", resp.Code)
	}
}

func TestRouter_GzipJSON(t *testing.T) {
	router, _ := createTestServer(t, "scene-a")

	for _, target := range []string{"/items", "/items/scene-a"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", target, w.Code)
		}
		if ce := w.Header().Get("Content-Encoding"); ce != "gzip" {
			t.Fatalf("%s: expected Content-Encoding gzip, got %q", target, ce)
		}

		zr, err := gzip.NewReader(w.Body)
		if err != nil {
			t.Fatalf("%s: invalid gzip body: %v", target, err)
		}
		body, err := io.ReadAll(zr)
		if err != nil {
			t.Fatalf("%s: failed to read gzip body: %v", target, err)
		}
		if !strings.Contains(string(body), `"scene-a"`) {
			t.Errorf("%s: unexpected body %s", target, body)
		}
	}

	// rasters are served as is
	req := httptest.NewRequest(http.MethodGet, "/items/scene-a/data", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if ce := w.Header().Get("Content-Encoding"); ce != "" {
		t.Errorf("Expected uncompressed raster, got Content-Encoding %q", ce)
	}
}
