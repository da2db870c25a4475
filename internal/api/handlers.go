package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/s1prep/internal/catalog"
)

// Paging limits for /items.
const (
	DefaultLimit = 10
	MaxLimit     = 250
)

// Catalog is the read side of the output catalog.
type Catalog interface {
	List() ([]*stac.Item, error)
	Get(id string) (*stac.Item, error)
	DataPath(item *stac.Item) (string, error)
}

// Options configures the handlers.
type Options struct {
	// BaseURL prefixes self-referential links. Empty means links are relative to the host.
	BaseURL     string
	Title       string
	Description string
}

// Handlers contains all HTTP handlers for the output catalog.
type Handlers struct {
	catalog Catalog
	opts    Options
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(c Catalog, opts Options, logger *slog.Logger) *Handlers {
	if opts.Title == "" {
		opts.Title = "Sentinel-1 preprocessed scenes"
	}
	if opts.Description == "" {
		opts.Description = "Terrain-corrected Sentinel-1 GRD backscatter in decibels"
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	return &Handlers{
		catalog: c,
		opts:    opts,
		logger:  logger,
	}
}

// LandingPage returns the root catalog.
// GET /
func (h *Handlers) LandingPage(w http.ResponseWriter, r *http.Request) {
	baseURL := h.opts.BaseURL

	landing := catalog.NewLandingPage(h.opts.Title, h.opts.Description)
	landing.AddLink("self", baseURL+"/", "application/json")
	landing.AddLink("root", baseURL+"/", "application/json")
	landing.AddLink("items", baseURL+"/items", "application/geo+json")

	WriteJSON(w, http.StatusOK, landing)
}

// Items returns a page of processed items.
// GET /items?limit=&offset=
func (h *Handlers) Items(w http.ResponseWriter, r *http.Request) {
	// Parse paging parameters
	limit, err := queryInt(r.URL.Query(), "limit", DefaultLimit)
	if err != nil || limit < 1 {
		WriteInvalidParameter(w, "limit must be a positive integer")
		return
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, err := queryInt(r.URL.Query(), "offset", 0)
	if err != nil || offset < 0 {
		WriteInvalidParameter(w, "offset must be a non-negative integer")
		return
	}

	// Read the catalog; it is small enough to page in memory
	items, err := h.catalog.List()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list catalog",
			slog.String("error", err.Error()),
		)
		WriteInternalError(w, "failed to read output catalog")
		return
	}

	page := catalog.Page(items, offset, limit)
	for _, item := range page {
		h.addItemLinks(item)
	}

	// Build response with pagination links
	baseURL := h.opts.BaseURL
	ic := catalog.NewItemCollection(page, len(items))
	ic.AddLink("self", pageURL(baseURL, offset, limit), "application/geo+json")
	ic.AddLink("root", baseURL+"/", "application/json")
	if offset+len(page) < len(items) {
		ic.AddLink("next", pageURL(baseURL, offset+len(page), limit), "application/geo+json")
	}
	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		ic.AddLink("prev", pageURL(baseURL, prev, limit), "application/geo+json")
	}

	WriteGeoJSON(w, http.StatusOK, ic)
}

// Item returns a single item by ID.
// GET /items/{itemId}
func (h *Handlers) Item(w http.ResponseWriter, r *http.Request) {
	item, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.addItemLinks(item)
	WriteGeoJSON(w, http.StatusOK, item)
}

// ItemData streams the item's GeoTIFF.
// GET /items/{itemId}/data
func (h *Handlers) ItemData(w http.ResponseWriter, r *http.Request) {
	item, ok := h.lookup(w, r)
	if !ok {
		return
	}

	path, err := h.catalog.DataPath(item)
	if err != nil {
		WriteNotFound(w, fmt.Sprintf("item %q has no data", item.Id))
		return
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		WriteNotFound(w, fmt.Sprintf("data for item %q is missing", item.Id))
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to open item data",
			slog.String("item_id", item.Id),
			slog.String("error", err.Error()),
		)
		WriteInternalError(w, "failed to read item data")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		WriteInternalError(w, "failed to read item data")
		return
	}

	// ContentTypeJSON already set a JSON type; ServeContent keeps whatever is set
	w.Header().Set("Content-Type", catalog.GeoTIFFMediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

// Health reports whether the catalog directory is readable.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.catalog.List(); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) (*stac.Item, bool) {
	itemID := chi.URLParam(r, "itemId")
	if itemID == "" {
		WriteBadRequest(w, "item ID is required")
		return nil, false
	}

	// Fetch item from catalog
	item, err := h.catalog.Get(itemID)
	switch {
	case errors.Is(err, catalog.ErrItemNotFound), errors.Is(err, catalog.ErrInvalidItemID):
		WriteNotFound(w, fmt.Sprintf("item %q not found", itemID))
		return nil, false
	case err != nil:
		h.logger.ErrorContext(r.Context(), "failed to fetch item",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()),
		)
		WriteInternalError(w, "failed to read output catalog")
		return nil, false
	}
	return item, true
}

// addItemLinks adds navigation links and points the data asset at the data endpoint.
func (h *Handlers) addItemLinks(item *stac.Item) {
	baseURL := h.opts.BaseURL
	itemURL := fmt.Sprintf("%s/items/%s", baseURL, url.PathEscape(item.Id))

	item.Links = append(item.Links,
		&stac.Link{
			Rel:  "self",
			Href: itemURL,
			Type: "application/geo+json",
		},
		&stac.Link{
			Rel:  "root",
			Href: baseURL + "/",
			Type: "application/json",
		},
	)
	if asset, ok := item.Assets["data"]; ok && asset != nil {
		asset.Href = itemURL + "/data"
	}
}

func pageURL(baseURL string, offset, limit int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	return baseURL + "/items?" + q.Encode()
}

func queryInt(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
