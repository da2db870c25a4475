// Package catalog describes processed outputs as STAC items stored next to the rasters.
package catalog

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/s1prep/internal/scene"
	"github.com/robert-malhotra/s1prep/pkg/geojson"
)

// Version is the STAC version written into items.
const Version = "1.0.0"

// CollectionID is the collection every processed item belongs to.
const CollectionID = "sentinel-1-grd-rtc-db"

// GeoTIFFMediaType is the media type of the data asset.
const GeoTIFFMediaType = "image/tiff; application=geotiff"

// Entry is the information needed to describe one processed pair.
type Entry struct {
	Pair      scene.Pair
	Output    string
	Lineage   []string
	CropWKT   string
	Processed time.Time
}

// NewItem builds the STAC item for a processed pair.
func NewItem(e Entry) (*stac.Item, error) {
	if e.Output == "" {
		return nil, fmt.Errorf("output path is required")
	}

	item := &stac.Item{
		Version:    Version,
		Id:         scene.BaseName(e.Output),
		Collection: CollectionID,
		Properties: make(map[string]any),
		Assets:     make(map[string]*stac.Asset),
		Links:      make([]*stac.Link, 0),
	}

	// Names that don't follow the convention still get an item, just a thinner one.
	if first, err := scene.Parse(e.Pair.First); err == nil {
		item.Properties["datetime"] = first.Start.UTC().Format(time.RFC3339)
		item.Properties["platform"] = first.Platform()
		item.Properties["constellation"] = "sentinel-1"
		item.Properties["instruments"] = []string{"c-sar"}
		item.Properties["sar:instrument_mode"] = first.Mode
		item.Properties["sar:frequency_band"] = "C"
		item.Properties["sar:product_type"] = first.ProductType
		item.Properties["sat:absolute_orbit"] = first.AbsoluteOrbit
		if second, err := scene.Parse(e.Pair.Second); err == nil && second.Stop.After(first.Start) {
			item.Properties["start_datetime"] = first.Start.UTC().Format(time.RFC3339)
			item.Properties["end_datetime"] = second.Stop.UTC().Format(time.RFC3339)
		}
	} else if date, err := scene.AcquisitionDate(e.Pair.First); err == nil {
		t, _ := time.Parse("20060102", date)
		item.Properties["datetime"] = t.UTC().Format(time.RFC3339)
	} else {
		item.Properties["datetime"] = nil
	}

	item.Properties["sar:polarizations"] = []string{"VH", "VV"}
	item.Properties["processing:lineage"] = strings.Join(e.Lineage, " > ")
	if !e.Processed.IsZero() {
		item.Properties["processed"] = e.Processed.UTC().Format(time.RFC3339)
	}

	if e.CropWKT != "" {
		geom, err := geojson.FromWKT(e.CropWKT)
		if err != nil {
			return nil, fmt.Errorf("failed to convert crop geometry: %w", err)
		}
		item.Geometry = geom
		if bbox, err := geojson.ComputeBBox(geom); err == nil {
			item.Bbox = bbox
		}
	}

	item.Assets["data"] = &stac.Asset{
		Href:  filepath.Base(e.Output),
		Title: "Terrain-corrected sigma0 backscatter (dB)",
		Type:  GeoTIFFMediaType,
		Roles: []string{"data"},
	}

	for _, src := range e.Pair.Files() {
		item.Links = append(item.Links, &stac.Link{
			Rel:   "derived_from",
			Href:  filepath.Base(src),
			Type:  "application/zip",
			Title: scene.BaseName(src),
		})
	}

	return item, nil
}
