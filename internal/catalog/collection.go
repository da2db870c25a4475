package catalog

import (
	"github.com/planetlabs/go-stac"
)

// ItemCollection is a GeoJSON FeatureCollection of processed items.
type ItemCollection struct {
	Type           string       `json:"type"` // "FeatureCollection"
	Features       []*stac.Item `json:"features"`
	Links          []*stac.Link `json:"links"`
	NumberMatched  int          `json:"numberMatched"`
	NumberReturned int          `json:"numberReturned"`
}

// NewItemCollection wraps a page of items. matched is the total before paging.
func NewItemCollection(items []*stac.Item, matched int) *ItemCollection {
	if items == nil {
		items = make([]*stac.Item, 0)
	}
	return &ItemCollection{
		Type:           "FeatureCollection",
		Features:       items,
		Links:          make([]*stac.Link, 0),
		NumberMatched:  matched,
		NumberReturned: len(items),
	}
}

// AddLink adds a link to the ItemCollection.
func (ic *ItemCollection) AddLink(rel, href, mediaType string) {
	ic.Links = append(ic.Links, &stac.Link{
		Rel:  rel,
		Href: href,
		Type: mediaType,
	})
}

// LandingPage is the root document of the output server.
type LandingPage struct {
	Type        string       `json:"type"` // "Catalog"
	Id          string       `json:"id"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description"`
	StacVersion string       `json:"stac_version"`
	Links       []*stac.Link `json:"links"`
}

// NewLandingPage creates the landing page for the processed collection.
func NewLandingPage(title, description string) *LandingPage {
	return &LandingPage{
		Type:        "Catalog",
		Id:          CollectionID,
		Title:       title,
		Description: description,
		StacVersion: Version,
		Links:       make([]*stac.Link, 0),
	}
}

// AddLink adds a link to the landing page.
func (lp *LandingPage) AddLink(rel, href, mediaType string) {
	lp.Links = append(lp.Links, &stac.Link{
		Rel:  rel,
		Href: href,
		Type: mediaType,
	})
}

// Page returns items[offset:offset+limit], clamped to the slice bounds.
func Page(items []*stac.Item, offset, limit int) []*stac.Item {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return make([]*stac.Item, 0)
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
