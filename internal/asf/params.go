package asf

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SearchParams represents parameters for ASF search queries
type SearchParams struct {
	// Dataset filters
	Dataset  []string // ASF dataset names (e.g., "SENTINEL-1")
	Platform []string // Platform names (e.g., "Sentinel-1A")

	// Spatial filters
	IntersectsWith string // WKT geometry string

	// Temporal filters
	Start *time.Time // Start datetime (inclusive)
	End   *time.Time // End datetime (inclusive)

	// Granule identification
	GranuleList []string // List of specific granule names

	// SAR-specific filters
	BeamMode     []string // Beam modes (e.g., "IW", "EW")
	Polarization []string // Polarizations (e.g., "VV+VH")

	// Orbital filters
	FlightDirection string // "ASCENDING" or "DESCENDING"
	RelativeOrbit   []int  // Relative orbit numbers

	// Processing filters
	ProcessingLevel []string // Processing levels (e.g., "GRD_HD", "SLC")

	// Result limiting
	MaxResults int    // Maximum number of results to return
	Output     string // Output format (default: "geojson")
}

// ToQueryString converts SearchParams to a URL query string
func (p *SearchParams) ToQueryString() string {
	values := p.ToURLValues()
	return values.Encode()
}

// ToURLValues converts SearchParams to url.Values for query string building
func (p *SearchParams) ToURLValues() url.Values {
	values := url.Values{}

	// Dataset and platform
	for _, d := range p.Dataset {
		values.Add("dataset", d)
	}

	for _, pl := range p.Platform {
		values.Add("platform", pl)
	}

	// Spatial
	if p.IntersectsWith != "" {
		values.Set("intersectsWith", p.IntersectsWith)
	}

	// Temporal
	if p.Start != nil {
		values.Set("start", formatASFTime(p.Start))
	}
	if p.End != nil {
		values.Set("end", formatASFTime(p.End))
	}

	// Granule list
	if len(p.GranuleList) > 0 {
		values.Set("granule_list", strings.Join(p.GranuleList, ","))
	}

	// SAR-specific filters
	for _, bm := range p.BeamMode {
		values.Add("beamMode", bm)
	}

	for _, pol := range p.Polarization {
		values.Add("polarization", pol)
	}

	// Orbital filters
	if p.FlightDirection != "" {
		values.Set("flightDirection", p.FlightDirection)
	}

	for _, ro := range p.RelativeOrbit {
		values.Add("relativeOrbit", strconv.Itoa(ro))
	}

	// Processing level (comma-separated)
	if len(p.ProcessingLevel) > 0 {
		values.Set("processingLevel", strings.Join(p.ProcessingLevel, ","))
	}

	// ASF rejects maxResults together with granule_list
	if p.MaxResults > 0 && len(p.GranuleList) == 0 {
		values.Set("maxResults", strconv.Itoa(p.MaxResults))
	}

	// Output format
	if p.Output != "" {
		values.Set("output", p.Output)
	} else {
		values.Set("output", "geojson")
	}

	return values
}

// formatASFTime formats a time.Time for ASF API queries
// ASF expects ISO 8601 format: YYYY-MM-DDTHH:MM:SSZ
func formatASFTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
