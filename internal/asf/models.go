package asf

import (
	"encoding/json"
	"strconv"
	"strings"
)

// SearchResponse represents ASF's GeoJSON FeatureCollection response
type SearchResponse struct {
	Type     string    `json:"type"` // "FeatureCollection"
	Features []Feature `json:"features"`
}

// Feature represents a single ASF search result feature
type Feature struct {
	Type       string     `json:"type"` // "Feature"
	Geometry   *Geometry  `json:"geometry"`
	Properties Properties `json:"properties"`
}

// Geometry represents a GeoJSON geometry
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Properties contains the ASF metadata of a granule that acquisition needs
type Properties struct {
	// Basic metadata
	SceneName string `json:"sceneName"`
	FileID    string `json:"fileID"`
	Platform  string `json:"platform"`

	// SAR-specific parameters
	BeamModeType string `json:"beamModeType"`
	Polarization string `json:"polarization"`

	// Orbital parameters
	FlightDirection string `json:"flightDirection"`
	AbsoluteOrbit   *int   `json:"orbit"`
	RelativeOrbit   *int   `json:"pathNumber"`

	// Processing information
	ProcessingLevel string `json:"processingLevel"`

	// Temporal information
	StartTime string `json:"startTime"`
	StopTime  string `json:"stopTime"`

	// File information
	URL      string          `json:"url"`
	FileName string          `json:"fileName"`
	Bytes    json.RawMessage `json:"bytes"` // Can be int64 or string depending on ASF response
	MD5Sum   string          `json:"md5sum"`
}

// Size returns the file size in bytes when ASF reports one.
func (p Properties) Size() (int64, bool) {
	raw := strings.Trim(strings.TrimSpace(string(p.Bytes)), `"`)
	if raw == "" || raw == "null" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
