// Package geojson provides the small set of GeoJSON geometry helpers used for
// scene footprints and output extents, including WKT conversion.
package geojson

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Geometry represents a GeoJSON geometry object.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Point returns the coordinates as a Point [lon, lat].
func (g *Geometry) Point() ([]float64, error) {
	var coords []float64
	if err := g.decode("Point", &coords); err != nil {
		return nil, err
	}
	if len(coords) < 2 {
		return nil, fmt.Errorf("invalid Point coordinates: expected at least 2 values, got %d", len(coords))
	}
	return coords, nil
}

// Polygon returns the coordinates as a Polygon [][][lon, lat].
func (g *Geometry) Polygon() ([][][]float64, error) {
	var coords [][][]float64
	if err := g.decode("Polygon", &coords); err != nil {
		return nil, err
	}
	return coords, nil
}

// MultiPolygon returns the coordinates as a MultiPolygon [][][][lon, lat].
func (g *Geometry) MultiPolygon() ([][][][]float64, error) {
	var coords [][][][]float64
	if err := g.decode("MultiPolygon", &coords); err != nil {
		return nil, err
	}
	return coords, nil
}

func (g *Geometry) decode(want string, v any) error {
	if g.Type != want {
		return fmt.Errorf("geometry is not a %s, got %s", want, g.Type)
	}
	if err := json.Unmarshal(g.Coordinates, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s coordinates: %w", want, err)
	}
	return nil
}

// rings returns the geometry as a list of polygons, each a list of rings.
// A Point is returned as a single one-position ring.
func (g *Geometry) rings() ([][][][]float64, error) {
	switch g.Type {
	case "Point":
		p, err := g.Point()
		if err != nil {
			return nil, err
		}
		return [][][][]float64{{{p}}}, nil
	case "Polygon":
		p, err := g.Polygon()
		if err != nil {
			return nil, err
		}
		return [][][][]float64{p}, nil
	case "MultiPolygon":
		return g.MultiPolygon()
	default:
		return nil, fmt.Errorf("unsupported geometry type: %s", g.Type)
	}
}

// ComputeBBox computes the bounding box of a geometry as [west, south, east, north].
func ComputeBBox(g *Geometry) ([]float64, error) {
	if g == nil {
		return nil, fmt.Errorf("geometry is nil")
	}

	polygons, err := g.rings()
	if err != nil {
		return nil, err
	}

	minLon, minLat := math.Inf(1), math.Inf(1)
	maxLon, maxLat := math.Inf(-1), math.Inf(-1)
	for _, polygon := range polygons {
		for _, ring := range polygon {
			for _, point := range ring {
				if len(point) < 2 {
					continue
				}
				minLon = math.Min(minLon, point[0])
				maxLon = math.Max(maxLon, point[0])
				minLat = math.Min(minLat, point[1])
				maxLat = math.Max(maxLat, point[1])
			}
		}
	}

	if math.IsInf(minLon, 0) || math.IsInf(minLat, 0) {
		return nil, fmt.Errorf("failed to compute bounding box: no valid coordinates found")
	}

	return []float64{minLon, minLat, maxLon, maxLat}, nil
}

// ParseBBox parses "west,south,east,north".
func ParseBBox(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values [west, south, east, north], got %d", len(parts))
	}

	bbox := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox value %q: %w", part, err)
		}
		bbox[i] = v
	}

	if bbox[0] > bbox[2] || bbox[1] > bbox[3] {
		return nil, fmt.Errorf("bbox west/south must not exceed east/north: %v", bbox)
	}
	return bbox, nil
}

// NewPolygonFromBBox creates a closed rectangular polygon from [west, south, east, north].
func NewPolygonFromBBox(bbox []float64) (*Geometry, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values [west, south, east, north], got %d", len(bbox))
	}

	west, south, east, north := bbox[0], bbox[1], bbox[2], bbox[3]
	return newGeometry("Polygon", [][][]float64{{
		{west, south},
		{east, south},
		{east, north},
		{west, north},
		{west, south},
	}})
}

func newGeometry(typ string, coords any) (*Geometry, error) {
	raw, err := json.Marshal(coords)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s coordinates: %w", typ, err)
	}
	return &Geometry{Type: typ, Coordinates: raw}, nil
}

// ToWKT converts a Point, Polygon or MultiPolygon to WKT.
func ToWKT(g *Geometry) (string, error) {
	if g == nil {
		return "", fmt.Errorf("geometry is nil")
	}

	switch g.Type {
	case "Point":
		p, err := g.Point()
		if err != nil {
			return "", err
		}
		return "POINT(" + formatPosition(p) + ")", nil
	case "Polygon":
		p, err := g.Polygon()
		if err != nil {
			return "", err
		}
		body, err := formatPolygon(p)
		if err != nil {
			return "", err
		}
		return "POLYGON" + body, nil
	case "MultiPolygon":
		mp, err := g.MultiPolygon()
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(mp))
		for _, p := range mp {
			body, err := formatPolygon(p)
			if err != nil {
				return "", err
			}
			parts = append(parts, body)
		}
		return "MULTIPOLYGON(" + strings.Join(parts, ",") + ")", nil
	default:
		return "", fmt.Errorf("unsupported geometry type for WKT conversion: %s", g.Type)
	}
}

func formatPolygon(rings [][][]float64) (string, error) {
	parts := make([]string, 0, len(rings))
	for _, ring := range rings {
		points := make([]string, len(ring))
		for i, point := range ring {
			if len(point) < 2 {
				return "", fmt.Errorf("invalid point in ring: expected at least 2 coordinates")
			}
			points[i] = formatPosition(point)
		}
		parts = append(parts, "("+strings.Join(points, ",")+")")
	}
	return "(" + strings.Join(parts, ",") + ")", nil
}

func formatPosition(p []float64) string {
	return strconv.FormatFloat(p[0], 'f', -1, 64) + " " + strconv.FormatFloat(p[1], 'f', -1, 64)
}
