// Package acquire finds Sentinel-1 archives for an area and time window and
// downloads them for preprocessing.
package acquire

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robert-malhotra/s1prep/internal/asf"
	"github.com/robert-malhotra/s1prep/pkg/geojson"
)

// ErrInvalidQuery is returned for footprints, dates or product types that cannot be searched.
var ErrInvalidQuery = errors.New("invalid query")

// Product types accepted in queries.
const (
	ProductGRD = "GRD"
	ProductSLC = "SLC"
)

// Sentinel-1 repeats its ground track every 175 orbits.
const maxRelativeOrbit = 175

// processingLevels maps product types to ASF processing levels.
var processingLevels = map[string]string{
	ProductGRD: "GRD_HD",
	ProductSLC: "SLC",
}

// Filters narrows a search beyond area, time and product type.
type Filters struct {
	Platform        []string
	BeamMode        []string
	Polarization    []string
	FlightDirection string
	RelativeOrbit   []int
	MaxResults      int // zero leaves the ASF default
}

// DefaultFilters selects dual-polarization IW scenes, the only kind the
// calibration step can read (it expects Intensity_VH and Intensity_VV).
func DefaultFilters() Filters {
	return Filters{
		BeamMode:     []string{"IW"},
		Polarization: []string{"VV+VH"},
	}
}

// Query selects archives by footprint, time window and product type.
type Query struct {
	Footprint   string // WKT
	Start       time.Time
	End         time.Time
	ProductType string
	Filters
}

// NewQuery parses the raw footprint, dates and product type. now anchors NOW expressions.
func NewQuery(footprint, start, end, productType string, now time.Time) (Query, error) {
	wkt, err := ParseFootprint(footprint)
	if err != nil {
		return Query{}, err
	}

	q := Query{Footprint: wkt, ProductType: strings.ToUpper(productType), Filters: DefaultFilters()}
	if q.Start, err = ParseDate(start, now); err != nil {
		return Query{}, fmt.Errorf("start date: %w", err)
	}
	if q.End, err = ParseDate(end, now); err != nil {
		return Query{}, fmt.Errorf("end date: %w", err)
	}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// WithFilters replaces the default filters and validates the result.
func (q Query) WithFilters(f Filters) (Query, error) {
	f.FlightDirection = strings.ToUpper(f.FlightDirection)
	q.Filters = f
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Validate checks the query can be sent as is.
func (q Query) Validate() error {
	if q.Footprint == "" {
		return fmt.Errorf("%w: footprint is required", ErrInvalidQuery)
	}
	if _, ok := processingLevels[q.ProductType]; !ok {
		return fmt.Errorf("%w: product type must be %s or %s, got %q", ErrInvalidQuery, ProductGRD, ProductSLC, q.ProductType)
	}
	switch q.FlightDirection {
	case "", "ASCENDING", "DESCENDING":
	default:
		return fmt.Errorf("%w: unknown flight direction %q", ErrInvalidQuery, q.FlightDirection)
	}
	for _, orbit := range q.RelativeOrbit {
		if orbit < 1 || orbit > maxRelativeOrbit {
			return fmt.Errorf("%w: relative orbit %d outside 1-%d", ErrInvalidQuery, orbit, maxRelativeOrbit)
		}
	}
	if q.MaxResults < 0 {
		return fmt.Errorf("%w: negative max results %d", ErrInvalidQuery, q.MaxResults)
	}
	if q.End.Before(q.Start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidQuery,
			q.End.Format(time.RFC3339), q.Start.Format(time.RFC3339))
	}
	return nil
}

// SearchParams converts the query into ASF search parameters.
func (q Query) SearchParams() asf.SearchParams {
	start, end := q.Start, q.End
	return asf.SearchParams{
		Dataset:         []string{"SENTINEL-1"},
		Platform:        q.Platform,
		IntersectsWith:  q.Footprint,
		Start:           &start,
		End:             &end,
		BeamMode:        q.BeamMode,
		Polarization:    q.Polarization,
		FlightDirection: q.FlightDirection,
		RelativeOrbit:   q.RelativeOrbit,
		ProcessingLevel: []string{processingLevels[q.ProductType]},
		MaxResults:      q.MaxResults,
		Output:          "geojson",
	}
}

// ParseFootprint accepts WKT or a "west,south,east,north" bbox and returns WKT.
func ParseFootprint(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: footprint is required", ErrInvalidQuery)
	}

	if strings.ContainsAny(s, "(") {
		g, err := geojson.FromWKT(s)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		return geojson.ToWKT(g)
	}

	bbox, err := geojson.ParseBBox(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	g, err := geojson.NewPolygonFromBBox(bbox)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return geojson.ToWKT(g)
}

var (
	dateOnly    = regexp.MustCompile(`^\d{8}$`)
	instantMath = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2}))([+\-/].+)$`)
	nowStep     = regexp.MustCompile(`^([+-])(\d+)([A-Z]+)`)
	nowRounding = regexp.MustCompile(`^/([A-Z]+)`)
)

// ParseDate parses the date forms accepted on the command line:
//
//	yyyyMMdd                      midnight UTC of that day
//	yyyy-MM-ddThh:mm:ss[.SSS]Z    an instant
//	NOW                           now
//	NOW-1DAY, NOW+6HOURS          date math, applied left to right
//	NOW/DAY, NOW-1DAY/DAY         rounding down to the unit
//	2023-02-01T00:00:00Z-1DAY     date math anchored on an instant
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidQuery)
	case dateOnly.MatchString(s):
		t, err := time.Parse("20060102", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		return t, nil
	case strings.HasPrefix(strings.ToUpper(s), "NOW"):
		return parseDateMath(strings.ToUpper(s)[len("NOW"):], now.UTC())
	case instantMath.MatchString(s):
		m := instantMath.FindStringSubmatch(s)
		t, err := time.Parse(time.RFC3339Nano, m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: unrecognized date %q", ErrInvalidQuery, s)
		}
		return parseDateMath(strings.ToUpper(m[2]), t.UTC())
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unrecognized date %q", ErrInvalidQuery, s)
	}
	return t.UTC(), nil
}

func parseDateMath(expr string, t time.Time) (time.Time, error) {
	for expr != "" {
		if m := nowStep.FindStringSubmatch(expr); m != nil {
			n, err := strconv.Atoi(m[2])
			if err != nil {
				return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
			}
			if m[1] == "-" {
				n = -n
			}
			if t, err = addUnit(t, n, m[3]); err != nil {
				return time.Time{}, err
			}
			expr = expr[len(m[0]):]
			continue
		}
		if m := nowRounding.FindStringSubmatch(expr); m != nil {
			var err error
			if t, err = roundUnit(t, m[1]); err != nil {
				return time.Time{}, err
			}
			expr = expr[len(m[0]):]
			continue
		}
		return time.Time{}, fmt.Errorf("%w: unexpected %q in date expression", ErrInvalidQuery, expr)
	}
	return t, nil
}

func unitName(u string) string {
	if len(u) > 1 {
		return strings.TrimSuffix(u, "S")
	}
	return u
}

func addUnit(t time.Time, n int, unit string) (time.Time, error) {
	switch unitName(unit) {
	case "YEAR":
		return t.AddDate(n, 0, 0), nil
	case "MONTH":
		return t.AddDate(0, n, 0), nil
	case "DAY":
		return t.AddDate(0, 0, n), nil
	case "HOUR":
		return t.Add(time.Duration(n) * time.Hour), nil
	case "MINUTE":
		return t.Add(time.Duration(n) * time.Minute), nil
	case "SECOND":
		return t.Add(time.Duration(n) * time.Second), nil
	}
	return time.Time{}, fmt.Errorf("%w: unknown date unit %q", ErrInvalidQuery, unit)
}

func roundUnit(t time.Time, unit string) (time.Time, error) {
	y, mo, d := t.Date()
	switch unitName(unit) {
	case "YEAR":
		return time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC), nil
	case "MONTH":
		return time.Date(y, mo, 1, 0, 0, 0, 0, time.UTC), nil
	case "DAY":
		return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC), nil
	case "HOUR":
		return t.Truncate(time.Hour), nil
	case "MINUTE":
		return t.Truncate(time.Minute), nil
	case "SECOND":
		return t.Truncate(time.Second), nil
	}
	return time.Time{}, fmt.Errorf("%w: unknown date unit %q", ErrInvalidQuery, unit)
}
