// Package scene parses Sentinel-1 archive names and pairs archives for mosaicking.
package scene

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidName is returned when a file name does not follow the Sentinel-1 naming convention.
	ErrInvalidName = errors.New("invalid Sentinel-1 product name")

	// ErrDateMismatch is returned when the two archives of a pair were acquired on different dates.
	ErrDateMismatch = errors.New("paired archives have different acquisition dates")
)

// timeLayout is the compact UTC timestamp used in product names.
const timeLayout = "20060102T150405"

// dateField is the index of the acquisition start time in the underscore-delimited name.
const dateField = 4

// Archive describes a Sentinel-1 product archive identified by its file name, e.g.
// S1A_IW_GRDH_1SDV_20230101T102030_20230101T102055_046583_059552_1A2B.zip
type Archive struct {
	Path string

	Mission      string // S1A, S1B, S1C
	Mode         string // IW, EW, SM, WV
	ProductType  string // GRD, SLC, RAW, OCN
	Resolution   string // F, H, M or empty
	Level        string
	Class        string
	Polarization string // SH, SV, DH, DV

	Start         time.Time
	Stop          time.Time
	AbsoluteOrbit int
	DatatakeID    string
	ProductID     string
}

// Parse extracts the naming-convention fields from an archive path.
//
// The name is fixed-width: the product type field is padded with an underscore
// for types without a resolution class (SLC__), so positions are used rather
// than a plain split.
func Parse(path string) (Archive, error) {
	name := BaseName(path)
	if len(name) < 67 {
		return Archive{}, fmt.Errorf("%w: %q is too short", ErrInvalidName, name)
	}

	for _, i := range []int{3, 6, 11, 16, 32, 48, 55, 62} {
		if name[i] != '_' {
			return Archive{}, fmt.Errorf("%w: %q has no separator at position %d", ErrInvalidName, name, i)
		}
	}

	a := Archive{
		Path:         path,
		Mission:      name[0:3],
		Mode:         name[4:6],
		ProductType:  name[7:10],
		Resolution:   strings.Trim(name[10:11], "_"),
		Level:        name[12:13],
		Class:        name[13:14],
		Polarization: name[14:16],
		DatatakeID:   name[56:62],
		ProductID:    name[63:67],
	}

	if !strings.HasPrefix(a.Mission, "S1") {
		return Archive{}, fmt.Errorf("%w: %q is not a Sentinel-1 mission", ErrInvalidName, a.Mission)
	}

	var err error
	if a.Start, err = time.Parse(timeLayout, name[17:32]); err != nil {
		return Archive{}, fmt.Errorf("%w: start time: %v", ErrInvalidName, err)
	}
	if a.Stop, err = time.Parse(timeLayout, name[33:48]); err != nil {
		return Archive{}, fmt.Errorf("%w: stop time: %v", ErrInvalidName, err)
	}
	if a.AbsoluteOrbit, err = strconv.Atoi(name[49:55]); err != nil {
		return Archive{}, fmt.Errorf("%w: absolute orbit: %v", ErrInvalidName, err)
	}

	return a, nil
}

// Date returns the acquisition date as YYYYMMDD.
func (a Archive) Date() string {
	return a.Start.Format("20060102")
}

// Platform returns the lower-case platform name, e.g. "sentinel-1a".
func (a Archive) Platform() string {
	return "sentinel-1" + strings.ToLower(strings.TrimPrefix(a.Mission, "S1"))
}

// Polarizations expands the polarization code into channel names.
func (a Archive) Polarizations() []string {
	switch a.Polarization {
	case "DV":
		return []string{"VV", "VH"}
	case "DH":
		return []string{"HH", "HV"}
	case "SV":
		return []string{"VV"}
	case "SH":
		return []string{"HH"}
	default:
		return nil
	}
}

// AcquisitionDate returns the YYYYMMDD date of an archive. Names that do not
// follow the full convention fall back to the date prefix of the fifth
// underscore-delimited field.
func AcquisitionDate(path string) (string, error) {
	if a, err := Parse(path); err == nil {
		return a.Date(), nil
	}

	fields := strings.Split(BaseName(path), "_")
	if len(fields) <= dateField {
		return "", fmt.Errorf("%w: %q has no date field", ErrInvalidName, filepath.Base(path))
	}

	date, _, _ := strings.Cut(fields[dateField], "T")
	if _, err := time.Parse("20060102", date); err != nil {
		return "", fmt.Errorf("%w: %q has no date in field %d", ErrInvalidName, filepath.Base(path), dateField)
	}
	return date, nil
}

// BaseName returns the file name up to its first dot.
func BaseName(path string) string {
	name, _, _ := strings.Cut(filepath.Base(path), ".")
	return name
}
