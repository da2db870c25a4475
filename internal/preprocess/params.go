// Package preprocess runs Sentinel-1 GRD scene pairs through the SNAP
// correction chain and drives batches of pairs.
package preprocess

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingParameter is returned when a required batch parameter is not set.
var ErrMissingParameter = errors.New("required parameter not set")

// DefaultProjection is the WGS84 geographic coordinate system used when PROJ is unset.
const DefaultProjection = `
        GEOGCS["WGS 84",
         DATUM["WGS_1984",
              SPHEROID["WGS 84", 6378137, 298.257223563, AUTHORITY["EPSG", "7030"]],
              AUTHORITY["EPSG", "6326"]],
         PRIMEM["Greenwich", 0, AUTHORITY["EPSG", "8901"]],
         UNIT["degree", 0.0174532925199433, AUTHORITY["EPSG", "9122"]],
         AUTHORITY["EPSG", "4326"]]
         `

// Defaults applied by ParamsFromMap.
const (
	DefaultPause   = 30 * time.Second
	DefaultDEMName = "SRTM 3Sec"
)

// Params holds the batch parameters.
type Params struct {
	InputPath  string
	OutputPath string
	Projection string

	Pause         time.Duration
	ValidatePairs bool
	SkipExisting  bool
}

// ParamsFromMap builds Params from the INPUT_PATH / OUTPUT_PATH / PROJ mapping.
// Unset keys stay empty; Validate reports the required ones.
func ParamsFromMap(m map[string]string) Params {
	return Params{
		InputPath:     m["INPUT_PATH"],
		OutputPath:    m["OUTPUT_PATH"],
		Projection:    m["PROJ"],
		Pause:         DefaultPause,
		ValidatePairs: true,
	}
}

// Validate checks the required parameters. It does no file I/O.
func (p Params) Validate() error {
	if p.InputPath == "" {
		return fmt.Errorf("%w: INPUT_PATH", ErrMissingParameter)
	}
	if p.OutputPath == "" {
		return fmt.Errorf("%w: OUTPUT_PATH", ErrMissingParameter)
	}
	if p.Pause < 0 {
		return fmt.Errorf("pause must not be negative, got %s", p.Pause)
	}
	return nil
}

// ProjectionOrDefault returns the configured projection, or DefaultProjection.
func (p Params) ProjectionOrDefault() string {
	if p.Projection == "" {
		return DefaultProjection
	}
	return p.Projection
}
