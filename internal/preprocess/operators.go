package preprocess

import (
	"fmt"

	"github.com/robert-malhotra/s1prep/internal/snap"
)

// Output format of the final raster.
const outputFormat = "GeoTIFF-BigTIFF"

// pixelSpacing is the terrain-corrected ground resolution in meters.
const pixelSpacing = 10.0

// Each operator gets a fresh parameter set; values are validated by SNAP only.

func thermalNoiseRemoval(g *snap.Graph, p *snap.Product) (*snap.Product, error) {
	return g.Apply(snap.OpThermalNoiseRemoval, snap.Params{
		"removeThermalNoise": true,
	}, p)
}

func applyOrbitFile(g *snap.Graph, p *snap.Product) (*snap.Product, error) {
	return g.Apply(snap.OpApplyOrbitFile, snap.Params{
		"orbitType":      "Sentinel Precise (Auto Download)",
		"polyDegree":     3,
		"continueOnFail": false,
	}, p)
}

// calibrate outputs sigma0 intensity for VH and VV in linear scale.
func calibrate(g *snap.Graph, p *snap.Product) (*snap.Product, error) {
	return g.Apply(snap.OpCalibration, snap.Params{
		"outputSigmaBand":       true,
		"sourceBands":           "Intensity_VH,Intensity_VV",
		"selectedPolarisations": "VH,VV",
		"outputImageScaleInDb":  false,
	}, p)
}

func sliceAssembly(g *snap.Graph, products ...*snap.Product) (*snap.Product, error) {
	return g.Apply(snap.OpSliceAssembly, snap.Params{}, products...)
}

func speckleFilter(g *snap.Graph, p *snap.Product) (*snap.Product, error) {
	return g.Apply(snap.OpSpeckleFilter, snap.Params{
		"filter": "Refined Lee",
	}, p)
}

func terrainCorrection(g *snap.Graph, p *snap.Product, projection, dem string) (*snap.Product, error) {
	return g.Apply(snap.OpTerrainCorrection, snap.Params{
		"demName":                          dem,
		"imgResamplingMethod":              "BILINEAR_INTERPOLATION",
		"mapProjection":                    projection,
		"saveProjectedLocalIncidenceAngle": false,
		"saveSelectedSourceBand":           true,
		"nodataValueAtSea":                 false,
		"pixelSpacingInMeter":              pixelSpacing,
	}, p)
}

// linearToDB converts every band to decibels.
func linearToDB(g *snap.Graph, p *snap.Product) (*snap.Product, error) {
	return g.Apply(snap.OpLinearToFromdB, snap.Params{}, p)
}

// subsetGeoRegion crops to a WKT geometry.
func subsetGeoRegion(g *snap.Graph, p *snap.Product, wkt string) (*snap.Product, error) {
	return g.Apply(snap.OpSubset, snap.Params{
		"geoRegion":    wkt,
		"copyMetadata": true,
	}, p)
}

// subsetRegion crops to a pixel rectangle.
func subsetRegion(g *snap.Graph, p *snap.Product, x, y, width, height int) (*snap.Product, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("subset region must have positive size, got %dx%d", width, height)
	}
	return g.Apply(snap.OpSubset, snap.Params{
		"region":       fmt.Sprintf("%d,%d,%d,%d", x, y, width, height),
		"copyMetadata": true,
	}, p)
}
