package patchmatch

import (
	"errors"
	"fmt"
	"strconv"
)

// DefaultMaxImageSize keeps dense runs reasonably short when no explicit
// size limit is configured.
const DefaultMaxImageSize = 1600

// Options mirrors the tunable parameters of the dense stereo stage.
type Options struct {
	GPUIndex                     int     `toml:"gpu_index"`
	WindowRadius                 int     `toml:"window_radius"`
	SigmaSpatial                 float64 `toml:"sigma_spatial"`
	SigmaColor                   float64 `toml:"sigma_color"`
	NumSamples                   int     `toml:"num_samples"`
	NCCSigma                     float64 `toml:"ncc_sigma"`
	MinTriangulationAngle        float64 `toml:"min_triangulation_angle"`
	IncidentAngleSigma           float64 `toml:"incident_angle_sigma"`
	NumIterations                int     `toml:"num_iterations"`
	GeomConsistencyRegularizer   float64 `toml:"geom_consistency_regularizer"`
	GeomConsistencyMaxCost       float64 `toml:"geom_consistency_max_cost"`
	FilterMinNCC                 float64 `toml:"filter_min_ncc"`
	FilterMinTriangulationAngle  float64 `toml:"filter_min_triangulation_angle"`
	FilterMinNumConsistent       int     `toml:"filter_min_num_consistent"`
	FilterGeomConsistencyMaxCost float64 `toml:"filter_geom_consistency_max_cost"`
}

// DefaultOptions returns the stereo tool's stock parameters.
func DefaultOptions() Options {
	return Options{
		GPUIndex:                     -1,
		WindowRadius:                 5,
		SigmaSpatial:                 -1,
		SigmaColor:                   0.2,
		NumSamples:                   15,
		NCCSigma:                     0.6,
		MinTriangulationAngle:        1,
		IncidentAngleSigma:           0.9,
		NumIterations:                5,
		GeomConsistencyRegularizer:   0.3,
		GeomConsistencyMaxCost:       3,
		FilterMinNCC:                 0.1,
		FilterMinTriangulationAngle:  3,
		FilterMinNumConsistent:       2,
		FilterGeomConsistencyMaxCost: 1,
	}
}

// Validate rejects values the stereo tool would refuse.
func (o Options) Validate() error {
	if o.GPUIndex < -1 {
		return errors.New("gpu_index must be >= -1")
	}
	if o.WindowRadius <= 0 {
		return errors.New("window_radius must be > 0")
	}
	if o.SigmaColor <= 0 {
		return errors.New("sigma_color must be > 0")
	}
	if o.NumSamples <= 0 {
		return errors.New("num_samples must be > 0")
	}
	if o.NCCSigma <= 0 {
		return errors.New("ncc_sigma must be > 0")
	}
	if o.MinTriangulationAngle < 0 || o.MinTriangulationAngle >= 180 {
		return errors.New("min_triangulation_angle must be in [0, 180)")
	}
	if o.IncidentAngleSigma <= 0 {
		return errors.New("incident_angle_sigma must be > 0")
	}
	if o.NumIterations <= 0 {
		return errors.New("num_iterations must be > 0")
	}
	if o.GeomConsistencyRegularizer < 0 {
		return errors.New("geom_consistency_regularizer must be >= 0")
	}
	if o.GeomConsistencyMaxCost < 0 {
		return errors.New("geom_consistency_max_cost must be >= 0")
	}
	if o.FilterMinNCC < -1 || o.FilterMinNCC > 1 {
		return errors.New("filter_min_ncc must be in [-1, 1]")
	}
	if o.FilterMinTriangulationAngle < 0 || o.FilterMinTriangulationAngle > 180 {
		return errors.New("filter_min_triangulation_angle must be in [0, 180]")
	}
	if o.FilterMinNumConsistent < 0 {
		return errors.New("filter_min_num_consistent must be >= 0")
	}
	if o.FilterGeomConsistencyMaxCost < 0 {
		return errors.New("filter_geom_consistency_max_cost must be >= 0")
	}
	return nil
}

// Args renders the options as patch_match_stereo command line flags.
func (o Options) Args() []string {
	flags := []struct {
		name  string
		value string
	}{
		{"gpu_index", strconv.Itoa(o.GPUIndex)},
		{"window_radius", strconv.Itoa(o.WindowRadius)},
		{"sigma_spatial", formatFloat(o.SigmaSpatial)},
		{"sigma_color", formatFloat(o.SigmaColor)},
		{"num_samples", strconv.Itoa(o.NumSamples)},
		{"ncc_sigma", formatFloat(o.NCCSigma)},
		{"min_triangulation_angle", formatFloat(o.MinTriangulationAngle)},
		{"incident_angle_sigma", formatFloat(o.IncidentAngleSigma)},
		{"num_iterations", strconv.Itoa(o.NumIterations)},
		{"geom_consistency_regularizer", formatFloat(o.GeomConsistencyRegularizer)},
		{"geom_consistency_max_cost", formatFloat(o.GeomConsistencyMaxCost)},
		{"filter_min_ncc", formatFloat(o.FilterMinNCC)},
		{"filter_min_triangulation_angle", formatFloat(o.FilterMinTriangulationAngle)},
		{"filter_min_num_consistent", strconv.Itoa(o.FilterMinNumConsistent)},
		{"filter_geom_consistency_max_cost", formatFloat(o.FilterGeomConsistencyMaxCost)},
	}
	args := make([]string, 0, len(flags)*2)
	for _, f := range flags {
		args = append(args, fmt.Sprintf("--PatchMatchStereo.%s", f.name), f.value)
	}
	return args
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
