package painter

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// Defaults for the request tunables.
const (
	DefaultNeighborCount      = 5
	DefaultCoverageThreshold  = 0.05
	DefaultTransformTimeoutMs = 500
	DefaultDepthLeafSize      = 0.05
	DefaultSphericalLeafSize  = 0.005
	DefaultFlatLeafSize       = 0.005
)

// Config holds the tunables of one paint request.
type Config struct {
	// NeighborCount is the number of reference points blended per range point.
	NeighborCount int `json:"neighbor_count"`
	// CoverageThreshold is the squared distance on the unit sphere at or beyond which
	// the nearest reference point is too far to trust and the range point is painted black.
	CoverageThreshold float64 `json:"coverage_threshold"`
	// TransformTimeoutMs bounds every wait for a frame transform.
	TransformTimeoutMs int `json:"transform_timeout_ms"`

	VoxelizeDepth     bool    `json:"voxelize_depth"`
	DepthLeafSize     float64 `json:"depth_leaf_size"`
	VoxelizeSpherical bool    `json:"voxelize_spherical"`
	SphericalLeafSize float64 `json:"spherical_leaf_size"`
	VoxelizeFlat      bool    `json:"voxelize_flat"`
	FlatLeafSize      float64 `json:"flat_leaf_size"`

	// RenormalizeAfterVoxelize pushes voxelized reference points back onto the unit sphere.
	RenormalizeAfterVoxelize bool `json:"renormalize_after_voxelize"`
}

// DefaultConfig returns the default tunables. Voxelization is off.
func DefaultConfig() Config {
	return Config{
		NeighborCount:      DefaultNeighborCount,
		CoverageThreshold:  DefaultCoverageThreshold,
		TransformTimeoutMs: DefaultTransformTimeoutMs,
		DepthLeafSize:      DefaultDepthLeafSize,
		SphericalLeafSize:  DefaultSphericalLeafSize,
		FlatLeafSize:       DefaultFlatLeafSize,
	}
}

// TransformTimeout returns the transform wait as a duration.
func (cfg *Config) TransformTimeout() time.Duration {
	return time.Duration(cfg.TransformTimeoutMs) * time.Millisecond
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var errs error
	if cfg.NeighborCount < 1 {
		errs = multierr.Append(errs, errors.Errorf("neighbor_count must be at least 1, got %d", cfg.NeighborCount))
	}
	if !(cfg.CoverageThreshold > 0) || math.IsInf(cfg.CoverageThreshold, 0) {
		errs = multierr.Append(errs, errors.Errorf("coverage_threshold must be positive and finite, got %v", cfg.CoverageThreshold))
	}
	if cfg.TransformTimeoutMs < 0 {
		errs = multierr.Append(errs, errors.Errorf("transform_timeout_ms must not be negative, got %d", cfg.TransformTimeoutMs))
	}
	for _, leaf := range []struct {
		name string
		on   bool
		size float64
	}{
		{"depth_leaf_size", cfg.VoxelizeDepth, cfg.DepthLeafSize},
		{"spherical_leaf_size", cfg.VoxelizeSpherical, cfg.SphericalLeafSize},
		{"flat_leaf_size", cfg.VoxelizeFlat, cfg.FlatLeafSize},
	} {
		if leaf.on && (!(leaf.size > 0) || math.IsInf(leaf.size, 0)) {
			errs = multierr.Append(errs, errors.Errorf("%s must be positive when voxelizing, got %v", leaf.name, leaf.size))
		}
	}
	if errs != nil {
		return utils.NewConfigValidationError(path, errs)
	}
	return nil
}
