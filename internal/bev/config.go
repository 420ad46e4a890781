package bev

import (
	"github.com/bbejczy/polarseg-kitti/internal/config"
)

// GridConfig provides a configuration builder for the polar voxel grid.
// It allows setting parameters with defaults and validation before building
// arenas and voxel grids.
type GridConfig struct {
	// Grid resolution
	Rings       int // radial bins (default: 480)
	AzimuthBins int // angular bins over [0, 2*pi) (default: 360)
	HeightBins  int // vertical bins (default: 32)

	// Crop volume. Points outside are clamped to the boundary bins rather
	// than dropped, so every point always has a cell.
	RadiusMin float64 // metres, inner radial bound (default: 3.0)
	RadiusMax float64 // metres, outer radial bound (default: 50.0)
	HeightMin float64 // metres, lower height bound (default: -3.0)
	HeightMax float64 // metres, upper height bound (default: 1.5)
}

// DefaultGridConfig returns a GridConfig loaded from the canonical pipeline
// defaults file (config/pipeline.defaults.json). Panics if the file cannot
// be found, so callers that need a soft failure should load a
// PipelineConfig themselves.
func DefaultGridConfig() *GridConfig {
	cfg := config.MustLoadDefaultConfig()
	return GridConfigFromPipeline(cfg)
}

// GridConfigFromPipeline builds a GridConfig from a loaded PipelineConfig.
// Use this in production code where the PipelineConfig is already loaded.
func GridConfigFromPipeline(cfg *config.PipelineConfig) *GridConfig {
	return &GridConfig{
		Rings:       cfg.GetRings(),
		AzimuthBins: cfg.GetAzimuthBins(),
		HeightBins:  cfg.GetHeightBins(),
		RadiusMin:   cfg.GetRadiusMin(),
		RadiusMax:   cfg.GetRadiusMax(),
		HeightMin:   cfg.GetHeightMin(),
		HeightMax:   cfg.GetHeightMax(),
	}
}

// Validate checks if the configuration is valid.
// Returns a ConfigurationError if any parameter is out of acceptable range.
func (c *GridConfig) Validate() error {
	if c.Rings <= 0 {
		return config.Errorf("Rings", "must be positive, got %d", c.Rings)
	}
	if c.AzimuthBins <= 0 {
		return config.Errorf("AzimuthBins", "must be positive, got %d", c.AzimuthBins)
	}
	if c.HeightBins <= 0 {
		return config.Errorf("HeightBins", "must be positive, got %d", c.HeightBins)
	}
	if c.RadiusMin < 0 {
		return config.Errorf("RadiusMin", "must be non-negative, got %f", c.RadiusMin)
	}
	if c.RadiusMax <= c.RadiusMin {
		return config.Errorf("RadiusMax", "must be greater than RadiusMin, got %f <= %f", c.RadiusMax, c.RadiusMin)
	}
	if c.HeightMax <= c.HeightMin {
		return config.Errorf("HeightMax", "must be greater than HeightMin, got %f <= %f", c.HeightMax, c.HeightMin)
	}
	return nil
}

// WithRings sets the radial bin count.
func (c *GridConfig) WithRings(n int) *GridConfig {
	c.Rings = n
	return c
}

// WithAzimuthBins sets the angular bin count.
func (c *GridConfig) WithAzimuthBins(n int) *GridConfig {
	c.AzimuthBins = n
	return c
}

// WithHeightBins sets the vertical bin count.
func (c *GridConfig) WithHeightBins(n int) *GridConfig {
	c.HeightBins = n
	return c
}

// WithRadiusRange sets the inner and outer radial bounds in metres.
func (c *GridConfig) WithRadiusRange(min, max float64) *GridConfig {
	c.RadiusMin = min
	c.RadiusMax = max
	return c
}

// WithHeightRange sets the lower and upper height bounds in metres.
func (c *GridConfig) WithHeightRange(min, max float64) *GridConfig {
	c.HeightMin = min
	c.HeightMax = max
	return c
}
