package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
// This is the single source of truth for all default pipeline values.
const DefaultConfigPath = "config/pipeline.defaults.json"

// PipelineConfig represents the root configuration for the segmentation
// pipeline. The same JSON schema is accepted by the CLI --config flag and
// by the /api/runs endpoint, so a run can be reproduced from its recorded
// config verbatim.
type PipelineConfig struct {
	// Polar grid params
	Rings       *int     `json:"rings,omitempty"`
	AzimuthBins *int     `json:"azimuth_bins,omitempty"`
	HeightBins  *int     `json:"height_bins,omitempty"`
	RadiusMin   *float64 `json:"radius_min,omitempty"`
	RadiusMax   *float64 `json:"radius_max,omitempty"`
	HeightMin   *float64 `json:"height_min,omitempty"`
	HeightMax   *float64 `json:"height_max,omitempty"`

	// Feature params
	Pooling     *string `json:"pooling,omitempty"`      // "max" or "mean"
	FeatureMode *string `json:"feature_mode,omitempty"` // "polar9" or "polar3"

	// Runner params
	Workers  *int  `json:"workers,omitempty"`
	FailFast *bool `json:"fail_fast,omitempty"`

	// Dataset and submission params
	DataRoot       *string `json:"data_root,omitempty"`
	ModelName      *string `json:"model_name,omitempty"`
	SubmissionRoot *string `json:"submission_root,omitempty"`
	LabelMapPath   *string `json:"label_map,omitempty"` // empty: use the embedded dictionary
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyPipelineConfig returns a PipelineConfig with all fields set to nil.
// Use LoadPipelineConfig to load actual values from a file.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe. All failures are configuration
// errors: nothing downstream has been built yet when they are reported.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, Errorf("config_file", "must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, Errorf("config_file", "cannot stat %s: %v", cleanPath, err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, Errorf("config_file", "too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, Errorf("config_file", "cannot read %s: %v", cleanPath, err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, Errorf("config_file", "cannot parse %s: %v", cleanPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical pipeline defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *PipelineConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadPipelineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. Geometry checks
// that need the fully resolved grid (for example radius ordering when only
// one bound is overridden) are repeated by the grid builder; this catches
// the errors a config file can express on its own.
func (c *PipelineConfig) Validate() error {
	if c.Rings != nil && *c.Rings <= 0 {
		return Errorf("rings", "must be positive, got %d", *c.Rings)
	}
	if c.AzimuthBins != nil && *c.AzimuthBins <= 0 {
		return Errorf("azimuth_bins", "must be positive, got %d", *c.AzimuthBins)
	}
	if c.HeightBins != nil && *c.HeightBins <= 0 {
		return Errorf("height_bins", "must be positive, got %d", *c.HeightBins)
	}
	if c.RadiusMin != nil && *c.RadiusMin < 0 {
		return Errorf("radius_min", "must be non-negative, got %f", *c.RadiusMin)
	}
	if c.RadiusMin != nil && c.RadiusMax != nil && *c.RadiusMax <= *c.RadiusMin {
		return Errorf("radius_max", "must be greater than radius_min, got %f <= %f", *c.RadiusMax, *c.RadiusMin)
	}
	if c.HeightMin != nil && c.HeightMax != nil && *c.HeightMax <= *c.HeightMin {
		return Errorf("height_max", "must be greater than height_min, got %f <= %f", *c.HeightMax, *c.HeightMin)
	}
	if c.Pooling != nil {
		if p := *c.Pooling; p != "max" && p != "mean" {
			return Errorf("pooling", "must be \"max\" or \"mean\", got %q", p)
		}
	}
	if c.FeatureMode != nil {
		if m := *c.FeatureMode; m != "polar9" && m != "polar3" {
			return Errorf("feature_mode", "must be \"polar9\" or \"polar3\", got %q", m)
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return Errorf("workers", "must be non-negative, got %d", *c.Workers)
	}
	if c.LabelMapPath != nil && *c.LabelMapPath != "" {
		if ext := filepath.Ext(*c.LabelMapPath); ext != ".yaml" && ext != ".yml" {
			return Errorf("label_map", "must have .yaml extension, got %q", ext)
		}
	}
	return nil
}

// GetRings returns the rings value or the default.
func (c *PipelineConfig) GetRings() int {
	if c.Rings == nil {
		return 480 // default
	}
	return *c.Rings
}

// GetAzimuthBins returns the azimuth_bins value or the default.
func (c *PipelineConfig) GetAzimuthBins() int {
	if c.AzimuthBins == nil {
		return 360 // default
	}
	return *c.AzimuthBins
}

// GetHeightBins returns the height_bins value or the default.
func (c *PipelineConfig) GetHeightBins() int {
	if c.HeightBins == nil {
		return 32 // default
	}
	return *c.HeightBins
}

// GetRadiusMin returns the radius_min value or the default.
func (c *PipelineConfig) GetRadiusMin() float64 {
	if c.RadiusMin == nil {
		return 3.0 // default: ignore returns off the sensor housing
	}
	return *c.RadiusMin
}

// GetRadiusMax returns the radius_max value or the default.
func (c *PipelineConfig) GetRadiusMax() float64 {
	if c.RadiusMax == nil {
		return 50.0 // default
	}
	return *c.RadiusMax
}

// GetHeightMin returns the height_min value or the default.
func (c *PipelineConfig) GetHeightMin() float64 {
	if c.HeightMin == nil {
		return -3.0 // default
	}
	return *c.HeightMin
}

// GetHeightMax returns the height_max value or the default.
func (c *PipelineConfig) GetHeightMax() float64 {
	if c.HeightMax == nil {
		return 1.5 // default
	}
	return *c.HeightMax
}

// GetPooling returns the pooling value or the default.
func (c *PipelineConfig) GetPooling() string {
	if c.Pooling == nil {
		return "max" // default
	}
	return *c.Pooling
}

// GetFeatureMode returns the feature_mode value or the default.
func (c *PipelineConfig) GetFeatureMode() string {
	if c.FeatureMode == nil {
		return "polar9" // default
	}
	return *c.FeatureMode
}

// GetWorkers returns the workers value or the default. Zero means one
// worker per CPU.
func (c *PipelineConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetFailFast returns the fail_fast value or the default.
func (c *PipelineConfig) GetFailFast() bool {
	if c.FailFast == nil {
		return false // default: log per-scan failures and continue
	}
	return *c.FailFast
}

// GetDataRoot returns the data_root value or the default.
func (c *PipelineConfig) GetDataRoot() string {
	if c.DataRoot == nil {
		return "" // no default: the CLI requires an explicit dataset root
	}
	return *c.DataRoot
}

// GetModelName returns the model_name value or the default.
func (c *PipelineConfig) GetModelName() string {
	if c.ModelName == nil {
		return "polarseg" // default
	}
	return *c.ModelName
}

// GetSubmissionRoot returns the submission_root value or the default.
func (c *PipelineConfig) GetSubmissionRoot() string {
	if c.SubmissionRoot == nil {
		return "out" // default
	}
	return *c.SubmissionRoot
}

// GetLabelMapPath returns the label_map value or the default.
func (c *PipelineConfig) GetLabelMapPath() string {
	if c.LabelMapPath == nil {
		return "" // default: embedded semantic-kitti.yaml
	}
	return *c.LabelMapPath
}
