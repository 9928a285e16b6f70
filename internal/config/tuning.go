package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Compile-time session defaults. A TuningConfig with every field left nil
// reproduces exactly these values.
const (
	DefaultSampleRate          = 50  // Hz
	DefaultPeriodSeconds       = 300 // s
	DefaultWindowSize          = 15  // ticks
	DefaultValidStepsThreshold = 8
	DefaultSensitivity         = 0.100
)

// Per-axis normal distribution defaults approximating a walking gait's
// dominant-axis oscillation.
const (
	DefaultXMean   = 1.200
	DefaultXStdDev = 0.133
	DefaultYMean   = 0.500
	DefaultYStdDev = 0.066
	DefaultZMean   = 0.300
	DefaultZStdDev = 0.033
)

// Upper bounds on the session shape. Every buffer is sized from
// rate*period, so both factors are capped before they are multiplied.
const (
	MaxSampleRate    = 1000 // Hz
	MaxPeriodSeconds = 3600 // s
)

// maxConfigFileSize caps how much we read from a tuning file.
const maxConfigFileSize = 1 * 1024 * 1024 // 1MB

// TuningConfig represents the session tuning document. All fields are
// optional; the Get* methods fall back to the compile-time defaults, so a
// partial (or empty) JSON or YAML file is valid.
type TuningConfig struct {
	// Session shape
	SampleRate    *int `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
	PeriodSeconds *int `json:"period_seconds,omitempty" yaml:"period_seconds,omitempty"`

	// Generator
	Seed    *uint64  `json:"seed,omitempty" yaml:"seed,omitempty"`
	XMean   *float64 `json:"x_mean,omitempty" yaml:"x_mean,omitempty"`
	XStdDev *float64 `json:"x_stddev,omitempty" yaml:"x_stddev,omitempty"`
	YMean   *float64 `json:"y_mean,omitempty" yaml:"y_mean,omitempty"`
	YStdDev *float64 `json:"y_stddev,omitempty" yaml:"y_stddev,omitempty"`
	ZMean   *float64 `json:"z_mean,omitempty" yaml:"z_mean,omitempty"`
	ZStdDev *float64 `json:"z_stddev,omitempty" yaml:"z_stddev,omitempty"`

	// Detector
	WindowSize          *int     `json:"window_size,omitempty" yaml:"window_size,omitempty"`
	ValidStepsThreshold *int     `json:"valid_steps_threshold,omitempty" yaml:"valid_steps_threshold,omitempty"`
	Sensitivity         *float64 `json:"sensitivity,omitempty" yaml:"sensitivity,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated from
// the compile-time defaults. Seed stays nil: an unseeded session picks its
// seed from the clock.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		SampleRate:          ptrInt(DefaultSampleRate),
		PeriodSeconds:       ptrInt(DefaultPeriodSeconds),
		XMean:               ptrFloat64(DefaultXMean),
		XStdDev:             ptrFloat64(DefaultXStdDev),
		YMean:               ptrFloat64(DefaultYMean),
		YStdDev:             ptrFloat64(DefaultYStdDev),
		ZMean:               ptrFloat64(DefaultZMean),
		ZStdDev:             ptrFloat64(DefaultZStdDev),
		WindowSize:          ptrInt(DefaultWindowSize),
		ValidStepsThreshold: ptrInt(DefaultValidStepsThreshold),
		Sensitivity:         ptrFloat64(DefaultSensitivity),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON or YAML file.
// The file must have a .json, .yaml or .yml extension and be under the max
// file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	var unmarshal func([]byte, any) error
	switch ext {
	case ".json":
		unmarshal = json.Unmarshal
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.SampleRate != nil && *c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", *c.SampleRate)
	}
	if c.SampleRate != nil && *c.SampleRate > MaxSampleRate {
		return fmt.Errorf("sample_rate must be at most %d, got %d", MaxSampleRate, *c.SampleRate)
	}
	if c.PeriodSeconds != nil && *c.PeriodSeconds <= 0 {
		return fmt.Errorf("period_seconds must be positive, got %d", *c.PeriodSeconds)
	}
	if c.PeriodSeconds != nil && *c.PeriodSeconds > MaxPeriodSeconds {
		return fmt.Errorf("period_seconds must be at most %d, got %d", MaxPeriodSeconds, *c.PeriodSeconds)
	}
	if c.WindowSize != nil && *c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", *c.WindowSize)
	}
	if c.ValidStepsThreshold != nil && *c.ValidStepsThreshold < 0 {
		return fmt.Errorf("valid_steps_threshold must be non-negative, got %d", *c.ValidStepsThreshold)
	}
	if c.Sensitivity != nil && *c.Sensitivity < 0 {
		return fmt.Errorf("sensitivity must be non-negative, got %f", *c.Sensitivity)
	}

	for name, sd := range map[string]*float64{
		"x_stddev": c.XStdDev,
		"y_stddev": c.YStdDev,
		"z_stddev": c.ZStdDev,
	} {
		if sd != nil && *sd < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *sd)
		}
	}

	// A session shorter than ten ticks leaves no room for even one step record.
	if c.GetSampleCount() < 10 {
		return fmt.Errorf("session too short: %d samples (min 10)", c.GetSampleCount())
	}

	return nil
}

// GetSampleRate returns the sample_rate value or the default.
func (c *TuningConfig) GetSampleRate() int {
	if c.SampleRate == nil {
		return DefaultSampleRate
	}
	return *c.SampleRate
}

// GetPeriodSeconds returns the period_seconds value or the default.
func (c *TuningConfig) GetPeriodSeconds() int {
	if c.PeriodSeconds == nil {
		return DefaultPeriodSeconds
	}
	return *c.PeriodSeconds
}

// GetSampleCount returns the number of ticks in one session.
func (c *TuningConfig) GetSampleCount() int {
	return c.GetSampleRate() * c.GetPeriodSeconds()
}

// GetSeed returns the configured seed and whether one was set.
func (c *TuningConfig) GetSeed() (uint64, bool) {
	if c.Seed == nil {
		return 0, false
	}
	return *c.Seed, true
}

// GetXMean returns the x_mean value or the default.
func (c *TuningConfig) GetXMean() float64 {
	if c.XMean == nil {
		return DefaultXMean
	}
	return *c.XMean
}

// GetXStdDev returns the x_stddev value or the default.
func (c *TuningConfig) GetXStdDev() float64 {
	if c.XStdDev == nil {
		return DefaultXStdDev
	}
	return *c.XStdDev
}

// GetYMean returns the y_mean value or the default.
func (c *TuningConfig) GetYMean() float64 {
	if c.YMean == nil {
		return DefaultYMean
	}
	return *c.YMean
}

// GetYStdDev returns the y_stddev value or the default.
func (c *TuningConfig) GetYStdDev() float64 {
	if c.YStdDev == nil {
		return DefaultYStdDev
	}
	return *c.YStdDev
}

// GetZMean returns the z_mean value or the default.
func (c *TuningConfig) GetZMean() float64 {
	if c.ZMean == nil {
		return DefaultZMean
	}
	return *c.ZMean
}

// GetZStdDev returns the z_stddev value or the default.
func (c *TuningConfig) GetZStdDev() float64 {
	if c.ZStdDev == nil {
		return DefaultZStdDev
	}
	return *c.ZStdDev
}

// GetWindowSize returns the window_size value or the default.
func (c *TuningConfig) GetWindowSize() int {
	if c.WindowSize == nil {
		return DefaultWindowSize
	}
	return *c.WindowSize
}

// GetValidStepsThreshold returns the valid_steps_threshold value or the default.
func (c *TuningConfig) GetValidStepsThreshold() int {
	if c.ValidStepsThreshold == nil {
		return DefaultValidStepsThreshold
	}
	return *c.ValidStepsThreshold
}

// GetSensitivity returns the sensitivity value or the default.
func (c *TuningConfig) GetSensitivity() float64 {
	if c.Sensitivity == nil {
		return DefaultSensitivity
	}
	return *c.Sensitivity
}
