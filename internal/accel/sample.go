package accel

import (
	"math"

	"github.com/banshee-data/step.report/internal/config"
)

// Sample is one tick of tri-axial acceleration, in g.
type Sample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Magnitude returns the sum of absolute axis values.
func (s Sample) Magnitude() float64 {
	return math.Abs(s.X) + math.Abs(s.Y) + math.Abs(s.Z)
}

// Processed is the per-tick derived signal, index-aligned with Sample.
// Magnitude is written by the Generator, Filtered by the low-pass filter.
type Processed struct {
	Magnitude float64 `json:"magnitude"`
	Filtered  float64 `json:"filtered"`
}

// Axis is the normal distribution one axis is drawn from.
type Axis struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// Config describes the session shape and per-axis distributions.
type Config struct {
	SampleRate    int  `json:"sample_rate"`    // Hz
	PeriodSeconds int  `json:"period_seconds"` // s
	X             Axis `json:"x"`
	Y             Axis `json:"y"`
	Z             Axis `json:"z"`
}

// DefaultConfig returns the walking-gait defaults: 50 Hz for 300 s.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning maps a tuning document onto a generator Config.
func ConfigFromTuning(t *config.TuningConfig) Config {
	return Config{
		SampleRate:    t.GetSampleRate(),
		PeriodSeconds: t.GetPeriodSeconds(),
		X:             Axis{Mean: t.GetXMean(), StdDev: t.GetXStdDev()},
		Y:             Axis{Mean: t.GetYMean(), StdDev: t.GetYStdDev()},
		Z:             Axis{Mean: t.GetZMean(), StdDev: t.GetZStdDev()},
	}
}

// SampleCount returns the number of ticks in one session.
func (c Config) SampleCount() int {
	return c.SampleRate * c.PeriodSeconds
}
