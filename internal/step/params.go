package step

import "github.com/banshee-data/step.report/internal/config"

// Params are the detector constants for one session.
type Params struct {
	SampleRate          int     `json:"sample_rate"`           // Hz; also the minimum-search horizon in ticks
	WindowSize          int     `json:"window_size"`           // peak window in ticks; half-width is WindowSize/2
	ValidStepsThreshold int     `json:"valid_steps_threshold"` // consecutive valid steps needed to enter regular mode
	Sensitivity         float64 `json:"sensitivity"`           // minimum max-min swing, and the validity margin
}

// DefaultParams returns the walking defaults.
func DefaultParams() Params {
	return ParamsFromTuning(config.EmptyTuningConfig())
}

// ParamsFromTuning maps a tuning document onto detector Params.
func ParamsFromTuning(t *config.TuningConfig) Params {
	return Params{
		SampleRate:          t.GetSampleRate(),
		WindowSize:          t.GetWindowSize(),
		ValidStepsThreshold: t.GetValidStepsThreshold(),
		Sensitivity:         t.GetSensitivity(),
	}
}

// HalfWidth returns the peak window half-width (integer truncation).
func (p Params) HalfWidth() int {
	return p.WindowSize / 2
}

// Horizon returns how many ticks after a maximum are searched for its
// minimum: one second of samples.
func (p Params) Horizon() int {
	return p.SampleRate
}
