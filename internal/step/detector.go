package step

import (
	"fmt"

	"github.com/banshee-data/step.report/internal/dsp"
	"github.com/banshee-data/step.report/internal/monitoring"
)

// Result is the outcome of one Detect pass.
type Result struct {
	Events     Records `json:"events"`
	TotalSteps int     `json:"total_steps"` // credited count, see DetectionState.TotalSteps
	Regular    bool    `json:"regular"`     // regular mode at end of session
	Threshold  float64 `json:"threshold"`   // dynamic threshold at end of session

	Candidates int `json:"candidates"` // maxima examined
	Pairs      int `json:"pairs"`      // maxima that found a minimum
	Lost       int `json:"lost"`       // maxima with no minimum in the horizon
}

// Detector scans a filtered signal for max→min peak pairs.
type Detector struct {
	params Params
	logf   func(format string, v ...interface{})
}

// NewDetector returns a Detector for p.
func NewDetector(p Params) *Detector {
	return &Detector{params: p, logf: monitoring.Component("step")}
}

// Params returns the detector parameters.
func (d *Detector) Params() Params {
	return d.params
}

// Detect runs one left-to-right pass over filtered with a fresh
// DetectionState. The returned Events always end with a sentinel.
func (d *Detector) Detect(filtered []float64) (Result, error) {
	return d.detect(filtered, NewDetectionState(d.params))
}

func (d *Detector) detect(filtered []float64, st *DetectionState) (Result, error) {
	var res Result
	rec := NewRecorder(len(filtered), d.params.SampleRate)
	halfWidth := d.params.HalfWidth()

	for i := range filtered {
		if !dsp.IsPeak(filtered, i, halfWidth, dsp.PeakMax) {
			continue
		}
		res.Candidates++

		j, ok := d.firstMinimum(filtered, i)
		if !ok {
			st.Lost()
			res.Lost++
			continue
		}
		res.Pairs++

		if st.Evaluate(filtered[i], filtered[j]) {
			if err := rec.Record(i, j); err != nil {
				return Result{}, fmt.Errorf("detect steps: %w", err)
			}
		}
		// The outer scan resumes at i+1, not past j: overlapping
		// candidates are expected.
	}

	res.Events = rec.Close()
	res.TotalSteps = st.TotalSteps()
	res.Regular = st.Regular()
	res.Threshold = st.Threshold()

	d.logf("scanned %d ticks: %d maxima, %d pairs, %d lost, %d valid events, %d credited steps",
		len(filtered), res.Candidates, res.Pairs, res.Lost, res.Events.Total(), res.TotalSteps)
	return res, nil
}

// firstMinimum returns the first tick j in [i, i+horizon) that is a minimum
// peak. The search stops at the first match, not the deepest one.
func (d *Detector) firstMinimum(filtered []float64, i int) (int, bool) {
	halfWidth := d.params.HalfWidth()
	end := i + d.params.Horizon()
	if end > len(filtered) {
		end = len(filtered)
	}
	for j := i; j < end; j++ {
		if dsp.IsPeak(filtered, j, halfWidth, dsp.PeakMin) {
			return j, true
		}
	}
	return 0, false
}
