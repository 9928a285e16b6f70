// Package session runs the step pipeline end to end: generate, filter,
// detect, record. A Session is immutable once Run returns and may be shared
// by concurrent readers.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/step.report/internal/accel"
	"github.com/banshee-data/step.report/internal/config"
	"github.com/banshee-data/step.report/internal/dsp"
	"github.com/banshee-data/step.report/internal/monitoring"
	"github.com/banshee-data/step.report/internal/step"
	"github.com/banshee-data/step.report/internal/timeutil"
)

// Session is one completed run of the pipeline.
type Session struct {
	ID        uuid.UUID
	Seed      uint64
	StartedAt time.Time
	Elapsed   time.Duration

	Config accel.Config
	Params step.Params

	Samples   []accel.Sample
	Processed []accel.Processed
	Result    step.Result
	Summary   accel.Summary
}

// Steps returns the valid events, in order, without the sentinel.
func (s *Session) Steps() step.Records {
	return s.Result.Events.Valid()
}

// TotalDetected returns the number of valid events before the sentinel.
func (s *Session) TotalDetected() int {
	return s.Result.Events.Total()
}

// Filtered returns a copy of the filtered signal.
func (s *Session) Filtered() []float64 {
	return accel.Filtered(s.Processed)
}

// Runner builds sessions from one tuning document.
type Runner struct {
	tuning *config.TuningConfig
	clock  timeutil.Clock
	logf   func(format string, v ...interface{})
}

// NewRunner returns a Runner. A nil tuning uses the compile-time defaults
// and a nil clock uses the wall clock.
func NewRunner(tuning *config.TuningConfig, clock timeutil.Clock) *Runner {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Runner{tuning: tuning, clock: clock, logf: monitoring.Component("session")}
}

// DefaultSeed returns the tuning seed if one is set, otherwise a seed
// derived from the clock.
func (r *Runner) DefaultSeed() uint64 {
	if seed, ok := r.tuning.GetSeed(); ok {
		return seed
	}
	return uint64(r.clock.Now().UnixNano())
}

// Run generates and analyses one session from seed.
func (r *Runner) Run(seed uint64) (*Session, error) {
	if err := r.tuning.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}

	start := r.clock.Now()
	cfg := accel.ConfigFromTuning(r.tuning)
	params := step.ParamsFromTuning(r.tuning)

	samples, processed := accel.NewGenerator(cfg, seed).Generate()

	result, err := Analyze(processed, params)
	if err != nil {
		return nil, fmt.Errorf("session seed %d: %w", seed, err)
	}

	s := &Session{
		ID:        uuid.New(),
		Seed:      seed,
		StartedAt: start,
		Config:    cfg,
		Params:    params,
		Samples:   samples,
		Processed: processed,
		Result:    result,
		Summary:   accel.Summarize(samples, processed),
	}
	s.Elapsed = r.clock.Since(start)

	r.logf("session %s: seed=%d samples=%d steps=%d credited=%d in %v",
		s.ID, seed, len(samples), s.TotalDetected(), result.TotalSteps, s.Elapsed)
	return s, nil
}

// Analyze filters the magnitude column of processed into its Filtered
// column and runs the step detector over it. Magnitudes are only read.
func Analyze(processed []accel.Processed, params step.Params) (step.Result, error) {
	filtered := dsp.LowPass(accel.Magnitudes(processed))
	for i := range processed {
		processed[i].Filtered = filtered[i]
	}
	return step.NewDetector(params).Detect(filtered)
}
