package accel

import (
	"math"
	"math/rand/v2"
)

// UniformSource yields uniform variates in [0, 1).
// *rand.Rand from math/rand/v2 satisfies it.
type UniformSource interface {
	Float64() float64
}

// Generator produces one session of synthetic samples.
type Generator struct {
	cfg Config
	src UniformSource
}

// NewGenerator returns a Generator backed by a PCG source seeded with seed.
// Two generators built from the same Config and seed produce identical
// sessions.
func NewGenerator(cfg Config, seed uint64) *Generator {
	return NewGeneratorWithSource(cfg, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// NewGeneratorWithSource returns a Generator drawing from src.
func NewGeneratorWithSource(cfg Config, src UniformSource) *Generator {
	return &Generator{cfg: cfg, src: src}
}

// Config returns the generator's session configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// Normal draws one variate from N(mean, stddev) via the Box–Muller transform.
// A zero u1 is re-drawn, since ln(0) would make the variate non-finite.
func (g *Generator) Normal(mean, stddev float64) float64 {
	u1 := g.src.Float64()
	for u1 == 0 {
		u1 = g.src.Float64()
	}
	u2 := g.src.Float64()

	z := math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
	return mean + stddev*z
}

// Generate produces SampleCount samples and their magnitudes. Both slices are
// allocated once at full length; Filtered is left zero for the filter stage.
func (g *Generator) Generate() ([]Sample, []Processed) {
	n := g.cfg.SampleCount()
	samples := make([]Sample, n)
	processed := make([]Processed, n)

	for i := 0; i < n; i++ {
		s := Sample{
			X: g.Normal(g.cfg.X.Mean, g.cfg.X.StdDev),
			Y: g.Normal(g.cfg.Y.Mean, g.cfg.Y.StdDev),
			Z: g.Normal(g.cfg.Z.Mean, g.cfg.Z.StdDev),
		}
		samples[i] = s
		processed[i].Magnitude = s.Magnitude()
	}

	return samples, processed
}

// Magnitudes copies the magnitude column out of processed.
func Magnitudes(processed []Processed) []float64 {
	out := make([]float64, len(processed))
	for i, p := range processed {
		out[i] = p.Magnitude
	}
	return out
}

// Filtered copies the filtered column out of processed.
func Filtered(processed []Processed) []float64 {
	out := make([]float64, len(processed))
	for i, p := range processed {
		out[i] = p.Filtered
	}
	return out
}
