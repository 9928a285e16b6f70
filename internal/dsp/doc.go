// Package dsp holds the stateless and small-state signal primitives of the
// step pipeline: the causal moving-average low-pass filter and the windowed
// peak predicate.
//
// Neither primitive allocates per call beyond its construction, and neither
// keeps package-level state: every session builds its own MovingAverage.
package dsp
