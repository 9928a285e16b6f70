package dsp

// FilterTaps is the moving-average length used by LowPass.
const FilterTaps = 4

// MovingAverage is a causal moving average over a zero-initialised ring of
// the most recent taps values. Until the ring has been filled, outputs are
// averaged with the remaining zeros, so the first taps-1 outputs are biased
// low.
type MovingAverage struct {
	ring []float64
	next int
}

// NewMovingAverage returns a filter averaging over taps values.
// taps < 1 is treated as 1.
func NewMovingAverage(taps int) *MovingAverage {
	if taps < 1 {
		taps = 1
	}
	return &MovingAverage{ring: make([]float64, taps)}
}

// Push inserts v, overwriting the oldest value, and returns the mean of the
// ring.
func (m *MovingAverage) Push(v float64) float64 {
	m.ring[m.next] = v
	m.next = (m.next + 1) % len(m.ring)

	sum := 0.0
	for _, x := range m.ring {
		sum += x
	}
	return sum / float64(len(m.ring))
}

// LowPass applies a fresh FilterTaps-tap moving average to magnitude and
// returns the smoothed signal, one output per input.
func LowPass(magnitude []float64) []float64 {
	ma := NewMovingAverage(FilterTaps)
	out := make([]float64, len(magnitude))
	for i, v := range magnitude {
		out[i] = ma.Push(v)
	}
	return out
}
