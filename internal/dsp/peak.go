package dsp

// PeakMode selects which extremum IsPeak tests for.
type PeakMode int

const (
	// PeakMax tests for a local maximum.
	PeakMax PeakMode = iota
	// PeakMin tests for a local minimum.
	PeakMin
)

func (m PeakMode) String() string {
	switch m {
	case PeakMax:
		return "max"
	case PeakMin:
		return "min"
	default:
		return "unknown"
	}
}

// IsPeak reports whether signal[index] is the maximum (PeakMax) or minimum
// (PeakMin) of the window [index-halfWidth, index+halfWidth], clamped to the
// signal bounds. Ties count as a peak: only a strictly greater (max) or
// strictly smaller (min) neighbour disqualifies. An index outside the signal
// is never a peak.
func IsPeak(signal []float64, index, halfWidth int, mode PeakMode) bool {
	if index < 0 || index >= len(signal) {
		return false
	}

	start := index - halfWidth
	end := index + halfWidth
	if start < 0 {
		start = 0
	}
	if end >= len(signal) {
		end = len(signal) - 1
	}

	v := signal[index]
	for i := start; i <= end; i++ {
		switch mode {
		case PeakMax:
			if signal[i] > v {
				return false
			}
		case PeakMin:
			if signal[i] < v {
				return false
			}
		default:
			return false
		}
	}
	return true
}
