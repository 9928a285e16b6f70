package accel

import (
	"gonum.org/v1/gonum/stat"
)

// Summary holds sample statistics for one session.
type Summary struct {
	X         Axis `json:"x"`
	Y         Axis `json:"y"`
	Z         Axis `json:"z"`
	Magnitude Axis `json:"magnitude"`
	Filtered  Axis `json:"filtered"`
}

// Summarize computes per-axis and per-signal mean and standard deviation.
func Summarize(samples []Sample, processed []Processed) Summary {
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	zs := make([]float64, len(samples))
	for i, s := range samples {
		xs[i], ys[i], zs[i] = s.X, s.Y, s.Z
	}

	return Summary{
		X:         axisStats(xs),
		Y:         axisStats(ys),
		Z:         axisStats(zs),
		Magnitude: axisStats(Magnitudes(processed)),
		Filtered:  axisStats(Filtered(processed)),
	}
}

func axisStats(values []float64) Axis {
	if len(values) < 2 {
		return Axis{}
	}
	mean, std := stat.MeanStdDev(values, nil)
	return Axis{Mean: mean, StdDev: std}
}
