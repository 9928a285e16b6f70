// Package accel synthesises tri-axial accelerometer sessions.
//
// A session is SampleRate × PeriodSeconds ticks. Each axis is drawn from an
// independent normal distribution (Box–Muller over a seedable uniform
// source) and each tick carries the L1 magnitude |x|+|y|+|z| that feeds the
// low-pass filter in package dsp.
//
// Key types: Sample, Processed, Generator, Summary.
package accel
