// Package step detects pedestrian steps in a filtered acceleration signal.
//
// Responsibilities: max→min peak-pair search, the rolling dynamic
// threshold, the consecutive-step / regular-mode state machine, and the
// append-only record of step events terminated by a sentinel.
// Key types: Detector, DetectionState, Recorder, Event, Records.
//
// The detector reads the filtered signal only; it never writes to it.
package step
