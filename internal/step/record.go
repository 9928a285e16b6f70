package step

import (
	"errors"
	"fmt"
)

// ErrRecordOverflow is returned when a session produces more valid steps
// than its record buffer was sized for. It signals a configuration problem;
// events are never silently dropped.
var ErrRecordOverflow = errors.New("step record buffer overflow")

// Event is one recorded step. Ordinal is the 0-based index among valid
// events; the trailing sentinel has Valid == false and Ordinal equal to the
// number of valid events.
type Event struct {
	Time    float64 `json:"time"` // seconds, midpoint of the max/min pair
	Ordinal int     `json:"ordinal"`
	Valid   bool    `json:"valid"`
	MaxTick int     `json:"max_tick"`
	MinTick int     `json:"min_tick"`
}

// Number returns the 1-based step number used for display and export.
func (e Event) Number() int {
	return e.Ordinal + 1
}

// EventTime returns the midpoint time in seconds of a max/min tick pair.
func EventTime(maxTick, minTick, sampleRate int) float64 {
	return float64(maxTick+minTick) / (2 * float64(sampleRate))
}

// Records is an ordered event sequence terminated by a sentinel.
type Records []Event

// Valid returns the prefix of r before the first sentinel.
func (r Records) Valid() Records {
	for i, e := range r {
		if !e.Valid {
			return r[:i]
		}
	}
	return r
}

// Total returns the number of valid events before the sentinel.
func (r Records) Total() int {
	return len(r.Valid())
}

// RecordCapacity returns how many valid events a session of sampleCount
// ticks may hold.
func RecordCapacity(sampleCount int) int {
	return sampleCount / 10
}

// Recorder is the append-only step sink for one session. Its buffer is
// allocated once: capacity valid events plus the sentinel.
type Recorder struct {
	sampleRate int
	capacity   int
	events     []Event
	closed     bool
}

// NewRecorder returns a Recorder sized for a session of sampleCount ticks.
func NewRecorder(sampleCount, sampleRate int) *Recorder {
	capacity := RecordCapacity(sampleCount)
	return &Recorder{
		sampleRate: sampleRate,
		capacity:   capacity,
		events:     make([]Event, 0, capacity+1),
	}
}

// Capacity returns the maximum number of valid events.
func (r *Recorder) Capacity() int { return r.capacity }

// Record appends a valid event for the max/min tick pair.
func (r *Recorder) Record(maxTick, minTick int) error {
	if r.closed {
		return errors.New("record after close")
	}
	if len(r.events) >= r.capacity {
		return fmt.Errorf("%w: capacity %d reached at ticks %d/%d", ErrRecordOverflow, r.capacity, maxTick, minTick)
	}
	r.events = append(r.events, Event{
		Time:    EventTime(maxTick, minTick, r.sampleRate),
		Ordinal: len(r.events),
		Valid:   true,
		MaxTick: maxTick,
		MinTick: minTick,
	})
	return nil
}

// Close appends the end-of-session sentinel and returns the records.
// Calling Close again returns the same records.
func (r *Recorder) Close() Records {
	if !r.closed {
		r.events = append(r.events, Event{Ordinal: len(r.events), Valid: false})
		r.closed = true
	}
	return Records(r.events)
}
