package step

// ThresholdSlots is the number of recent midpoints averaged into the
// dynamic threshold.
const ThresholdSlots = 4

// DetectionState is the state machine threaded through one Detect pass.
// The threshold ring starts zeroed, so early thresholds are biased low
// until ThresholdSlots midpoints have been pushed.
type DetectionState struct {
	sensitivity         float64
	validStepsThreshold int

	ring      [ThresholdSlots]float64
	next      int
	threshold float64

	consecutive int
	regular     bool
	total       int
}

// NewDetectionState returns a fresh, irregular state for p.
func NewDetectionState(p Params) *DetectionState {
	return &DetectionState{
		sensitivity:         p.Sensitivity,
		validStepsThreshold: p.ValidStepsThreshold,
	}
}

// Threshold returns the current dynamic threshold.
func (s *DetectionState) Threshold() float64 { return s.threshold }

// Consecutive returns the run of valid steps seen while irregular.
func (s *DetectionState) Consecutive() int { return s.consecutive }

// Regular reports whether regular mode is active.
func (s *DetectionState) Regular() bool { return s.regular }

// TotalSteps returns the credited step count. It includes the one-time
// batch credit granted on entering regular mode, so it can differ from the
// number of recorded events.
func (s *DetectionState) TotalSteps() int { return s.total }

// Evaluate classifies one max/min pair and applies the resulting
// transition. It returns true when the pair is a valid step, in which case
// the caller records an event.
func (s *DetectionState) Evaluate(maxPeak, minPeak float64) bool {
	if maxPeak-minPeak > s.sensitivity {
		s.push((maxPeak + minPeak) / 2)
	}

	margin := s.sensitivity / 2
	if !(maxPeak > s.threshold+margin && minPeak < s.threshold-margin) {
		s.breakRun()
		return false
	}

	if s.regular {
		s.total++
		return true
	}

	s.consecutive++
	if s.consecutive > s.validStepsThreshold {
		s.total += s.validStepsThreshold
		s.regular = true
	}
	return true
}

// Lost records a maximum with no minimum inside the search horizon. A lost
// step breaks regularity like an invalid pair does.
func (s *DetectionState) Lost() {
	s.breakRun()
}

func (s *DetectionState) breakRun() {
	s.consecutive = 0
	s.regular = false
}

// push overwrites the oldest ring slot with v and recomputes the threshold
// as the mean of all slots.
func (s *DetectionState) push(v float64) {
	s.ring[s.next] = v
	sum := 0.0
	for _, x := range s.ring {
		sum += x
	}
	s.next = (s.next + 1) % ThresholdSlots
	s.threshold = sum / ThresholdSlots
}
