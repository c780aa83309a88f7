package probe

import (
	"time"
)

// RTTHistorySize is the number of RTT samples kept for sparkline display.
const RTTHistorySize = 10

// Stats aggregates attempt outcomes across probe cycles. This is used by
// the continuous watch mode, where individual Results come and go but the
// rolling view persists.
type Stats struct {
	Sent       int
	Recv       int
	Refused    int
	BestRTT    time.Duration
	WorstRTT   time.Duration
	SumRTT     time.Duration // For calculating avg
	LastRTT    time.Duration
	RTTHistory []time.Duration // Ring buffer for sparkline
}

// NewStats creates an empty Stats.
func NewStats() *Stats {
	return &Stats{
		RTTHistory: make([]time.Duration, 0, RTTHistorySize),
	}
}

// Add folds one attempt into the aggregate.
func (s *Stats) Add(a Attempt) {
	s.Sent++
	if a.Timeout {
		return
	}
	if a.Refused {
		s.Refused++
		return
	}
	s.Recv++
	s.LastRTT = a.RTT
	s.SumRTT += a.RTT

	if s.BestRTT == 0 || a.RTT < s.BestRTT {
		s.BestRTT = a.RTT
	}
	if a.RTT > s.WorstRTT {
		s.WorstRTT = a.RTT
	}

	if len(s.RTTHistory) >= RTTHistorySize {
		// Shift left, drop oldest
		copy(s.RTTHistory, s.RTTHistory[1:])
		s.RTTHistory[RTTHistorySize-1] = a.RTT
	} else {
		s.RTTHistory = append(s.RTTHistory, a.RTT)
	}
}

// LossPercent calculates the percentage of attempts without any outcome.
func (s *Stats) LossPercent() float64 {
	if s.Sent == 0 {
		return 0
	}
	return float64(s.Sent-s.Recv-s.Refused) / float64(s.Sent) * 100
}

// AvgRTT calculates the average RTT of completed handshakes.
func (s *Stats) AvgRTT() time.Duration {
	if s.Recv == 0 {
		return 0
	}
	return s.SumRTT / time.Duration(s.Recv)
}

// Reset clears all aggregates.
func (s *Stats) Reset() {
	*s = Stats{
		RTTHistory: make([]time.Duration, 0, RTTHistorySize),
	}
}
