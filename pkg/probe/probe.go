// Package probe defines the data model for TCP connection probe results.
package probe

import (
	"time"
)

// Attempt represents a single connection attempt against a target.
type Attempt struct {
	RTT     time.Duration // Handshake round-trip time
	Timeout bool          // No outcome before the deadline
	Refused bool          // Target reachable but the port sent RST
}

// Result contains the complete result of a probe run against one target.
type Result struct {
	Target    string // Target as given (hostname or address)
	Addr      string // Resolved address the probes connected to
	Attempts  []Attempt
	StartTime time.Time
	EndTime   time.Time
}

// NewResult creates a new Result for the given target.
func NewResult(target, addr string) *Result {
	return &Result{
		Target:   target,
		Addr:     addr,
		Attempts: make([]Attempt, 0),
	}
}

// AddRTT records a completed handshake.
func (r *Result) AddRTT(rtt time.Duration) {
	r.Attempts = append(r.Attempts, Attempt{RTT: rtt})
}

// AddTimeout records an attempt with no outcome before the deadline.
func (r *Result) AddTimeout() {
	r.Attempts = append(r.Attempts, Attempt{Timeout: true})
}

// AddRefused records an attempt the target rejected. The RTT is the time
// until the rejection arrived.
func (r *Result) AddRefused(rtt time.Duration) {
	r.Attempts = append(r.Attempts, Attempt{RTT: rtt, Refused: true})
}

// Sent returns the number of attempts made.
func (r *Result) Sent() int {
	return len(r.Attempts)
}

// Completed returns the number of attempts that finished the handshake.
func (r *Result) Completed() int {
	var n int
	for _, a := range r.Attempts {
		if !a.Timeout && !a.Refused {
			n++
		}
	}
	return n
}

// Reachable returns true if any attempt completed the handshake.
func (r *Result) Reachable() bool {
	return r.Completed() > 0
}

// Refused returns true if any attempt was rejected by the target. A
// refused port still proves the host itself answered.
func (r *Result) Refused() bool {
	for _, a := range r.Attempts {
		if a.Refused {
			return true
		}
	}
	return false
}

// LossPercent calculates the percentage of attempts without any outcome.
func (r *Result) LossPercent() float64 {
	if len(r.Attempts) == 0 {
		return 0
	}
	var timeouts int
	for _, a := range r.Attempts {
		if a.Timeout {
			timeouts++
		}
	}
	return float64(timeouts) / float64(len(r.Attempts)) * 100
}

// AvgRTT calculates the average handshake RTT excluding timeouts.
func (r *Result) AvgRTT() time.Duration {
	var total time.Duration
	var count int
	for _, a := range r.Attempts {
		if !a.Timeout {
			total += a.RTT
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / time.Duration(count)
}

// MinRTT returns the fastest observed RTT, or zero when every attempt
// timed out.
func (r *Result) MinRTT() time.Duration {
	var best time.Duration
	for _, a := range r.Attempts {
		if a.Timeout {
			continue
		}
		if best == 0 || a.RTT < best {
			best = a.RTT
		}
	}
	return best
}

// MaxRTT returns the slowest observed RTT, or zero when every attempt
// timed out.
func (r *Result) MaxRTT() time.Duration {
	var worst time.Duration
	for _, a := range r.Attempts {
		if !a.Timeout && a.RTT > worst {
			worst = a.RTT
		}
	}
	return worst
}
