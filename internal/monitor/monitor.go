// Package monitor provides continuous probe monitoring with change
// detection between cycles.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/hervehildenbrand/gsock/pkg/probe"
)

// ChangeType represents the type of change detected.
type ChangeType string

const (
	ChangeTypeReachability ChangeType = "reachability"
	ChangeTypeLatency      ChangeType = "latency"
	ChangeTypeLoss         ChangeType = "loss"
)

// Change represents a detected change between probe cycles.
type Change struct {
	Type      ChangeType
	Message   string
	Timestamp time.Time
	OldValue  interface{}
	NewValue  interface{}
}

// String formats the change for display.
func (c Change) String() string {
	return fmt.Sprintf("[%s] %s", c.Type, c.Message)
}

// Config holds monitoring configuration.
type Config struct {
	Interval         time.Duration // Time between probe cycles
	LatencyThreshold time.Duration // Alert if avg RTT exceeds this
	LossThreshold    float64       // Alert if loss % exceeds this
	AlertOnReach     bool          // Alert when reachability flips
}

// DefaultConfig returns the default monitoring configuration.
func DefaultConfig() *Config {
	return &Config{
		Interval:     10 * time.Second,
		AlertOnReach: true,
	}
}

// ChangeCallback is called when changes are detected.
type ChangeCallback func([]Change)

// Monitor watches successive probe results for changes.
type Monitor struct {
	config   *Config
	callback ChangeCallback
	previous *probe.Result
}

// NewMonitor creates a new monitor with the given configuration.
func NewMonitor(cfg *Config) *Monitor {
	return &Monitor{
		config: cfg,
	}
}

// SetCallback sets the callback for change notifications.
func (m *Monitor) SetCallback(cb ChangeCallback) {
	m.callback = cb
}

// DetectChanges compares two probe cycles and returns detected changes.
func (m *Monitor) DetectChanges(prev, curr *probe.Result) []Change {
	if prev == nil {
		return nil
	}

	var changes []Change

	if m.config.AlertOnReach && prev.Reachable() != curr.Reachable() {
		state := "target became unreachable"
		if curr.Reachable() {
			state = "target became reachable"
		}
		changes = append(changes, Change{
			Type:      ChangeTypeReachability,
			Message:   state,
			Timestamp: time.Now(),
			OldValue:  prev.Reachable(),
			NewValue:  curr.Reachable(),
		})
	}

	if m.config.LatencyThreshold > 0 {
		prevRTT := prev.AvgRTT()
		currRTT := curr.AvgRTT()
		if currRTT > m.config.LatencyThreshold && currRTT > prevRTT {
			changes = append(changes, Change{
				Type:      ChangeTypeLatency,
				Message:   fmt.Sprintf("Latency increased from %.1fms to %.1fms (threshold: %.1fms)", msec(prevRTT), msec(currRTT), msec(m.config.LatencyThreshold)),
				Timestamp: time.Now(),
				OldValue:  prevRTT,
				NewValue:  currRTT,
			})
		}
	}

	if m.config.LossThreshold > 0 {
		prevLoss := prev.LossPercent()
		currLoss := curr.LossPercent()
		if currLoss > m.config.LossThreshold && currLoss > prevLoss {
			changes = append(changes, Change{
				Type:      ChangeTypeLoss,
				Message:   fmt.Sprintf("Loss increased from %.1f%% to %.1f%% (threshold: %.1f%%)", prevLoss, currLoss, m.config.LossThreshold),
				Timestamp: time.Now(),
				OldValue:  prevLoss,
				NewValue:  currLoss,
			})
		}
	}

	return changes
}

// Observe folds one probe cycle into the monitor, returning any changes
// relative to the previous cycle and firing the callback.
func (m *Monitor) Observe(curr *probe.Result) []Change {
	changes := m.DetectChanges(m.previous, curr)
	m.previous = curr
	if len(changes) > 0 && m.callback != nil {
		m.callback(changes)
	}
	return changes
}

// Run starts the monitoring loop, invoking probeFn every interval.
func (m *Monitor) Run(ctx context.Context, probeFn func(context.Context) (*probe.Result, error)) error {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	// Initial cycle
	result, err := probeFn(ctx)
	if err != nil {
		return fmt.Errorf("initial probe failed: %w", err)
	}
	m.previous = result

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			result, err := probeFn(ctx)
			if err != nil {
				// Log error but continue
				continue
			}
			m.Observe(result)
		}
	}
}

func msec(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
