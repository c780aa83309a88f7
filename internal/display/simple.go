// Package display provides output rendering for probe results.
package display

import (
	"fmt"
	"io"
	"time"

	"github.com/hervehildenbrand/gsock/pkg/probe"
)

// SimpleRenderer renders probe results in traditional text format.
type SimpleRenderer struct {
	ShowTimestamps bool
}

// NewSimpleRenderer creates a new SimpleRenderer with default settings.
func NewSimpleRenderer() *SimpleRenderer {
	return &SimpleRenderer{}
}

// FormatRTT formats a duration as milliseconds.
func (r *SimpleRenderer) FormatRTT(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	return fmt.Sprintf("%.2fms", ms)
}

// RenderHeader writes the opening line of a probe run.
func (r *SimpleRenderer) RenderHeader(w io.Writer, target, addr string) {
	if target == addr {
		fmt.Fprintf(w, "probing %s over TCP\n", addr)
		return
	}
	fmt.Fprintf(w, "probing %s (%s) over TCP\n", target, addr)
}

// RenderAttempt renders a single attempt as a text line.
func (r *SimpleRenderer) RenderAttempt(seq int, a probe.Attempt) string {
	prefix := ""
	if r.ShowTimestamps {
		prefix = time.Now().Format("15:04:05.000") + "  "
	}

	switch {
	case a.Timeout:
		return fmt.Sprintf("%s%3d  *", prefix, seq)
	case a.Refused:
		return fmt.Sprintf("%s%3d  refused  %s", prefix, seq, r.FormatRTT(a.RTT))
	default:
		return fmt.Sprintf("%s%3d  open     %s", prefix, seq, r.FormatRTT(a.RTT))
	}
}

// RenderSummary writes the closing statistics of a probe run.
func (r *SimpleRenderer) RenderSummary(w io.Writer, res *probe.Result) {
	fmt.Fprintf(w, "\n--- %s probe statistics ---\n", res.Target)
	fmt.Fprintf(w, "%d attempts, %d completed, %.1f%% loss\n",
		res.Sent(), res.Completed(), res.LossPercent())

	if res.Completed() > 0 {
		fmt.Fprintf(w, "rtt min/avg/max = %s/%s/%s\n",
			r.FormatRTT(res.MinRTT()), r.FormatRTT(res.AvgRTT()), r.FormatRTT(res.MaxRTT()))
	}
	if !res.Reachable() && res.Refused() {
		fmt.Fprintln(w, "connection refused")
	}
}
