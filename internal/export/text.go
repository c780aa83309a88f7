package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hervehildenbrand/gsock/pkg/probe"
)

// TextExporter exports probe results to human-readable text format.
type TextExporter struct{}

// NewTextExporter creates a new text exporter.
func NewTextExporter() *TextExporter {
	return &TextExporter{}
}

// Export writes the probe result as text to the writer.
func (e *TextExporter) Export(w io.Writer, r *probe.Result) error {
	// Header
	fmt.Fprintf(w, "TCP probe of %s (%s)\n", r.Target, r.Addr)
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintln(w)

	// Attempts
	for i, a := range r.Attempts {
		e.writeAttempt(w, i, a)
	}

	// Summary
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 70))
	switch {
	case r.Reachable():
		fmt.Fprintf(w, "Target reachable: %d/%d handshakes completed, %.1f%% loss\n",
			r.Completed(), r.Sent(), r.LossPercent())
		fmt.Fprintf(w, "RTT min/avg/max: %.2fms / %.2fms / %.2fms\n",
			msec(r.MinRTT()), msec(r.AvgRTT()), msec(r.MaxRTT()))
	case r.Refused():
		fmt.Fprintf(w, "Target refused the connection (%d attempts)\n", r.Sent())
	default:
		fmt.Fprintf(w, "Target not reachable (%d attempts)\n", r.Sent())
	}
	if !r.StartTime.IsZero() && !r.EndTime.IsZero() {
		fmt.Fprintf(w, "Duration: %v\n", r.EndTime.Sub(r.StartTime).Round(time.Millisecond))
	}

	return nil
}

func (e *TextExporter) writeAttempt(w io.Writer, seq int, a probe.Attempt) {
	switch {
	case a.Timeout:
		fmt.Fprintf(w, "%3d  * (timeout)\n", seq)
	case a.Refused:
		fmt.Fprintf(w, "%3d  refused after %.2fms\n", seq, msec(a.RTT))
	default:
		fmt.Fprintf(w, "%3d  connected in %.2fms\n", seq, msec(a.RTT))
	}
}
