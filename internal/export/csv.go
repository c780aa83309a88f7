package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/hervehildenbrand/gsock/pkg/probe"
)

// CSVExporter exports probe results to CSV format, one row per attempt.
type CSVExporter struct{}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Export writes the probe result as CSV to the writer.
func (e *CSVExporter) Export(w io.Writer, r *probe.Result) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	// Write header
	header := []string{"seq", "target", "addr", "rtt_ms", "timeout", "refused"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Write data rows
	for i, a := range r.Attempts {
		row := e.attemptToRow(r, i, a)
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return nil
}

// attemptToRow converts an attempt to a CSV row.
func (e *CSVExporter) attemptToRow(r *probe.Result, seq int, a probe.Attempt) []string {
	rtt := ""
	if !a.Timeout {
		rtt = fmt.Sprintf("%.2f", msec(a.RTT))
	}

	return []string{
		fmt.Sprintf("%d", seq),
		r.Target,
		r.Addr,
		rtt,
		fmt.Sprintf("%t", a.Timeout),
		fmt.Sprintf("%t", a.Refused),
	}
}
