// Package export provides functionality to export probe results to various formats.
package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/hervehildenbrand/gsock/pkg/probe"
)

// ExportedResult is the JSON representation of a probe result.
type ExportedResult struct {
	Target      string            `json:"target"`
	Addr        string            `json:"addr"`
	Reachable   bool              `json:"reachable"`
	Refused     bool              `json:"refused,omitempty"`
	StartTime   time.Time         `json:"startTime,omitempty"`
	EndTime     time.Time         `json:"endTime,omitempty"`
	Attempts    []ExportedAttempt `json:"attempts"`
	AvgRTT      float64           `json:"avgRtt"` // in ms
	MinRTT      float64           `json:"minRtt"` // in ms
	MaxRTT      float64           `json:"maxRtt"` // in ms
	LossPercent float64           `json:"lossPercent"`
}

// ExportedAttempt is the JSON representation of a single attempt.
type ExportedAttempt struct {
	RTT     float64 `json:"rtt,omitempty"` // in ms
	Timeout bool    `json:"timeout,omitempty"`
	Refused bool    `json:"refused,omitempty"`
}

// JSONExporter exports probe results to JSON format.
type JSONExporter struct {
	Pretty bool // Whether to pretty-print the JSON
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{
		Pretty: false,
	}
}

// Export writes the probe result as JSON to the writer.
func (e *JSONExporter) Export(w io.Writer, r *probe.Result) error {
	exported := e.convert(r)

	encoder := json.NewEncoder(w)
	if e.Pretty {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(exported)
}

// convert transforms a Result to an ExportedResult.
func (e *JSONExporter) convert(r *probe.Result) *ExportedResult {
	exported := &ExportedResult{
		Target:      r.Target,
		Addr:        r.Addr,
		Reachable:   r.Reachable(),
		Refused:     r.Refused(),
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Attempts:    make([]ExportedAttempt, 0, len(r.Attempts)),
		AvgRTT:      msec(r.AvgRTT()),
		MinRTT:      msec(r.MinRTT()),
		MaxRTT:      msec(r.MaxRTT()),
		LossPercent: r.LossPercent(),
	}

	for _, a := range r.Attempts {
		exported.Attempts = append(exported.Attempts, ExportedAttempt{
			RTT:     msec(a.RTT),
			Timeout: a.Timeout,
			Refused: a.Refused,
		})
	}

	return exported
}

func msec(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
