package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/hervehildenbrand/gsock/pkg/probe"
)

func TestSimpleRenderer_FormatRTT(t *testing.T) {
	r := NewSimpleRenderer()

	if got := r.FormatRTT(5 * time.Millisecond); got != "5.00ms" {
		t.Errorf("FormatRTT(5ms) = %q, want \"5.00ms\"", got)
	}
	if got := r.FormatRTT(1500 * time.Microsecond); got != "1.50ms" {
		t.Errorf("FormatRTT(1.5ms) = %q, want \"1.50ms\"", got)
	}
}

func TestSimpleRenderer_RenderAttempt_FormatsSuccess(t *testing.T) {
	r := NewSimpleRenderer()

	result := r.RenderAttempt(0, probe.Attempt{RTT: 5 * time.Millisecond})

	if !strings.Contains(result, "open") {
		t.Errorf("expected 'open' in output, got %q", result)
	}
	if !strings.Contains(result, "5.00ms") {
		t.Errorf("expected RTT value in output, got %q", result)
	}
}

func TestSimpleRenderer_RenderAttempt_ShowsTimeoutAsAsterisk(t *testing.T) {
	r := NewSimpleRenderer()

	result := r.RenderAttempt(1, probe.Attempt{Timeout: true})

	if !strings.Contains(result, "*") {
		t.Errorf("expected asterisk for timeout, got %q", result)
	}
}

func TestSimpleRenderer_RenderAttempt_ShowsRefused(t *testing.T) {
	r := NewSimpleRenderer()

	result := r.RenderAttempt(2, probe.Attempt{RTT: time.Millisecond, Refused: true})

	if !strings.Contains(result, "refused") {
		t.Errorf("expected 'refused' in output, got %q", result)
	}
}

func TestSimpleRenderer_RenderAttempt_Timestamps(t *testing.T) {
	r := NewSimpleRenderer()
	r.ShowTimestamps = true

	result := r.RenderAttempt(0, probe.Attempt{RTT: time.Millisecond})

	// HH:MM:SS.mmm prefix
	if !strings.Contains(result, ":") {
		t.Errorf("expected timestamp prefix, got %q", result)
	}
}

func TestSimpleRenderer_RenderHeader(t *testing.T) {
	r := NewSimpleRenderer()

	var buf bytes.Buffer
	r.RenderHeader(&buf, "example.com:443", "192.0.2.1:443")
	got := buf.String()
	if !strings.Contains(got, "example.com:443") || !strings.Contains(got, "192.0.2.1:443") {
		t.Errorf("header missing target or address: %q", got)
	}

	buf.Reset()
	r.RenderHeader(&buf, "192.0.2.1:443", "192.0.2.1:443")
	if strings.Count(buf.String(), "192.0.2.1:443") != 1 {
		t.Errorf("expected address once when target is a literal: %q", buf.String())
	}
}

func TestSimpleRenderer_RenderSummary(t *testing.T) {
	r := NewSimpleRenderer()
	res := probe.NewResult("example.com:443", "192.0.2.1:443")
	res.AddRTT(10 * time.Millisecond)
	res.AddRTT(20 * time.Millisecond)
	res.AddTimeout()

	var buf bytes.Buffer
	r.RenderSummary(&buf, res)
	got := buf.String()

	if !strings.Contains(got, "3 attempts, 2 completed") {
		t.Errorf("expected attempt counts, got %q", got)
	}
	if !strings.Contains(got, "rtt min/avg/max") {
		t.Errorf("expected RTT summary line, got %q", got)
	}
	if !strings.Contains(got, "10.00ms/15.00ms/20.00ms") {
		t.Errorf("expected RTT aggregates, got %q", got)
	}
}

func TestSimpleRenderer_RenderSummary_Refused(t *testing.T) {
	r := NewSimpleRenderer()
	res := probe.NewResult("t", "a")
	res.AddRefused(time.Millisecond)

	var buf bytes.Buffer
	r.RenderSummary(&buf, res)

	if !strings.Contains(buf.String(), "connection refused") {
		t.Errorf("expected refused notice, got %q", buf.String())
	}
}
