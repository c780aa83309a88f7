package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hervehildenbrand/gsock/pkg/probe"
)

// createTestResult builds a small probe result shared by the exporter tests.
func createTestResult() *probe.Result {
	r := probe.NewResult("example.com:443", "192.0.2.1:443")
	r.StartTime = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r.AddRTT(10 * time.Millisecond)
	r.AddRTT(30 * time.Millisecond)
	r.AddTimeout()
	r.EndTime = r.StartTime.Add(3 * time.Second)
	return r
}

func TestNewExporter_TxtAlias(t *testing.T) {
	exp, err := NewExporter("txt")
	if err != nil {
		t.Fatalf("NewExporter(\"txt\") returned error: %v", err)
	}
	if exp == nil {
		t.Error("expected non-nil exporter for 'txt' format")
	}
}

func TestNewExporter_TextFormat(t *testing.T) {
	exp, err := NewExporter(FormatText)
	if err != nil {
		t.Fatalf("NewExporter(FormatText) returned error: %v", err)
	}
	if exp == nil {
		t.Error("expected non-nil exporter for 'text' format")
	}
}

func TestNewExporter_UnsupportedFormat(t *testing.T) {
	_, err := NewExporter("invalid")
	if err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"output.json", FormatJSON},
		{"output.csv", FormatCSV},
		{"output.txt", FormatText},
		{"output.text", FormatText},
		{"OUTPUT.JSON", FormatJSON},
		{"output.xml", FormatJSON},
		{"output", FormatJSON},
	}

	for _, tt := range tests {
		if got := DetectFormat(tt.filename); got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestExportToFile_DetectsFormatFromExtension(t *testing.T) {
	r := createTestResult()
	path := filepath.Join(t.TempDir(), "result.csv")

	if err := ExportToFile(path, "", r); err != nil {
		t.Fatalf("ExportToFile() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if !strings.HasPrefix(string(data), "seq,target,addr") {
		t.Errorf("expected CSV header, got %q", strings.SplitN(string(data), "\n", 2)[0])
	}
}

func TestExportToFile_BadDirectory(t *testing.T) {
	r := createTestResult()
	err := ExportToFile("/nonexistent/dir/result.json", FormatJSON, r)
	if err == nil {
		t.Error("expected error for unwritable path")
	}
}
