package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "Test Plot", []Series{
		{Name: "A", Values: []float64{1, 2, 3, 2, 1}},
		{Name: "B", Values: []float64{1, 1, 2, 3, 4}},
	}, 5, 4)
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "Scaled per series") {
		t.Fatalf("expected scale note in output")
	}
	if !strings.Contains(out, "Legend:") {
		t.Fatalf("expected legend in output")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	expectedMin := 1 + 1 + 2 + 4 + 1
	if len(lines) < expectedMin {
		t.Fatalf("expected at least %d lines of output, got %d", expectedMin, len(lines))
	}
}

func TestPlotSeriesFixedScale(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "", []Series{
		{Name: "Accuracy", Values: []float64{40, 60, 55}, Fixed: true, Min: 0, Max: 100},
		{Name: "Average", Values: []float64{40, 50, 52}, Fixed: true, Min: 0, Max: 100},
	}, 10, 4)
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	if lines[0] != fixedScaleNote {
		t.Fatalf("expected shared scale note, got %q", lines[0])
	}
	if lines[1] != "Accuracy: min=0.00 max=100.00" {
		t.Fatalf("fixed series should report its bounds, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[3], " 100"+axisSeparator) {
		t.Fatalf("expected top axis label 100, got %q", lines[3])
	}
	if !strings.HasPrefix(lines[6], "   0"+axisSeparator) {
		t.Fatalf("expected bottom axis label 0, got %q", lines[6])
	}
}

func TestSharedRange(t *testing.T) {
	fixed := Series{Name: "a", Values: []float64{1}, Fixed: true, Min: 0, Max: 25}
	if lo, hi, ok := sharedRange([]Series{fixed, fixed}); !ok || lo != 0 || hi != 25 {
		t.Fatalf("expected shared 0..25, got %v %v %v", lo, hi, ok)
	}
	other := fixed
	other.Max = 50
	if _, _, ok := sharedRange([]Series{fixed, other}); ok {
		t.Fatalf("different bounds should not share a scale")
	}
	if _, _, ok := sharedRange([]Series{fixed, {Name: "b", Values: []float64{1}}}); ok {
		t.Fatalf("an unfixed series should not share a scale")
	}
	if got := formatAxis(12.5); got != "12.5" {
		t.Fatalf("formatAxis(12.5) = %q", got)
	}
	if got := formatAxis(25); got != "25" {
		t.Fatalf("formatAxis(25) = %q", got)
	}
}
