package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, []Series{
		{Name: "A", Values: []float64{1, 2, 3, 2, 1}},
		{Name: "B", Values: []float64{1, 1, 2, 3, 4}},
		{Name: "empty"},
	}, PlotOptions{Title: "Test Plot", Width: 12, Height: 4, XStart: "4:00", XEnd: "0:00"})
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "4.00") || !strings.Contains(out, "1.00") {
		t.Fatalf("expected shared axis labels from data range, got:\n%s", out)
	}
	if !strings.Contains(out, "Legend:") || strings.Contains(out, "empty") {
		t.Fatalf("legend should list only non-empty series, got:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// title + 4 rows + x axis + legend
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines of output, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[5]), "4:00") {
		t.Fatalf("unexpected x axis line %q", lines[5])
	}
}

func TestPlotSeriesFixedRange(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, []Series{{Name: "flat", Values: []float64{0.2, 0.2}}}, PlotOptions{Width: 10, Height: 3, Min: 0, Max: 1})
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "1.00") || !strings.Contains(out, "0.50") || !strings.Contains(out, "0.00") {
		t.Fatalf("expected fixed 0..1 labels, got:\n%s", out)
	}
}

func TestPlotSeriesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotSeries(&buf, nil, PlotOptions{}); err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for no series")
	}
}

func TestPlotWidthFor(t *testing.T) {
	if got := PlotWidthFor(80); got != 80-axisLabelWidth-3 {
		t.Fatalf("expected width %d, got %d", 80-axisLabelWidth-3, got)
	}
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
	if got := PlotWidthFor(5); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
}

func TestResampleSeries(t *testing.T) {
	down := resampleSeries([]float64{1, 3, 5, 7}, 2)
	if down[0] != 2 || down[1] != 6 {
		t.Fatalf("unexpected downsample %v", down)
	}
	up := resampleSeries([]float64{0, 1}, 3)
	if up[0] != 0 || up[1] != 0.5 || up[2] != 1 {
		t.Fatalf("unexpected upsample %v", up)
	}
}
