package service

import (
	"testing"
)

func calibPreds() []Prediction {
	return []Prediction{
		{TicketID: 1, GoldSlug: "fx-service", PredSlug: "fx-service", Confidence: 0.95},
		{TicketID: 2, GoldSlug: "fx-service", PredSlug: "swift-connect", Confidence: 0.90},
		{TicketID: 3, GoldSlug: "swift-connect", PredSlug: "swift-connect", Confidence: 0.60},
		{TicketID: 4, GoldSlug: "verify", PredSlug: "", Confidence: 0},
	}
}

func TestComputeThresholdMetrics(t *testing.T) {
	metrics := ComputeThresholdMetrics(calibPreds(), []float64{0.50, 0.90})

	m := metrics[0]
	if m.NAssigned != 3 || m.CorrectAssigned != 2 {
		t.Fatalf("at 0.50 expected 3 assigned / 2 correct, got %+v", m)
	}
	if m.Precision == nil || *m.Precision != 2.0/3.0 {
		t.Fatalf("at 0.50 expected precision 2/3, got %+v", m.Precision)
	}
	if m.Coverage != 0.75 {
		t.Fatalf("at 0.50 expected coverage 0.75, got %v", m.Coverage)
	}

	m = metrics[1]
	if m.NAssigned != 2 || m.CorrectAssigned != 1 {
		t.Fatalf("at 0.90 expected 2 assigned / 1 correct, got %+v", m)
	}
	if m.Precision == nil || *m.Precision != 0.5 {
		t.Fatalf("at 0.90 expected precision 0.5, got %+v", m.Precision)
	}
}

func TestComputeThresholdMetricsNilPrecisionWhenNothingAssigned(t *testing.T) {
	metrics := ComputeThresholdMetrics(calibPreds(), []float64{0.99})
	m := metrics[0]
	if m.NAssigned != 0 {
		t.Fatalf("expected nothing assigned at 0.99, got %d", m.NAssigned)
	}
	if m.Precision != nil {
		t.Fatalf("expected nil precision, got %v", *m.Precision)
	}
	if m.Coverage != 0 {
		t.Fatalf("expected zero coverage, got %v", m.Coverage)
	}
}

func TestSweepThresholdsGrid(t *testing.T) {
	grid := SweepThresholds()
	if len(grid) != 10 {
		t.Fatalf("expected 10 thresholds, got %d", len(grid))
	}
	if grid[0] != 0.50 || grid[len(grid)-1] != 0.95 {
		t.Fatalf("expected grid from 0.50 to 0.95, got %v", grid)
	}
}

func TestComputeVerticalMetrics(t *testing.T) {
	byVertical := ComputeVerticalMetrics(calibPreds(), 0.50)

	fx := byVertical["fx-service"]
	if fx.GoldCount != 2 || fx.AssignedCount != 1 || fx.CorrectAssigned != 1 {
		t.Fatalf("unexpected fx-service metric: %+v", fx)
	}
	if fx.Precision == nil || *fx.Precision != 1.0 {
		t.Fatalf("expected fx-service precision 1.0, got %+v", fx.Precision)
	}
	if fx.RecallOnLabeled == nil || *fx.RecallOnLabeled != 0.5 {
		t.Fatalf("expected fx-service recall 0.5, got %+v", fx.RecallOnLabeled)
	}

	// The misprediction of ticket 2 shows up as an incorrect assignment here.
	sw := byVertical["swift-connect"]
	if sw.GoldCount != 1 || sw.AssignedCount != 2 || sw.CorrectAssigned != 1 {
		t.Fatalf("unexpected swift-connect metric: %+v", sw)
	}

	// Never predicted: gold count only, precision undefined.
	vf := byVertical["verify"]
	if vf.GoldCount != 1 || vf.AssignedCount != 0 {
		t.Fatalf("unexpected verify metric: %+v", vf)
	}
	if vf.Precision != nil {
		t.Fatalf("expected nil precision for verify, got %v", *vf.Precision)
	}
}
