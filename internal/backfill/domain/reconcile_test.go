package backfill

import (
	"math"
	"testing"
	"time"

	statistics "energy-import/internal/statistics/domain"
)

func TestAlignBoundaryShiftsWholeSeries(t *testing.T) {
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	series := []statistics.Point{
		{Start: start, Sum: 370.1, State: 1.0},
		{Start: start.Add(time.Hour), Sum: 371.1, State: 2.0},
		{Start: start.Add(2 * time.Hour), Sum: 372.1, State: 3.0},
	}
	next := statistics.Point{Start: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), Sum: 100.0}

	shift := AlignBoundary(series, next, DefaultBoundaryTolerance)
	if math.Abs(shift-(-272.1)) > 1e-9 {
		t.Fatalf("expected shift -272.1, got %v", shift)
	}
	if math.Abs(series[2].Sum-100.0) > 1e-9 {
		t.Fatalf("expected final sum 100.0, got %v", series[2].Sum)
	}
	// Relative deltas preserved.
	if math.Abs((series[1].Sum-series[0].Sum)-1.0) > 1e-9 {
		t.Fatalf("expected preserved delta 1.0, got %v", series[1].Sum-series[0].Sum)
	}
	// State untouched by the shift.
	if series[0].State != 1.0 {
		t.Fatalf("expected state unchanged, got %v", series[0].State)
	}
}

func TestAlignBoundaryWithinTolerance(t *testing.T) {
	series := []statistics.Point{{Sum: 99.4}}
	next := statistics.Point{Sum: 100.0}

	if shift := AlignBoundary(series, next, 1.0); shift != 0 {
		t.Fatalf("expected no shift within tolerance, got %v", shift)
	}
	if series[0].Sum != 99.4 {
		t.Fatalf("expected series unmodified, got %v", series[0].Sum)
	}
}

func TestAlignBoundaryClampsAtZero(t *testing.T) {
	series := []statistics.Point{{Sum: 5.0}, {Sum: 50.0}}
	next := statistics.Point{Sum: 10.0}

	AlignBoundary(series, next, 1.0)
	if series[0].Sum != 0 {
		t.Fatalf("expected clamp at 0, got %v", series[0].Sum)
	}
	if series[1].Sum != 10.0 {
		t.Fatalf("expected final sum 10.0, got %v", series[1].Sum)
	}
}

func TestAlignBoundaryEmptySeries(t *testing.T) {
	if shift := AlignBoundary(nil, statistics.Point{Sum: 10}, 1.0); shift != 0 {
		t.Fatalf("expected no shift for empty series, got %v", shift)
	}
}
