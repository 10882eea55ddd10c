package application

import (
	"context"
	"testing"
	"time"

	backfill "energy-import/internal/backfill/domain"
	statistics "energy-import/internal/statistics/domain"
	"energy-import/internal/statistics/infrastructure/memory"
)

func batterySpec(t *testing.T) backfill.MetricSpec {
	t.Helper()
	spec, err := backfill.LookupMetric(backfill.MetricBatteryCharged)
	if err != nil {
		t.Fatalf("lookup metric: %v", err)
	}
	return spec
}

func TestBaselinePrefersStoredPoint(t *testing.T) {
	store := memory.NewStatisticStore()
	err := store.ImportBatch(context.Background(), statistics.Metadata{StatisticID: "stat", Unit: "kWh", HasSum: true},
		[]statistics.Point{
			{Start: day(2024, 1, 1).Add(22 * time.Hour), Sum: 5690.0},
			{Start: day(2024, 1, 1).Add(23 * time.Hour), Sum: 5699.087},
		})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	source := newStubSource()
	source.cumulative["to_pw"] = 9999.0

	resolver := NewBaselineResolver(store, source, testLogger())
	base, strategy := resolver.Resolve(context.Background(), batterySpec(t), "stat", day(2024, 1, 2), false)
	if strategy != BaselineStoreDerived {
		t.Fatalf("expected store strategy, got %s", strategy)
	}
	if base != 5699.087 {
		t.Fatalf("expected latest stored sum before window, got %v", base)
	}
}

func TestBaselineExcludesPointAtWindowStart(t *testing.T) {
	store := memory.NewStatisticStore()
	err := store.ImportBatch(context.Background(), statistics.Metadata{StatisticID: "stat", Unit: "kWh", HasSum: true},
		[]statistics.Point{{Start: day(2024, 1, 2), Sum: 77.0}})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	source := newStubSource()

	resolver := NewBaselineResolver(store, source, testLogger())
	base, strategy := resolver.Resolve(context.Background(), batterySpec(t), "stat", day(2024, 1, 2), false)
	if strategy != BaselineZero || base != 0 {
		t.Fatalf("point at the window start must not be a baseline, got %v (%s)", base, strategy)
	}
}

func TestBaselineFallsBackToSource(t *testing.T) {
	store := memory.NewStatisticStore()
	source := newStubSource()
	source.cumulative["to_pw"] = 321.5

	resolver := NewBaselineResolver(store, source, testLogger())
	base, strategy := resolver.Resolve(context.Background(), batterySpec(t), "stat", day(2024, 1, 2), false)
	if strategy != BaselineSourceDerived {
		t.Fatalf("expected source strategy, got %s", strategy)
	}
	if base != 321.5 {
		t.Fatalf("expected 321.5, got %v", base)
	}
}

func TestBaselineSourceOnlySkipsStore(t *testing.T) {
	store := memory.NewStatisticStore()
	err := store.ImportBatch(context.Background(), statistics.Metadata{StatisticID: "stat", Unit: "kWh", HasSum: true},
		[]statistics.Point{{Start: day(2024, 1, 1).Add(23 * time.Hour), Sum: 42.0}})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	source := newStubSource()
	source.cumulative["to_pw"] = 100.0

	resolver := NewBaselineResolver(store, source, testLogger())
	base, strategy := resolver.Resolve(context.Background(), batterySpec(t), "stat", day(2024, 1, 2), true)
	if strategy != BaselineSourceDerived || base != 100.0 {
		t.Fatalf("expected source-only baseline 100.0, got %v (%s)", base, strategy)
	}
}

func TestBaselineZeroWhenNothingKnown(t *testing.T) {
	resolver := NewBaselineResolver(memory.NewStatisticStore(), newStubSource(), testLogger())
	base, strategy := resolver.Resolve(context.Background(), batterySpec(t), "stat", day(2024, 1, 2), false)
	if strategy != BaselineZero || base != 0 {
		t.Fatalf("expected zero baseline, got %v (%s)", base, strategy)
	}
}
