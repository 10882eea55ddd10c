package application

import (
	"context"
	"testing"
	"time"

	statistics "energy-import/internal/statistics/domain"
	"energy-import/internal/statistics/infrastructure/memory"
)

func TestBatchWriterChunksInOrder(t *testing.T) {
	store := memory.NewStatisticStore()
	writer := NewBatchWriter(store, 10, testLogger())

	var points []statistics.Point
	start := day(2024, 3, 1)
	for i := 0; i < 25; i++ {
		points = append(points, statistics.Point{Start: start.Add(time.Duration(i) * time.Hour), Sum: float64(i)})
	}
	meta := statistics.Metadata{StatisticID: "stat", Unit: "kWh", HasSum: true}

	attempted, written := writer.Write(context.Background(), meta, points)
	if attempted != 25 || written != 25 {
		t.Fatalf("expected 25/25, got %d/%d", attempted, written)
	}

	stored, err := store.ListRange(context.Background(), "stat", start, start.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	if len(stored) != 25 {
		t.Fatalf("expected 25 stored, got %d", len(stored))
	}
	if !statistics.Monotonic(stored) {
		t.Fatal("expected stored points in order")
	}
}

func TestBatchWriterContinuesPastFailedBatch(t *testing.T) {
	store := memory.NewStatisticStore()
	importer := &flakyImporter{inner: store, failOn: 1}
	writer := NewBatchWriter(importer, 5, testLogger())

	var points []statistics.Point
	start := day(2024, 3, 1)
	for i := 0; i < 12; i++ {
		points = append(points, statistics.Point{Start: start.Add(time.Duration(i) * time.Hour), Sum: float64(i)})
	}
	meta := statistics.Metadata{StatisticID: "stat", Unit: "kWh", HasSum: true}

	attempted, written := writer.Write(context.Background(), meta, points)
	if attempted != 12 {
		t.Fatalf("expected 12 attempted, got %d", attempted)
	}
	if written != 7 {
		t.Fatalf("expected 7 written after first batch failed, got %d", written)
	}
}

func TestBatchWriterDefaultsBatchSize(t *testing.T) {
	writer := NewBatchWriter(memory.NewStatisticStore(), 0, testLogger())
	if writer.batchSize != 100 {
		t.Fatalf("expected default batch size 100, got %d", writer.batchSize)
	}
}
