package application

import (
	"context"
	"time"

	backfill "energy-import/internal/backfill/domain"
	statistics "energy-import/internal/statistics/domain"
)

// SampleSource answers raw time-series queries for one metric field.
type SampleSource interface {
	// HourlyEnergy returns per-local-hour energy for one calendar date.
	HourlyEnergy(ctx context.Context, field string, date time.Time, loc *time.Location) (backfill.DaySamples, error)
	// CumulativeBefore returns the cumulative integral of the field from
	// its earliest record up to the cutoff instant.
	CumulativeBefore(ctx context.Context, field string, cutoff time.Time) (float64, error)
	// EarliestTimestamp returns the first recorded instant for the field.
	EarliestTimestamp(ctx context.Context, field string) (time.Time, bool, error)
}

// StatisticReader reads already-stored points.
type StatisticReader interface {
	PointBefore(ctx context.Context, statisticID string, before time.Time) (*statistics.Point, error)
	PointsAfter(ctx context.Context, statisticID string, after time.Time, limit int) ([]statistics.Point, error)
}

// StatisticImporter accepts batches of points for one statistic.
type StatisticImporter interface {
	ImportBatch(ctx context.Context, meta statistics.Metadata, points []statistics.Point) error
}

// StatisticPurger deletes stored points for a statistic within a range.
type StatisticPurger interface {
	Purge(ctx context.Context, statisticID string, startInclusive, endExclusive time.Time) error
}

// MetricRegistry resolves a logical metric key to the host's statistic id.
type MetricRegistry interface {
	ResolveStatisticID(ctx context.Context, sourceKey string) (string, error)
}
