package application

import (
	"context"
	"log"
	"time"

	backfill "energy-import/internal/backfill/domain"
)

// Baseline strategies, reported for logging and diagnostics.
const (
	BaselineStoreDerived  = "store"
	BaselineSourceDerived = "source"
	BaselineZero          = "zero"
)

// BaselineResolver determines the cumulative total that existed
// immediately before the backfill window starts.
type BaselineResolver struct {
	reader StatisticReader
	source SampleSource
	logger *log.Logger
}

// NewBaselineResolver constructs a resolver.
func NewBaselineResolver(reader StatisticReader, source SampleSource, logger *log.Logger) *BaselineResolver {
	return &BaselineResolver{reader: reader, source: source, logger: logger}
}

// Resolve returns the baseline sum for a window starting at windowStart
// and the strategy that produced it. The store-derived lookup is bounded
// strictly before the window start so points written by a previous run
// after the window can never be picked. When sourceOnly is set (overwrite
// mode, where the purge is about to invalidate the stored candidate) the
// raw source integral is used directly. Resolution failures degrade to a
// 0.0 baseline with a warning, never a failed run.
func (r *BaselineResolver) Resolve(ctx context.Context, spec backfill.MetricSpec, statisticID string, windowStart time.Time, sourceOnly bool) (float64, string) {
	if !sourceOnly {
		point, err := r.reader.PointBefore(ctx, statisticID, windowStart)
		if err != nil {
			r.logger.Printf("backfill %s: store baseline lookup failed: %v", spec.Key, err)
		} else if point != nil {
			return point.Sum, BaselineStoreDerived
		}
	}

	total, err := r.source.CumulativeBefore(ctx, spec.Field, windowStart)
	if err != nil {
		r.logger.Printf("backfill %s: source baseline failed, continuing from 0.0: %v", spec.Key, err)
		return 0, BaselineZero
	}
	if total == 0 {
		return 0, BaselineZero
	}
	return total, BaselineSourceDerived
}
