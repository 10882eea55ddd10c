package repair

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	backfill "energy-import/internal/backfill/domain"
	"energy-import/internal/observability/metrics"
	statistics "energy-import/internal/statistics/domain"
)

// Thresholds caps the plausible hourly accrual per metric, in kWh. A
// stored hour-to-hour delta beyond the cap in either direction is a
// spike left behind by a reset-detection misfire.
type Thresholds map[backfill.MetricKey]float64

// DefaultThresholds returns per-metric hourly plausibility caps sized
// for a residential battery/solar installation.
func DefaultThresholds() Thresholds {
	return Thresholds{
		backfill.MetricBatteryCharged:    20,
		backfill.MetricBatteryDischarged: 20,
		backfill.MetricGridImport:        50,
		backfill.MetricGridExport:        30,
		backfill.MetricHomeUsage:         50,
		backfill.MetricSolarGenerated:    30,
	}
}

// SampleSource answers the raw-store queries repair needs.
type SampleSource interface {
	HourlyEnergy(ctx context.Context, field string, date time.Time, loc *time.Location) (backfill.DaySamples, error)
	CumulativeBefore(ctx context.Context, field string, cutoff time.Time) (float64, error)
}

// StatisticStore is the stored-statistics surface repair reads and patches.
type StatisticStore interface {
	ResolveStatisticID(ctx context.Context, sourceKey string) (string, error)
	ListRange(ctx context.Context, statisticID string, startInclusive, endExclusive time.Time) ([]statistics.Point, error)
	PointBefore(ctx context.Context, statisticID string, before time.Time) (*statistics.Point, error)
	UpdateSum(ctx context.Context, statisticID string, start time.Time, sum float64) error
}

// Spike is one stored point whose hourly delta exceeds its metric's cap.
type Spike struct {
	Metric      backfill.MetricKey `json:"metric"`
	StatisticID string             `json:"statistic_id"`
	Start       time.Time          `json:"start"`
	Sum         float64            `json:"sum"`
	Delta       float64            `json:"delta"`
}

// Correction records a sum rewrite applied (or proposed) for a spike.
type Correction struct {
	Spike
	NewSum float64 `json:"new_sum"`
}

// Service detects and repairs spike artifacts in stored statistics.
type Service struct {
	source     SampleSource
	store      StatisticStore
	thresholds Thresholds
	logger     *log.Logger
}

// NewService constructs a repair service. Nil thresholds fall back to
// the defaults.
func NewService(source SampleSource, store StatisticStore, thresholds Thresholds, logger *log.Logger) (*Service, error) {
	if source == nil {
		return nil, errors.New("repair service: nil sample source")
	}
	if store == nil {
		return nil, errors.New("repair service: nil statistic store")
	}
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{source: source, store: store, thresholds: thresholds, logger: logger}, nil
}

// Analyze scans one local calendar date and reports every spike without
// touching the store.
func (s *Service) Analyze(ctx context.Context, date time.Time, loc *time.Location) ([]Spike, error) {
	var spikes []Spike
	for _, spec := range backfill.SupportedMetrics() {
		found, _, err := s.scanMetric(ctx, spec, date, loc)
		if err != nil {
			return nil, err
		}
		spikes = append(spikes, found...)
	}
	return spikes, nil
}

// Fix corrects every spike found on the date. The corrected sum is the
// previous stored cumulative plus the hour's true accrual from the raw
// store, so the rest of the chain keeps its deltas. Without a previous
// point the raw cumulative up to the end of the hour is used directly.
func (s *Service) Fix(ctx context.Context, date time.Time, loc *time.Location) ([]Correction, error) {
	var corrections []Correction
	for _, spec := range backfill.SupportedMetrics() {
		spikes, statisticID, err := s.scanMetric(ctx, spec, date, loc)
		if err != nil {
			return corrections, err
		}
		for _, spike := range spikes {
			newSum, err := s.correctedSum(ctx, spec, statisticID, spike, loc)
			if err != nil {
				return corrections, fmt.Errorf("correct %s at %s: %w", spec.Key, spike.Start.Format("2006-01-02T15:04"), err)
			}
			if err := s.store.UpdateSum(ctx, statisticID, spike.Start, newSum); err != nil {
				return corrections, fmt.Errorf("update %s at %s: %w", spec.Key, spike.Start.Format("2006-01-02T15:04"), err)
			}
			s.logger.Printf("repair %s: %s sum %.3f -> %.3f (delta was %+.3f)",
				spec.Key, spike.Start.Format("2006-01-02T15:04"), spike.Sum, newSum, spike.Delta)
			corrections = append(corrections, Correction{Spike: spike, NewSum: newSum})
		}
	}
	return corrections, nil
}

// Recalculate rewrites every stored sum in [startDate, endDate] from the
// raw store's cumulative integral, rebuilding a consistent chain. It
// returns the number of points updated. Sums already within 1 Wh of the
// recomputed value are left alone.
func (s *Service) Recalculate(ctx context.Context, startDate, endDate time.Time, loc *time.Location) (int, error) {
	updated := 0
	for _, spec := range backfill.SupportedMetrics() {
		statisticID, err := s.store.ResolveStatisticID(ctx, spec.StatisticKey)
		if err != nil {
			if errors.Is(err, statistics.ErrStatisticNotFound) {
				continue
			}
			return updated, fmt.Errorf("resolve %s: %w", spec.Key, err)
		}
		for date := backfill.DateOf(startDate.In(loc)); !date.After(backfill.DateOf(endDate.In(loc))); date = date.AddDate(0, 0, 1) {
			points, err := s.store.ListRange(ctx, statisticID, date, date.AddDate(0, 0, 1))
			if err != nil {
				return updated, fmt.Errorf("list %s %s: %w", spec.Key, date.Format("2006-01-02"), err)
			}
			for _, point := range points {
				// A stored sum is the cumulative total at the END of its hour.
				correct, err := s.source.CumulativeBefore(ctx, spec.Field, point.Start.Add(time.Hour))
				if err != nil {
					return updated, fmt.Errorf("cumulative %s at %s: %w", spec.Key, point.Start.Format("2006-01-02T15:04"), err)
				}
				if math.Abs(correct-point.Sum) <= 0.001 {
					continue
				}
				if err := s.store.UpdateSum(ctx, statisticID, point.Start, correct); err != nil {
					return updated, fmt.Errorf("update %s at %s: %w", spec.Key, point.Start.Format("2006-01-02T15:04"), err)
				}
				updated++
			}
		}
	}
	s.logger.Printf("repair: recalculated %d statistics in [%s, %s]",
		updated, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	return updated, nil
}

// scanMetric finds spikes for one metric on one date. Only consecutive
// pairs within the date are compared; the day's first point has no
// within-day predecessor and is never flagged.
func (s *Service) scanMetric(ctx context.Context, spec backfill.MetricSpec, date time.Time, loc *time.Location) ([]Spike, string, error) {
	threshold, ok := s.thresholds[spec.Key]
	if !ok {
		return nil, "", nil
	}

	statisticID, err := s.store.ResolveStatisticID(ctx, spec.StatisticKey)
	if err != nil {
		if errors.Is(err, statistics.ErrStatisticNotFound) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("resolve %s: %w", spec.Key, err)
	}

	dayStart := backfill.DateOf(date.In(loc))
	points, err := s.store.ListRange(ctx, statisticID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, "", fmt.Errorf("list %s: %w", spec.Key, err)
	}

	var spikes []Spike
	for i := 1; i < len(points); i++ {
		delta := points[i].Sum - points[i-1].Sum
		if delta <= threshold && delta >= -threshold {
			continue
		}
		metrics.IncRepairSpike(string(spec.Key))
		s.logger.Printf("repair %s: spike at %s, delta %+.3f kWh exceeds %.0f kWh/h",
			spec.Key, points[i].Start.Format("2006-01-02T15:04"), delta, threshold)
		spikes = append(spikes, Spike{
			Metric:      spec.Key,
			StatisticID: statisticID,
			Start:       points[i].Start,
			Sum:         points[i].Sum,
			Delta:       delta,
		})
	}
	return spikes, statisticID, nil
}

func (s *Service) correctedSum(ctx context.Context, spec backfill.MetricSpec, statisticID string, spike Spike, loc *time.Location) (float64, error) {
	prev, err := s.store.PointBefore(ctx, statisticID, spike.Start)
	if err != nil {
		return 0, err
	}
	if prev == nil {
		return s.source.CumulativeBefore(ctx, spec.Field, spike.Start.Add(time.Hour))
	}

	day := backfill.DateOf(spike.Start.In(loc))
	samples, err := s.source.HourlyEnergy(ctx, spec.Field, day, loc)
	if err != nil {
		return 0, err
	}
	hour := spike.Start.In(loc).Hour()
	return prev.Sum + samples[hour], nil
}
