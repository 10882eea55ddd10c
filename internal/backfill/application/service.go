package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	backfill "energy-import/internal/backfill/domain"
	"energy-import/internal/observability/metrics"
	statistics "energy-import/internal/statistics/domain"
)

// Service orchestrates one backfill run: baseline resolution, series
// generation, boundary reconciliation and batch import, per metric.
type Service struct {
	source   SampleSource
	reader   StatisticReader
	importer StatisticImporter
	purger   StatisticPurger
	registry MetricRegistry
	baseline *BaselineResolver
	writer   *BatchWriter
	cfg      Config
	clock    backfill.Clock
	logger   *log.Logger
}

// NewService constructs the orchestrator.
func NewService(
	source SampleSource,
	reader StatisticReader,
	importer StatisticImporter,
	purger StatisticPurger,
	registry MetricRegistry,
	cfg Config,
	clock backfill.Clock,
	logger *log.Logger,
) (*Service, error) {
	if source == nil {
		return nil, errors.New("backfill service: nil sample source")
	}
	if reader == nil {
		return nil, errors.New("backfill service: nil statistic reader")
	}
	if importer == nil {
		return nil, errors.New("backfill service: nil statistic importer")
	}
	if purger == nil {
		return nil, errors.New("backfill service: nil statistic purger")
	}
	if registry == nil {
		return nil, errors.New("backfill service: nil metric registry")
	}
	if clock == nil {
		clock = backfill.SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		source:   source,
		reader:   reader,
		importer: importer,
		purger:   purger,
		registry: registry,
		baseline: NewBaselineResolver(reader, source, logger),
		writer:   NewBatchWriter(importer, cfg.BatchSize, logger),
		cfg:      cfg,
		clock:    clock,
		logger:   logger,
	}, nil
}

// Run executes one backfill for the request. Validation failures surface
// before any I/O; after that, failures are isolated at metric
// granularity and reported in the per-metric results.
func (s *Service) Run(ctx context.Context, req backfill.Request) (RunResult, error) {
	now := s.clock.Now()
	req, loc, err := req.Normalize(now, s.cfg.DefaultTimezone)
	if err != nil {
		return RunResult{}, err
	}
	specs, err := backfill.ResolveMetrics(req.Metrics)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{
		StartedAt: now,
		Timezone:  loc.String(),
		Mode:      req.Mode,
		DryRun:    req.DryRun,
	}

	startDay, endDay, ok := s.resolveRange(ctx, req, specs, now, loc)
	if !ok {
		s.logger.Printf("backfill: no source data found, nothing to do")
		result.FinishedAt = s.clock.Now()
		return result, nil
	}
	result.RangeStart = startDay
	result.RangeEnd = endDay

	todayInRange := backfill.IncludesToday(startDay, endDay, now, loc)
	mode := req.Mode
	if mode == backfill.ModeOverwrite && todayInRange {
		s.logger.Printf("backfill: overwrite requested for a range including today, downgrading to append")
		mode = backfill.ModeAppend
	}
	result.Mode = mode

	for _, spec := range specs {
		metricResult := s.runMetric(ctx, spec, req, mode, startDay, endDay, todayInRange, now, loc)
		result.Metrics = append(result.Metrics, metricResult)
	}

	result.FinishedAt = s.clock.Now()
	runResult := metrics.ResultSuccess
	for _, m := range result.Metrics {
		if m.Error != "" {
			runResult = metrics.ResultError
			break
		}
	}
	metrics.ObserveRun(runResult, result.FinishedAt.Sub(result.StartedAt))
	s.logger.Printf("backfill: run complete, %d points written across %d metrics", result.TotalWritten(), len(result.Metrics))
	return result, nil
}

// resolveRange returns local-midnight day bounds for the run. In all
// mode the start is the earliest source timestamp across the selected
// metrics; ok is false when no metric has any source data.
func (s *Service) resolveRange(ctx context.Context, req backfill.Request, specs []backfill.MetricSpec, now time.Time, loc *time.Location) (time.Time, time.Time, bool) {
	if !req.All {
		return backfill.DateIn(req.Start, loc), backfill.DateIn(req.End, loc), true
	}

	var earliest time.Time
	for _, spec := range specs {
		ts, ok, err := s.source.EarliestTimestamp(ctx, spec.Field)
		if err != nil {
			s.logger.Printf("backfill %s: earliest timestamp query failed: %v", spec.Key, err)
			continue
		}
		if ok && (earliest.IsZero() || ts.Before(earliest)) {
			earliest = ts
		}
	}
	if earliest.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	return backfill.DateOf(earliest.In(loc)), backfill.DateOf(now.In(loc)), true
}

func (s *Service) runMetric(
	ctx context.Context,
	spec backfill.MetricSpec,
	req backfill.Request,
	mode backfill.Mode,
	startDay, endDay time.Time,
	todayInRange bool,
	now time.Time,
	loc *time.Location,
) MetricResult {
	metricResult := MetricResult{Metric: spec.Key}

	statisticID, err := s.registry.ResolveStatisticID(ctx, spec.StatisticKey)
	if err != nil {
		if errors.Is(err, statistics.ErrStatisticNotFound) {
			s.logger.Printf("backfill %s: no statistic mapping, skipping", spec.Key)
			metricResult.Skipped = true
			return metricResult
		}
		metricResult.Error = fmt.Sprintf("resolve statistic id: %v", err)
		return metricResult
	}
	metricResult.StatisticID = statisticID

	// The first generated point starts at the window start; surgical
	// runs shift it to the requested hour.
	windowStart := startDay
	if req.HourRange != nil {
		windowStart = startDay.Add(time.Duration(req.HourRange.From) * time.Hour)
	}

	overwrite := mode == backfill.ModeOverwrite
	base, strategy := s.baseline.Resolve(ctx, spec, statisticID, windowStart, overwrite)
	metricResult.Baseline = base
	metricResult.Strategy = strategy

	if overwrite && !req.DryRun {
		purgeEnd := endDay.AddDate(0, 0, 1)
		if err := s.purger.Purge(ctx, statisticID, startDay, purgeEnd); err != nil {
			// Generating fresh points over un-purged stale ones would
			// create conflicting history; fail this metric only.
			metricResult.Error = fmt.Sprintf("purge [%s, %s): %v",
				startDay.Format("2006-01-02"), purgeEnd.Format("2006-01-02"), err)
			return metricResult
		}
	}

	builder := backfill.NewSeriesBuilder(base)
	for date := startDay; !date.After(endDay); date = date.AddDate(0, 0, 1) {
		span, ok := backfill.EmitSpan(date, now.In(loc), req.HourRange)
		if !ok {
			continue
		}
		samples, err := s.source.HourlyEnergy(ctx, spec.Field, date, loc)
		if err != nil {
			// A single bad day never aborts a multi-day run.
			s.logger.Printf("backfill %s: source query for %s failed, treating as empty day: %v",
				spec.Key, date.Format("2006-01-02"), err)
			samples = backfill.DaySamples{}
		}
		if err := builder.AppendDay(date, samples, span); err != nil {
			metricResult.Error = fmt.Sprintf("build %s: %v", date.Format("2006-01-02"), err)
			return metricResult
		}
	}

	points := builder.Points()
	metricResult.Attempted = len(points)
	if len(points) == 0 {
		return metricResult
	}

	if !todayInRange {
		metricResult.Shift = s.reconcileBoundary(ctx, spec, statisticID, points)
	}

	meta := statistics.Metadata{
		StatisticID: statisticID,
		Name:        spec.FriendlyName,
		Unit:        spec.Unit,
		HasSum:      true,
	}

	if req.DryRun {
		s.logSample(spec, points)
		return metricResult
	}

	attempted, written := s.writer.Write(ctx, meta, points)
	metricResult.Attempted = attempted
	metricResult.Written = written
	metrics.AddPoints(string(spec.Key), metrics.DispositionAttempted, attempted)
	metrics.AddPoints(string(spec.Key), metrics.DispositionWritten, written)
	return metricResult
}

// reconcileBoundary aligns the generated series with the first stored
// point following it, if one exists. Lookup failures leave the series
// as generated.
func (s *Service) reconcileBoundary(ctx context.Context, spec backfill.MetricSpec, statisticID string, points []statistics.Point) float64 {
	last := points[len(points)-1]
	following, err := s.reader.PointsAfter(ctx, statisticID, last.Start, 1)
	if err != nil {
		s.logger.Printf("backfill %s: boundary lookup failed, leaving series unaligned: %v", spec.Key, err)
		return 0
	}
	if len(following) == 0 {
		return 0
	}
	shift := backfill.AlignBoundary(points, following[0], s.cfg.BoundaryTolerance)
	if shift != 0 {
		metrics.ObserveBoundaryShift(shift)
		s.logger.Printf("backfill %s: shifted series by %+.3f to meet live point at %s",
			spec.Key, shift, following[0].Start.Format("2006-01-02T15:04"))
	}
	return shift
}

func (s *Service) logSample(spec backfill.MetricSpec, points []statistics.Point) {
	head := points
	if len(head) > 3 {
		head = head[:3]
	}
	for _, p := range head {
		s.logger.Printf("backfill %s (dry run): %s sum=%.3f state=%.3f", spec.Key, p.Start.Format("2006-01-02T15:04"), p.Sum, p.State)
	}
	if len(points) > 3 {
		last := points[len(points)-1]
		s.logger.Printf("backfill %s (dry run): ... %d points, last %s sum=%.3f",
			spec.Key, len(points), last.Start.Format("2006-01-02T15:04"), last.Sum)
	}
}
