package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "energy_import_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	runsTotal   *prometheus.CounterVec
	runLatency  *prometheus.HistogramVec
	pointsTotal *prometheus.CounterVec

	batchFailures prometheus.Counter

	sourceQueries *prometheus.CounterVec
	sourceLatency *prometheus.HistogramVec

	boundaryShifts prometheus.Histogram

	repairSpikes *prometheus.CounterVec
)

// Init registers backfill metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		runsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "runs_total",
				Help: "Total backfill runs by result",
			},
			[]string{"result"},
		)
		runLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "run_latency_seconds",
				Help:    "Backfill run latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"result"},
		)
		pointsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "points_total",
				Help: "Total statistic points by metric and disposition",
			},
			[]string{"metric", "disposition"},
		)

		batchFailures = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "batch_failures_total",
				Help: "Total failed import batches",
			},
		)

		sourceQueries = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "source_queries_total",
				Help: "Total raw store queries by result",
			},
			[]string{"result"},
		)
		sourceLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "source_query_latency_seconds",
				Help:    "Raw store query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		boundaryShifts = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "boundary_shift_kwh",
				Help:    "Absolute boundary alignment shift applied, in kWh",
				Buckets: []float64{0.1, 1, 5, 10, 50, 100, 500},
			},
		)

		repairSpikes = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "repair_spikes_total",
				Help: "Total spike statistics detected by metric",
			},
			[]string{"metric"},
		)

		prometheus.MustRegister(
			runsTotal,
			runLatency,
			pointsTotal,
			batchFailures,
			sourceQueries,
			sourceLatency,
			boundaryShifts,
			repairSpikes,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveRun records one backfill run's duration and result.
func ObserveRun(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if runsTotal != nil {
		runsTotal.WithLabelValues(result).Inc()
	}
	if runLatency != nil {
		runLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddPoints adds attempted or written point counts for one metric.
func AddPoints(metric, disposition string, count int) {
	if count <= 0 {
		return
	}
	if metric == "" {
		metric = "unknown"
	}
	if pointsTotal != nil {
		pointsTotal.WithLabelValues(metric, disposition).Add(float64(count))
	}
}

// IncBatchFailure increments the failed batch counter.
func IncBatchFailure() {
	if batchFailures != nil {
		batchFailures.Inc()
	}
}

// ObserveSourceQuery records one raw store query.
func ObserveSourceQuery(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if sourceQueries != nil {
		sourceQueries.WithLabelValues(result).Inc()
	}
	if sourceLatency != nil {
		sourceLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveBoundaryShift records the magnitude of an applied boundary shift.
func ObserveBoundaryShift(shift float64) {
	if shift < 0 {
		shift = -shift
	}
	if boundaryShifts != nil {
		boundaryShifts.Observe(shift)
	}
}

// IncRepairSpike counts one detected spike statistic.
func IncRepairSpike(metric string) {
	if metric == "" {
		metric = "unknown"
	}
	if repairSpikes != nil {
		repairSpikes.WithLabelValues(metric).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	DispositionAttempted = "attempted"
	DispositionWritten   = "written"
)
