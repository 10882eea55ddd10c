package application

import (
	"time"

	backfill "energy-import/internal/backfill/domain"
)

// MetricResult reports the outcome of one metric's backfill.
type MetricResult struct {
	Metric      backfill.MetricKey `json:"metric"`
	StatisticID string             `json:"statistic_id,omitempty"`
	Baseline    float64            `json:"baseline"`
	Strategy    string             `json:"baseline_strategy,omitempty"`
	Attempted   int                `json:"attempted"`
	Written     int                `json:"written"`
	Shift       float64            `json:"boundary_shift"`
	Skipped     bool               `json:"skipped,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// RunResult aggregates per-metric outcomes for one orchestrator run.
type RunResult struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	RangeStart time.Time      `json:"range_start"`
	RangeEnd   time.Time      `json:"range_end"`
	Timezone   string         `json:"timezone"`
	Mode       backfill.Mode  `json:"mode"`
	DryRun     bool           `json:"dry_run"`
	Metrics    []MetricResult `json:"metrics"`
}

// TotalWritten sums written points across metrics.
func (r RunResult) TotalWritten() int {
	total := 0
	for _, m := range r.Metrics {
		total += m.Written
	}
	return total
}
