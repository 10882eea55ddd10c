package statistics

import "time"

// Point is one long-term statistics row for a monotonic energy counter.
// Sum is the cumulative total since the counter's inception; State is the
// instantaneous reading the live sensor would report for the same hour.
type Point struct {
	Start time.Time
	Sum   float64
	State float64
}

// Metadata describes the statistic a batch of points belongs to.
type Metadata struct {
	StatisticID string
	Name        string
	Unit        string
	HasSum      bool
	HasMean     bool
}

// Validate checks metadata required by the import API.
func (m Metadata) Validate() error {
	if m.StatisticID == "" {
		return ErrEmptyStatisticID
	}
	if m.Unit == "" {
		return ErrEmptyUnit
	}
	return nil
}

// Monotonic reports whether sums are non-decreasing across the series.
func Monotonic(points []Point) bool {
	for i := 1; i < len(points); i++ {
		if points[i].Sum < points[i-1].Sum {
			return false
		}
	}
	return true
}
