package backfill

import (
	"time"

	statistics "energy-import/internal/statistics/domain"
)

// FullDay spans all 24 local hours.
var FullDay = HourRange{From: 0, To: 24}

// SeriesBuilder converts per-day hourly deltas into a cumulative point
// series, carrying the running base forward from the resolved baseline.
type SeriesBuilder struct {
	base   float64
	points []statistics.Point
}

// NewSeriesBuilder starts a series that continues from baseline.
func NewSeriesBuilder(baseline float64) *SeriesBuilder {
	return &SeriesBuilder{base: baseline}
}

// AppendDay emits one cumulative point per hour of the span for the day
// beginning at dayStart (local midnight). A day with zero total energy
// produces no points and leaves the running base untouched. Once any
// energy exists that day, every hour of the span is emitted, including
// zero-delta hours, to keep the store's hourly cadence intact.
func (b *SeriesBuilder) AppendDay(dayStart time.Time, samples DaySamples, span HourRange) error {
	if err := span.Validate(); err != nil {
		return err
	}
	if err := samples.Validate(); err != nil {
		return err
	}
	if samples.Total() == 0 {
		return nil
	}

	var progress float64
	for hour := span.From; hour < span.To; hour++ {
		progress += samples[hour]
		b.points = append(b.points, statistics.Point{
			Start: dayStart.Add(time.Duration(hour) * time.Hour),
			Sum:   b.base + progress,
			State: progress,
		})
	}
	b.base += progress
	return nil
}

// Points returns the generated series in emit order.
func (b *SeriesBuilder) Points() []statistics.Point {
	return b.points
}

// Base returns the running base after all appended days.
func (b *SeriesBuilder) Base() float64 {
	return b.base
}

// EmitSpan decides the hour window for a date: the surgical range when
// set, hours up to the current local hour for today, the full day
// otherwise. ok is false when nothing may be emitted (today before 01:00,
// since the in-progress hour belongs to the live writer).
func EmitSpan(date, now time.Time, hourRange *HourRange) (HourRange, bool) {
	if hourRange != nil {
		return *hourRange, true
	}
	if DateOf(now).Equal(date) {
		cutoff := now.Hour()
		if cutoff == 0 {
			return HourRange{}, false
		}
		return HourRange{From: 0, To: cutoff}, true
	}
	return FullDay, true
}
