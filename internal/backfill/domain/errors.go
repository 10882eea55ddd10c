package backfill

import "errors"

var (
	// ErrUnknownMetric is returned for a metric key outside the supported set.
	ErrUnknownMetric = errors.New("backfill: unknown metric")
	// ErrInvalidDateRange is returned when the range is missing or inverted.
	ErrInvalidDateRange = errors.New("backfill: invalid date range")
	// ErrInvalidHourRange is returned when an hour range is inverted or out of bounds.
	ErrInvalidHourRange = errors.New("backfill: invalid hour range")
	// ErrInvalidMode is returned for an unrecognized write mode.
	ErrInvalidMode = errors.New("backfill: invalid mode")
	// ErrInvalidTimezone is returned when the requested timezone cannot be loaded.
	ErrInvalidTimezone = errors.New("backfill: invalid timezone")
	// ErrNegativeSample is returned when an hourly sample is negative.
	ErrNegativeSample = errors.New("backfill: negative hourly sample")
)
