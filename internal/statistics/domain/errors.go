package statistics

import "errors"

var (
	// ErrEmptyStatisticID is returned when a statistic id is empty.
	ErrEmptyStatisticID = errors.New("statistics: empty statistic id")
	// ErrEmptyUnit is returned when batch metadata has no unit.
	ErrEmptyUnit = errors.New("statistics: empty unit")
	// ErrInvalidRange is returned when a query range is inverted or zero.
	ErrInvalidRange = errors.New("statistics: invalid range")
	// ErrStatisticNotFound is returned when a statistic id is unknown.
	ErrStatisticNotFound = errors.New("statistics: not found")
)
