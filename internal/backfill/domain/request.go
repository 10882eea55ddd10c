package backfill

import (
	"time"
)

// Mode selects how existing stored points in the target range are treated.
type Mode string

const (
	// ModeAppend preserves existing points and adds new ones alongside.
	ModeAppend Mode = "append"
	// ModeOverwrite purges stored points for the range before generation.
	ModeOverwrite Mode = "overwrite"
)

// IsValid reports whether the mode is recognized.
func (m Mode) IsValid() bool {
	return m == ModeAppend || m == ModeOverwrite
}

// HourRange restricts generation to the local hours [From, To) of each
// day. Used for surgical repair of a sub-window.
type HourRange struct {
	From int
	To   int
}

// Validate checks hour bounds.
func (r HourRange) Validate() error {
	if r.From < 0 || r.To > 24 || r.From >= r.To {
		return ErrInvalidHourRange
	}
	return nil
}

// Request drives one backfill run.
type Request struct {
	Metrics   []MetricKey
	Start     time.Time
	End       time.Time
	All       bool
	Timezone  string
	Mode      Mode
	HourRange *HourRange
	DryRun    bool
}

// Normalize fills defaults and validates the request before any I/O.
// Returned requests always carry a valid mode; an hour range forces
// append semantics regardless of the requested mode.
func (r Request) Normalize(now time.Time, defaultTZ string) (Request, *time.Location, error) {
	if r.Mode == "" {
		r.Mode = ModeAppend
	}
	if !r.Mode.IsValid() {
		return Request{}, nil, ErrInvalidMode
	}
	if r.Timezone == "" {
		r.Timezone = defaultTZ
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return Request{}, nil, ErrInvalidTimezone
	}
	if r.HourRange != nil {
		if err := r.HourRange.Validate(); err != nil {
			return Request{}, nil, err
		}
		r.Mode = ModeAppend
	}
	if _, err := ResolveMetrics(r.Metrics); err != nil {
		return Request{}, nil, err
	}
	if !r.All {
		if r.Start.IsZero() {
			return Request{}, nil, ErrInvalidDateRange
		}
		if r.End.IsZero() {
			r.End = now.In(loc)
		}
		if DateIn(r.End, loc).Before(DateIn(r.Start, loc)) {
			return Request{}, nil, ErrInvalidDateRange
		}
	}
	return r, loc, nil
}

// DateOf truncates an instant to local midnight in its own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DateIn re-homes the calendar date carried by t at midnight in loc.
// Request start/end values are calendar dates, not instants; a
// "2024-01-01" parsed in UTC means Jan 1 in the run's timezone, not
// whatever local day the UTC midnight instant falls on.
func DateIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// IncludesToday reports whether the local date of now falls inside
// [start, end], comparing dates in the given location.
func IncludesToday(start, end, now time.Time, loc *time.Location) bool {
	today := DateOf(now.In(loc))
	return !DateOf(start.In(loc)).After(today) && !DateOf(end.In(loc)).Before(today)
}
