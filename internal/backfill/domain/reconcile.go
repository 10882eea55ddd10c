package backfill

import (
	statistics "energy-import/internal/statistics/domain"
)

// DefaultBoundaryTolerance is the largest acceptable discontinuity, in
// energy units, between the final generated point and the first live
// point that follows it.
const DefaultBoundaryTolerance = 1.0

// AlignBoundary shifts the whole generated series so its final sum meets
// the first stored point that follows it. The shift is global and
// uniform, preserving the relative deltas of the series exactly; sums
// are clamped at zero. Returns the applied shift, 0 when the series is
// empty or the discontinuity is within tolerance.
func AlignBoundary(series []statistics.Point, next statistics.Point, tolerance float64) float64 {
	if len(series) == 0 {
		return 0
	}
	if tolerance < 0 {
		tolerance = DefaultBoundaryTolerance
	}
	shift := next.Sum - series[len(series)-1].Sum
	if shift >= -tolerance && shift <= tolerance {
		return 0
	}
	for i := range series {
		series[i].Sum += shift
		if series[i].Sum < 0 {
			series[i].Sum = 0
		}
	}
	return shift
}
