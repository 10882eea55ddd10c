package backfill

// DaySamples holds per-hour energy deltas for one calendar day in the
// target timezone. Missing data is 0.0, never negative.
type DaySamples [24]float64

// Total returns the energy accrued across the whole day.
func (s DaySamples) Total() float64 {
	var total float64
	for _, v := range s {
		total += v
	}
	return total
}

// Validate rejects negative samples.
func (s DaySamples) Validate() error {
	for _, v := range s {
		if v < 0 {
			return ErrNegativeSample
		}
	}
	return nil
}
