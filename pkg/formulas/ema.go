package formulas

// EMA calculates the Exponential Moving Average of a series and returns its final value.
//
// EMA Formula:
//
//	EMA_today = (Price_today × k) + (EMA_yesterday × (1 - k))
//	where k = 2 / (period + 1)
//
// The average is seeded with the first value of the series rather than an SMA
// warm-up, so it is defined for any non-empty input, even one shorter than period.
// Returns 0 for an empty series.
func EMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period < 1 {
		period = 1
	}

	k := 2.0 / float64(period+1)
	ema := values[0]
	for _, v := range values[1:] {
		ema = v*k + ema*(1-k)
	}
	return ema
}
