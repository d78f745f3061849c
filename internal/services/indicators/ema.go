package indicators

// EMA returns the exponential moving average of values, seeded with the
// first value and smoothed with k = 2/(period+1). It returns 0 for empty
// input or a non-positive period.
func EMA(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}

	k := 2 / float64(period+1)
	ema := values[0]
	for _, v := range values[1:] {
		ema = v*k + ema*(1-k)
	}
	return ema
}
