package indicators

import "math"

// SMA calculates the simple moving average over the last period values.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period)
}

// EMA calculates an exponential moving average seeded with the SMA of the
// first period values.
func EMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	k := 2.0 / (float64(period) + 1.0)
	ema := SMA(values[:period], period)
	for _, v := range values[period:] {
		ema = v*k + ema*(1-k)
	}
	return ema
}

// RSI calculates the relative strength index over period lookback.
func RSI(values []float64, period int) float64 {
	if period <= 0 || len(values) < period+1 {
		return 50
	}
	var gains, losses float64
	for i := len(values) - period; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

// Bollinger returns the upper and lower bands at numStdDev standard
// deviations around the period SMA.
func Bollinger(values []float64, period int, numStdDev float64) (upper, lower float64) {
	if period <= 0 || len(values) < period {
		return 0, 0
	}
	mean := SMA(values, period)
	variance := 0.0
	for i := len(values) - period; i < len(values); i++ {
		d := values[i] - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(period))
	return mean + numStdDev*std, mean - numStdDev*std
}

// VWAP computes the volume-weighted average price for parallel slices of
// prices and volumes.
func VWAP(prices []float64, volumes []float64) float64 {
	if len(prices) == 0 || len(prices) != len(volumes) {
		return 0
	}
	var pv, vol float64
	for i := range prices {
		pv += prices[i] * volumes[i]
		vol += volumes[i]
	}
	if vol == 0 {
		return 0
	}
	return pv / vol
}
