package analytics

import "math"

// CAGR returns the compound annual growth rate between two values over the
// given span in years, as a percentage. Zero when the inputs cannot define
// a growth rate.
func CAGR(startValue, endValue, years float64) float64 {
	if startValue <= 0 || years <= 0 {
		return 0
	}
	return (math.Pow(endValue/startValue, 1/years) - 1) * 100
}

// AnnualizedVolatility computes the sample standard deviation of
// day-over-day percentage changes across a chronological NAV series, scaled
// to a yearly horizon of 252 trading days, as a percentage.
func AnnualizedVolatility(navSeries []float64) float64 {
	if len(navSeries) < 2 {
		return 0
	}

	dailyReturns := make([]float64, 0, len(navSeries)-1)
	for i := 1; i < len(navSeries); i++ {
		prev := navSeries[i-1]
		if prev > 0 {
			dailyReturns = append(dailyReturns, (navSeries[i]-prev)/prev)
		}
	}
	if len(dailyReturns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range dailyReturns {
		mean += r
	}
	mean /= float64(len(dailyReturns))

	variance := 0.0
	for _, r := range dailyReturns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(dailyReturns) - 1)

	return math.Sqrt(variance) * math.Sqrt(252) * 100
}

// SharpeRatio computes excess return per unit of volatility. Defined as 0
// when volatility is 0.
func SharpeRatio(returnRate, volatility, riskFreeRate float64) float64 {
	if volatility == 0 {
		return 0
	}
	return (returnRate - riskFreeRate) / volatility
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
