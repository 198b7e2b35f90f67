// Package formulas provides the numeric building blocks of the feature engine.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// SampleStdDev calculates the Bessel-corrected (n-1) standard deviation.
// Returns 0 when fewer than two observations are available.
func SampleStdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// SimpleReturns converts prices to simple returns.
// Returns[i] = Price[i] / Price[i-1] - 1, skipping pairs whose denominator is not positive.
func SimpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if prev <= 0 {
			continue
		}
		returns = append(returns, prices[i]/prev-1)
	}
	return returns
}

// ATRProxy approximates the Average True Range from closes only: the mean absolute
// close-to-close change over the trailing period deltas. When fewer than period
// deltas exist, all of them are used. Returns 0 with fewer than two closes.
func ATRProxy(closes []float64, period int) float64 {
	if len(closes) < 2 {
		return 0
	}

	deltas := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		deltas = append(deltas, math.Abs(closes[i]-closes[i-1]))
	}

	window := deltas
	if period > 0 && len(deltas) >= period {
		window = deltas[len(deltas)-period:]
	}
	return Mean(window)
}
