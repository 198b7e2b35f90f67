package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// NeutralRSI is reported when there is not enough history to compute RSI
const NeutralRSI = 50.0

// RSI calculates the Relative Strength Index of the closes using Wilder smoothing.
// It needs at least period+1 closes; otherwise NeutralRSI is returned.
func RSI(closes []float64, period int) float64 {
	if period < 2 || len(closes) <= period {
		return NeutralRSI
	}

	rsi := talib.Rsi(closes, period)
	if len(rsi) == 0 {
		return NeutralRSI
	}

	last := rsi[len(rsi)-1]
	if math.IsNaN(last) || math.IsInf(last, 0) {
		return NeutralRSI
	}
	return last
}
