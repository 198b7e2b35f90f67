package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEMA(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		period   int
		expected float64
	}{
		{"empty", nil, 10, 0},
		{"single value seeds", []float64{42}, 10, 42},
		{"constant series", []float64{5, 5, 5, 5}, 3, 5},
		// k = 0.5: seed 10 -> 0.5*20+0.5*10 = 15 -> 0.5*30+0.5*15 = 22.5
		{"period 3", []float64{10, 20, 30}, 3, 22.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, EMA(tt.values, tt.period), 1e-9)
		})
	}
}

func TestSimpleReturns(t *testing.T) {
	assert.Empty(t, SimpleReturns(nil))
	assert.Empty(t, SimpleReturns([]float64{100}))

	got := SimpleReturns([]float64{100, 110, 99})
	assert.InDeltaSlice(t, []float64{0.1, -0.1}, got, 1e-9)

	// Non-positive denominators are skipped rather than producing Inf
	got = SimpleReturns([]float64{0, 10, -5, 20, 22})
	assert.InDeltaSlice(t, []float64{-1.5, 0.1}, got, 1e-9)
}

func TestSampleStdDev(t *testing.T) {
	assert.Equal(t, 0.0, SampleStdDev(nil))
	assert.Equal(t, 0.0, SampleStdDev([]float64{0.3}))

	// mean 2, squared deviations 1+0+1 = 2, divided by n-1 = 2 -> 1
	assert.InDelta(t, 1.0, SampleStdDev([]float64{1, 2, 3}), 1e-12)
}

func TestATRProxy(t *testing.T) {
	assert.Equal(t, 0.0, ATRProxy(nil, 14))
	assert.Equal(t, 0.0, ATRProxy([]float64{100}, 14))

	// Fewer deltas than the period: all deltas are averaged (1, 2, 3)
	assert.InDelta(t, 2.0, ATRProxy([]float64{100, 101, 99, 102}, 14), 1e-12)

	// Only the trailing two deltas (2, 3) are used
	assert.InDelta(t, 2.5, ATRProxy([]float64{100, 101, 99, 102}, 2), 1e-12)
}

func TestRSI(t *testing.T) {
	assert.Equal(t, NeutralRSI, RSI([]float64{1, 2, 3}, 14))

	rising := make([]float64, 40)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	assert.InDelta(t, 100.0, RSI(rising, 14), 1e-6)

	falling := make([]float64, 40)
	for i := range falling {
		falling[i] = 100 - float64(i)
	}
	assert.InDelta(t, 0.0, RSI(falling, 14), 1e-6)

	mixed := []float64{44, 44.3, 44.1, 44.5, 43.9, 44.6, 45.2, 45.0, 45.8, 46.1, 45.9, 46.3, 46.0, 46.4, 46.2, 45.6, 46.0}
	got := RSI(mixed, 14)
	assert.False(t, math.IsNaN(got))
	assert.Greater(t, got, 50.0)
	assert.Less(t, got, 100.0)
}
