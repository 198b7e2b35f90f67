package domain

// Regime is a coarse trend classification derived from the EMA crossover
type Regime string

const (
	RegimeBull     Regime = "BULL"
	RegimeBear     Regime = "BEAR"
	RegimeSideways Regime = "SIDEWAYS"
)

// Features are the indicators derived from a price history
type Features struct {
	Last     float64 `json:"last"`
	ATR      float64 `json:"atr"`
	EMAShort float64 `json:"ema_short"`
	EMALong  float64 `json:"ema_long"`
	VolPct   float64 `json:"vol_pct"`
	RSI      float64 `json:"rsi"`
	Regime   Regime  `json:"regime"`
}

// SignalKind classifies an alert
type SignalKind string

const (
	SignalTakeProfit     SignalKind = "TAKE_PROFIT"
	SignalStopLoss       SignalKind = "STOP_LOSS"
	SignalTrailingStop   SignalKind = "TRAILING_STOP"
	SignalTrailingUpdate SignalKind = "TRAILING_UPDATE"
)

// Signal is a decision produced for one holding on one tick
type Signal struct {
	Kind    SignalKind `json:"kind"`
	Message string     `json:"message"`
}
