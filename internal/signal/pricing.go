package signal

import (
	"okx-short-bot/internal/analysis"
	"okx-short-bot/internal/okx"
)

const defaultATRPeriod = 14

// Pricer derives entry, stop and target for a short from volatility: the
// entry is the latest close, the stop sits above it and the target below it
// by ATR-percentage multiples.
type Pricer struct {
	stopMultiplier   float64
	targetMultiplier float64
	atrPeriod        int
}

// NewPricer creates a pricer with the given ATR multipliers
func NewPricer(stopMultiplier, targetMultiplier float64) *Pricer {
	if stopMultiplier <= 0 {
		stopMultiplier = 1.0
	}
	if targetMultiplier <= 0 {
		targetMultiplier = 4.0
	}
	return &Pricer{
		stopMultiplier:   stopMultiplier,
		targetMultiplier: targetMultiplier,
		atrPeriod:        defaultATRPeriod,
	}
}

// Apply fills the signal's price levels from the candle window. Returns
// false when the window is too short to compute volatility; the signal is
// left untouched and the caller skips the symbol for this cycle.
func (p *Pricer) Apply(sig *Signal, candles []okx.Candle) bool {
	if sig == nil || len(candles) == 0 {
		return false
	}

	atrPct := analysis.ATRPercent(candles, p.atrPeriod)
	if atrPct <= 0 {
		return false
	}

	entry := candles[len(candles)-1].Close
	sig.Entry = entry
	sig.Stop = entry * (1 + p.stopMultiplier*atrPct/100)
	sig.Target = entry * (1 - p.targetMultiplier*atrPct/100)
	return true
}
