package analysis

import (
	"github.com/markcheno/go-talib"

	"okx-short-bot/internal/okx"
)

// ATRPercent returns the latest Average True Range as a percentage of the
// latest close, used to derive stop and target distances. Returns 0 when
// there is not enough data for the period.
func ATRPercent(candles []okx.Candle, period int) float64 {
	if period <= 0 {
		period = 14
	}
	if len(candles) <= period {
		return 0
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}

	series := talib.Atr(highs, lows, closes, period)
	atr := series[len(series)-1]

	lastClose := closes[len(closes)-1]
	if lastClose <= 0 || atr <= 0 {
		return 0
	}
	return atr / lastClose * 100
}
