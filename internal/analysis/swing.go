// Package analysis implements market-structure detection over candle
// sequences: swing points, support trendlines, fair value gaps, trend
// classification and volatility. Every detector is a pure function of its
// candle window; re-running on an unchanged window yields identical output.
package analysis

import "okx-short-bot/internal/okx"

// SwingKind discriminates swing point types
type SwingKind string

const (
	SwingLow  SwingKind = "low"
	SwingHigh SwingKind = "high"
)

// SwingPoint represents a local price extremum relative to its immediate
// neighbors.
type SwingPoint struct {
	CandleIndex int       `json:"candle_index"`
	Price       float64   `json:"price"`
	Kind        SwingKind `json:"kind"`
}

// SwingPointExtractor finds local extrema in a candle sequence.
type SwingPointExtractor struct{}

// NewSwingPointExtractor creates a new swing point extractor
func NewSwingPointExtractor() *SwingPointExtractor {
	return &SwingPointExtractor{}
}

// FindSwingLows returns every interior bar whose low is strictly below both
// neighbors. Strict inequality only: a flat double-bottom yields no swing
// point at either bar. Fewer than 3 candles yields an empty list.
func (se *SwingPointExtractor) FindSwingLows(candles []okx.Candle) []SwingPoint {
	var swings []SwingPoint
	for i := 1; i < len(candles)-1; i++ {
		if candles[i].Low < candles[i-1].Low && candles[i].Low < candles[i+1].Low {
			swings = append(swings, SwingPoint{
				CandleIndex: i,
				Price:       candles[i].Low,
				Kind:        SwingLow,
			})
		}
	}
	return swings
}

// FindSwingHighs returns every interior bar whose high is strictly above
// both neighbors.
func (se *SwingPointExtractor) FindSwingHighs(candles []okx.Candle) []SwingPoint {
	var swings []SwingPoint
	for i := 1; i < len(candles)-1; i++ {
		if candles[i].High > candles[i-1].High && candles[i].High > candles[i+1].High {
			swings = append(swings, SwingPoint{
				CandleIndex: i,
				Price:       candles[i].High,
				Kind:        SwingHigh,
			})
		}
	}
	return swings
}

// Recent truncates a swing list to its most recent n entries. n <= 0 returns
// the list unchanged.
func Recent(swings []SwingPoint, n int) []SwingPoint {
	if n <= 0 || len(swings) <= n {
		return swings
	}
	return swings[len(swings)-n:]
}
