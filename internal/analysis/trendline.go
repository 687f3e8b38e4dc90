package analysis

import (
	"math"

	"okx-short-bot/internal/okx"
)

// Trendline is a least-squares line fitted through swing lows, acting as
// dynamic support. A trendline only exists when it has enough touches and a
// steep enough ascent; detectors return nil otherwise.
type Trendline struct {
	Slope      float64      `json:"slope"`
	Intercept  float64      `json:"intercept"`
	Angle      float64      `json:"angle"`       // Degrees, atan(slope)
	R2         float64      `json:"r2"`          // Fit quality
	Touches    []SwingPoint `json:"touches"`     // Supporting swing lows, ordered
	FirstIndex int          `json:"first_index"` // Validity window start
	LastIndex  int          `json:"last_index"`  // Validity window end
}

// ProjectedValue returns the line's value at a bar index.
func (tl *Trendline) ProjectedValue(index int) float64 {
	return tl.Slope*float64(index) + tl.Intercept
}

// TrendlineFitter fits ascending support lines through swing lows and
// detects breakout and retest against them.
type TrendlineFitter struct {
	minTouches int     // Swing lows required for a valid line
	minAngle   float64 // Degrees; flatter lines are not usable support
}

// NewTrendlineFitter creates a new trendline fitter
func NewTrendlineFitter(minTouches int, minAngle float64) *TrendlineFitter {
	if minTouches <= 0 {
		minTouches = 3
	}
	if minAngle <= 0 {
		minAngle = 5.0
	}
	return &TrendlineFitter{
		minTouches: minTouches,
		minAngle:   minAngle,
	}
}

// Fit runs a least-squares regression (x = bar index, y = price) over the
// swing lows. Returns nil when there are fewer swing lows than the minimum
// touch count or the fitted angle is below the minimum, since a descending
// or too-flat line is not a usable support for a short-reversion setup.
func (tf *TrendlineFitter) Fit(swingLows []SwingPoint) *Trendline {
	if len(swingLows) < tf.minTouches {
		return nil
	}

	n := float64(len(swingLows))
	var sumX, sumY, sumXY, sumXX float64
	for _, sp := range swingLows {
		x := float64(sp.CandleIndex)
		sumX += x
		sumY += sp.Price
		sumXY += x * sp.Price
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return nil // All touches on the same bar index
	}

	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n
	angle := math.Atan(slope) * 180 / math.Pi

	if angle < tf.minAngle {
		return nil
	}

	// R² against the mean
	meanY := sumY / n
	var ssTot, ssRes float64
	for _, sp := range swingLows {
		predicted := slope*float64(sp.CandleIndex) + intercept
		ssRes += (sp.Price - predicted) * (sp.Price - predicted)
		ssTot += (sp.Price - meanY) * (sp.Price - meanY)
	}
	r2 := 1.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}

	return &Trendline{
		Slope:      slope,
		Intercept:  intercept,
		Angle:      angle,
		R2:         r2,
		Touches:    swingLows,
		FirstIndex: swingLows[0].CandleIndex,
		LastIndex:  swingLows[len(swingLows)-1].CandleIndex,
	}
}

// IsBreakout reports whether the latest close sits below the trendline's
// projected value at the latest bar by more than tolerancePercent of that
// value. Pure function; the trendline is not mutated.
func (tf *TrendlineFitter) IsBreakout(candles []okx.Candle, tl *Trendline, tolerancePercent float64) bool {
	if tl == nil || len(candles) == 0 {
		return false
	}

	lastIndex := len(candles) - 1
	projected := tl.ProjectedValue(lastIndex)
	if projected <= 0 {
		return false
	}

	threshold := projected * (1 - tolerancePercent/100)
	return candles[lastIndex].Close < threshold
}

// IsRetest scans the most recent lookbackBars for a close within the
// tolerance band of the line's projected value at that bar while still
// closing below it, the return-to-broken-support condition.
func (tf *TrendlineFitter) IsRetest(candles []okx.Candle, tl *Trendline, lookbackBars int, tolerancePercent float64) bool {
	if tl == nil || len(candles) == 0 {
		return false
	}
	if lookbackBars <= 0 {
		lookbackBars = 10
	}

	start := len(candles) - lookbackBars
	if start < 0 {
		start = 0
	}

	for i := start; i < len(candles); i++ {
		projected := tl.ProjectedValue(i)
		if projected <= 0 {
			continue
		}
		band := projected * tolerancePercent / 100
		close := candles[i].Close
		if close < projected && projected-close <= band {
			return true
		}
	}
	return false
}
