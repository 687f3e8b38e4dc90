package analysis

import (
	"math"
	"testing"

	"okx-short-bot/internal/okx"
)

// TestFitRejectsTooFewTouches verifies the minimum touch count
func TestFitRejectsTooFewTouches(t *testing.T) {
	fitter := NewTrendlineFitter(3, 5.0)

	swings := []SwingPoint{
		{CandleIndex: 0, Price: 100},
		{CandleIndex: 10, Price: 110},
	}

	if tl := fitter.Fit(swings); tl != nil {
		t.Errorf("Expected nil for 2 touches with minimum 3, got %+v", tl)
	}
}

// TestFitRejectsFlatLine verifies the minimum angle gate
func TestFitRejectsFlatLine(t *testing.T) {
	fitter := NewTrendlineFitter(3, 5.0)

	// Slope 0.01 -> angle ~0.57 degrees, below the 5 degree minimum
	swings := []SwingPoint{
		{CandleIndex: 0, Price: 100.00},
		{CandleIndex: 10, Price: 100.10},
		{CandleIndex: 20, Price: 100.20},
	}

	if tl := fitter.Fit(swings); tl != nil {
		t.Errorf("Expected nil for a near-flat line, got angle %.2f", tl.Angle)
	}
}

// TestFitPerfectLine verifies slope, intercept, angle and R2 on exact points
func TestFitPerfectLine(t *testing.T) {
	fitter := NewTrendlineFitter(3, 5.0)

	// y = 2x + 100: slope 2 -> angle ~63.4 degrees
	swings := []SwingPoint{
		{CandleIndex: 0, Price: 100},
		{CandleIndex: 5, Price: 110},
		{CandleIndex: 10, Price: 120},
		{CandleIndex: 15, Price: 130},
	}

	tl := fitter.Fit(swings)
	if tl == nil {
		t.Fatal("Expected a valid trendline")
	}

	if math.Abs(tl.Slope-2) > 1e-9 {
		t.Errorf("Expected slope 2, got %f", tl.Slope)
	}
	if math.Abs(tl.Intercept-100) > 1e-9 {
		t.Errorf("Expected intercept 100, got %f", tl.Intercept)
	}
	if math.Abs(tl.R2-1.0) > 1e-9 {
		t.Errorf("Expected R2 1.0 for a perfect fit, got %f", tl.R2)
	}
	if tl.FirstIndex != 0 || tl.LastIndex != 15 {
		t.Errorf("Validity window mismatched: [%d,%d]", tl.FirstIndex, tl.LastIndex)
	}
	if len(tl.Touches) != 4 {
		t.Errorf("Expected 4 touches, got %d", len(tl.Touches))
	}
}

// TestIsBreakout verifies breakout requires the close to undercut the
// projected value by more than the tolerance
func TestIsBreakout(t *testing.T) {
	fitter := NewTrendlineFitter(3, 5.0)
	tl := &Trendline{Slope: 1, Intercept: 100} // Projected at index 4: 104

	candles := make([]okx.Candle, 5)
	for i := range candles {
		candles[i] = okx.Candle{Close: 105}
	}

	// 0.5% tolerance of 104 -> threshold 103.48
	candles[4].Close = 103.0
	if !fitter.IsBreakout(candles, tl, 0.5) {
		t.Error("Expected breakout at close 103.0 against projected 104")
	}

	candles[4].Close = 103.8 // Below projection but inside tolerance
	if fitter.IsBreakout(candles, tl, 0.5) {
		t.Error("Expected no breakout inside the tolerance band")
	}

	candles[4].Close = 104.5 // Above projection
	if fitter.IsBreakout(candles, tl, 0.5) {
		t.Error("Expected no breakout above the projected value")
	}
}

// TestIsRetest verifies the return-to-broken-support scan
func TestIsRetest(t *testing.T) {
	fitter := NewTrendlineFitter(3, 5.0)
	tl := &Trendline{Slope: 0, Intercept: 100} // Flat projection at 100 everywhere

	candles := make([]okx.Candle, 20)
	for i := range candles {
		candles[i] = okx.Candle{Close: 95} // Well below, outside the band
	}

	if fitter.IsRetest(candles, tl, 10, 0.5) {
		t.Error("Expected no retest when closes stay far below the line")
	}

	// One bar inside the lookback closes just below the line, within 0.5%
	candles[15].Close = 99.8
	if !fitter.IsRetest(candles, tl, 10, 0.5) {
		t.Error("Expected retest for a close within the tolerance band below the line")
	}

	// A close above the line is not a retest
	candles[15].Close = 100.2
	if fitter.IsRetest(candles, tl, 10, 0.5) {
		t.Error("Expected no retest for a close above the line")
	}

	// The qualifying bar outside the lookback window does not count
	candles[15].Close = 95
	candles[2].Close = 99.8
	if fitter.IsRetest(candles, tl, 10, 0.5) {
		t.Error("Expected no retest for a bar outside the lookback window")
	}
}

// risingChannel builds n candles alternating dips and peaks so that every
// interior dip is a swing low sitting exactly on y = 0.5x + 100 in the frame
// of the full slice.
func risingChannel(n int) []okx.Candle {
	candles := make([]okx.Candle, n)
	for i := 0; i < n; i++ {
		low := 100 + 0.5*float64(i)
		if i%2 != 0 {
			low += 5.5
		}
		candles[i] = okx.Candle{Low: low, Open: low + 1, Close: low + 2, High: low + 3}
	}
	return candles
}

// TestBreakoutSharesClassifierIndexFrame verifies breakout detection over a
// candle history longer than the classifier's lookback window: the fitted
// line and the projection must address the same bar indices, so a close
// sitting exactly on the support line is not a breakout
func TestBreakoutSharesClassifierIndexFrame(t *testing.T) {
	candles := risingChannel(100)
	// Final bar closes exactly on the line's value at index 99
	candles[99] = okx.Candle{Low: 149, Open: 150, Close: 149.5, High: 156}

	trend := NewTrendClassifier(50).Classify(candles)
	if !trend.Uptrend {
		t.Fatalf("Expected uptrend, got reason %s", trend.Reason)
	}

	fitter := NewTrendlineFitter(3, 5.0)
	tl := fitter.Fit(trend.SwingLows)
	if tl == nil {
		t.Fatal("Expected a valid trendline from the windowed swing lows")
	}
	if projected := tl.ProjectedValue(len(candles) - 1); math.Abs(projected-149.5) > 1e-9 {
		t.Fatalf("Expected projection 149.5 at the latest bar, got %f", projected)
	}

	if fitter.IsBreakout(candles, tl, 0.2) {
		t.Error("Expected no breakout with the close exactly on the support line")
	}

	candles[99].Close = 140
	if !fitter.IsBreakout(candles, tl, 0.2) {
		t.Error("Expected breakout once the close undercuts the line")
	}
}

// TestBreakoutRetestDoNotMutate verifies the detections leave the trendline
// untouched
func TestBreakoutRetestDoNotMutate(t *testing.T) {
	fitter := NewTrendlineFitter(3, 5.0)
	tl := &Trendline{Slope: 1, Intercept: 100, Angle: 45, R2: 1}

	candles := []okx.Candle{{Close: 90}, {Close: 91}, {Close: 92}}
	fitter.IsBreakout(candles, tl, 0.5)
	fitter.IsRetest(candles, tl, 10, 0.5)

	if tl.Slope != 1 || tl.Intercept != 100 || tl.Angle != 45 || tl.R2 != 1 {
		t.Error("Detection mutated the trendline")
	}
}
