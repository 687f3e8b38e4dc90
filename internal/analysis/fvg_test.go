package analysis

import (
	"testing"

	"okx-short-bot/internal/okx"
)

// TestDetectBullishGap verifies detection of a bullish three-candle imbalance
func TestDetectBullishGap(t *testing.T) {
	detector := NewGapDetector(0.3, 50)

	candles := []okx.Candle{
		{Open: 95, High: 100, Low: 94, Close: 98},
		{Open: 98, High: 105, Low: 97, Close: 104},  // Middle candle
		{Open: 104, High: 108, Low: 101, Close: 106}, // Gap: (100, 101)
		{Open: 106, High: 109, Low: 105, Close: 107},
	}

	gaps := detector.Detect(candles, BullishGap)

	if len(gaps) != 1 {
		t.Fatalf("Expected 1 gap, got %d", len(gaps))
	}

	gap := gaps[0]
	if gap.Type != BullishGap {
		t.Errorf("Expected bullish gap, got %s", gap.Type)
	}
	if gap.Low != 100 || gap.High != 101 {
		t.Errorf("Expected bounds [100,101], got [%f,%f]", gap.Low, gap.High)
	}
	if gap.Midpoint != 100.5 {
		t.Errorf("Expected midpoint 100.5, got %f", gap.Midpoint)
	}
	if gap.CandleIndex != 1 {
		t.Errorf("Expected originating index 1, got %d", gap.CandleIndex)
	}
	if gap.AgeBars != 2 {
		t.Errorf("Expected age 2 bars, got %d", gap.AgeBars)
	}
	// Size 1 on close 104 -> ~0.96%
	if gap.SizePercent < 0.95 || gap.SizePercent > 0.97 {
		t.Errorf("Size percent out of range: %f", gap.SizePercent)
	}
}

// TestDetectBearishGap verifies the symmetric bearish rule
func TestDetectBearishGap(t *testing.T) {
	detector := NewGapDetector(0.3, 50)

	candles := []okx.Candle{
		{Open: 105, High: 106, Low: 100, Close: 102},
		{Open: 102, High: 103, Low: 95, Close: 96}, // Middle candle
		{Open: 96, High: 99, Low: 92, Close: 94},   // Gap: (99, 100)
	}

	gaps := detector.Detect(candles, BearishGap)

	if len(gaps) != 1 {
		t.Fatalf("Expected 1 gap, got %d", len(gaps))
	}
	if gaps[0].Low != 99 || gaps[0].High != 100 {
		t.Errorf("Expected bounds [99,100], got [%f,%f]", gaps[0].Low, gaps[0].High)
	}
}

// TestMinGapPercentFilters verifies gaps below the minimum are discarded
func TestMinGapPercentFilters(t *testing.T) {
	candles := []okx.Candle{
		{High: 100.0, Low: 99, Close: 99.5},
		{High: 100.5, Low: 99.5, Close: 100.2}, // Middle
		{High: 101, Low: 100.2, Close: 100.8},  // Gap size 0.2 -> ~0.2% of 100.2
	}

	strict := NewGapDetector(0.3, 50)
	if gaps := strict.Detect(candles, BullishGap); len(gaps) != 0 {
		t.Errorf("Expected 0 gaps above 0.3%% minimum, got %d", len(gaps))
	}

	loose := NewGapDetector(0.1, 50)
	if gaps := loose.Detect(candles, BullishGap); len(gaps) != 1 {
		t.Errorf("Expected 1 gap above 0.1%% minimum, got %d", len(gaps))
	}
}

// TestShrinkingMinimumIsMonotonic verifies a smaller minimum never removes
// gaps the larger minimum returned
func TestShrinkingMinimumIsMonotonic(t *testing.T) {
	candles := []okx.Candle{
		{High: 100, Low: 95, Close: 98},
		{High: 106, Low: 99, Close: 105},
		{High: 110, Low: 101, Close: 108}, // Gap 1
		{High: 115, Low: 109, Close: 113},
		{High: 120, Low: 116, Close: 118}, // Gap 2, larger
		{High: 122, Low: 117, Close: 120},
	}

	// Largest to smallest minimum: the returned set may only grow
	minimums := []float64{5.0, 2.0, 1.0, 0.5, 0.1}
	prevCount := 0
	for i, min := range minimums {
		detector := NewGapDetector(min, 50)
		count := len(detector.Detect(candles, BullishGap))
		if i > 0 && count < prevCount {
			t.Errorf("Shrinking the minimum to %.1f%% decreased the gap count: %d -> %d", min, prevCount, count)
		}
		prevCount = count
	}
}

// TestActiveExcludesStaleGaps verifies the age threshold
func TestActiveExcludesStaleGaps(t *testing.T) {
	detector := NewGapDetector(0.1, 5)

	gaps := []Gap{
		{CandleIndex: 1, AgeBars: 10}, // Stale
		{CandleIndex: 8, AgeBars: 3},  // Active
	}

	active := detector.Active(gaps)
	if len(active) != 1 || active[0].CandleIndex != 8 {
		t.Errorf("Active filtering mismatched: %+v", active)
	}
}

// TestMostRecentPicksNewestGap verifies tie resolution across candidates
func TestMostRecentPicksNewestGap(t *testing.T) {
	gaps := []Gap{
		{CandleIndex: 3},
		{CandleIndex: 12},
		{CandleIndex: 7},
	}

	newest, ok := MostRecent(gaps)
	if !ok || newest.CandleIndex != 12 {
		t.Errorf("Expected newest gap at index 12, got %+v ok=%v", newest, ok)
	}

	if _, ok := MostRecent(nil); ok {
		t.Error("Expected ok=false for an empty list")
	}
}

// TestDetectDegenerateInput verifies short sequences return nil
func TestDetectDegenerateInput(t *testing.T) {
	detector := NewGapDetector(0.3, 50)

	if gaps := detector.Detect([]okx.Candle{{Close: 1}, {Close: 2}}, BullishGap); gaps != nil {
		t.Errorf("Expected nil for 2 candles, got %+v", gaps)
	}
}
