package analysis

import "okx-short-bot/internal/okx"

// GapType discriminates Fair Value Gap direction
type GapType string

const (
	BullishGap GapType = "bullish"
	BearishGap GapType = "bearish"
)

// Gap represents a three-candle imbalance: the middle candle's move leaves a
// price zone untraded between its two neighbors.
type Gap struct {
	Type        GapType `json:"type"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Midpoint    float64 `json:"midpoint"`
	Size        float64 `json:"size"`         // Absolute, High - Low
	SizePercent float64 `json:"size_percent"` // Relative to the middle candle's close
	CandleIndex int     `json:"candle_index"` // Middle candle of the triple
	AgeBars     int     `json:"age_bars"`     // Bars since creation
}

// GapDetector finds Fair Value Gaps above a minimum relative size.
type GapDetector struct {
	minGapPercent float64 // Minimum gap size as % of the reference close
	maxAgeBars    int     // Gaps older than this are stale
}

// NewGapDetector creates a new gap detector
func NewGapDetector(minGapPercent float64, maxAgeBars int) *GapDetector {
	if minGapPercent <= 0 {
		minGapPercent = 0.3
	}
	if maxAgeBars <= 0 {
		maxAgeBars = 50
	}
	return &GapDetector{
		minGapPercent: minGapPercent,
		maxAgeBars:    maxAgeBars,
	}
}

// Detect scans every interior triple (i-1, i, i+1) and returns the gaps of
// the requested type whose size percentage clears the minimum. A bullish gap
// exists when high[i-1] < low[i+1], leaving [high[i-1], low[i+1]] untraded;
// bearish is symmetric. Size percentage is measured against the middle
// candle's close. Pure function; fewer than 3 candles yields nil.
func (gd *GapDetector) Detect(candles []okx.Candle, gapType GapType) []Gap {
	if len(candles) < 3 {
		return nil
	}

	var gaps []Gap
	for i := 1; i < len(candles)-1; i++ {
		prev := candles[i-1]
		mid := candles[i]
		next := candles[i+1]
		if mid.Close <= 0 {
			continue
		}

		var gap Gap
		switch {
		case gapType == BullishGap && prev.High < next.Low:
			gap = Gap{
				Type: BullishGap,
				High: next.Low,
				Low:  prev.High,
			}
		case gapType == BearishGap && prev.Low > next.High:
			gap = Gap{
				Type: BearishGap,
				High: prev.Low,
				Low:  next.High,
			}
		default:
			continue
		}

		gap.Size = gap.High - gap.Low
		gap.SizePercent = gap.Size / mid.Close * 100
		if gap.SizePercent < gd.minGapPercent {
			continue
		}

		gap.Midpoint = (gap.High + gap.Low) / 2
		gap.CandleIndex = i
		gap.AgeBars = len(candles) - i - 1
		gaps = append(gaps, gap)
	}

	return gaps
}

// Active filters out gaps whose age exceeds the detector's maximum,
// preserving order (oldest first).
func (gd *GapDetector) Active(gaps []Gap) []Gap {
	var active []Gap
	for _, g := range gaps {
		if g.AgeBars <= gd.maxAgeBars {
			active = append(active, g)
		}
	}
	return active
}

// MostRecent returns the most recently formed gap and ok=false when the list
// is empty. Ties between candidate gaps resolve to the newest one.
func MostRecent(gaps []Gap) (Gap, bool) {
	if len(gaps) == 0 {
		return Gap{}, false
	}
	newest := gaps[0]
	for _, g := range gaps[1:] {
		if g.CandleIndex > newest.CandleIndex {
			newest = g
		}
	}
	return newest, true
}
