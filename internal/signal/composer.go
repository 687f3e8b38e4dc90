package signal

import "okx-short-bot/internal/analysis"

// Composer combines the trend classification, active gaps and trendline
// breakout state into at most one signal. Pure function, no I/O: the same
// inputs always produce the same variant and confidence.
type Composer struct{}

// NewComposer creates a new signal composer
func NewComposer() *Composer {
	return &Composer{}
}

// Compose selects one signal for the symbol, or nil. Precondition: an
// established uptrend, since short setups revert from one. Precedence:
// combo (gap and breakout agree) over gap-only over trend-only. When several
// gaps are active the most recently formed one wins.
func (c *Composer) Compose(
	symbol string,
	trend analysis.TrendClassification,
	gaps []analysis.Gap,
	line *analysis.Trendline,
	breakout bool,
	retest bool,
) *Signal {
	if !trend.Uptrend {
		return nil
	}

	gap, hasGap := analysis.MostRecent(gaps)

	switch {
	case hasGap && breakout:
		sig := newSignal(symbol, GapTrendCombo, ConfidenceCombo)
		if retest {
			sig.Confidence = ConfidenceComboRetest
			sig.RetestConfirmed = true
		}
		sig.attachGap(gap)
		sig.attachTrendline(line)
		return sig

	case hasGap:
		sig := newSignal(symbol, GapOnly, ConfidenceGapOnly)
		sig.attachGap(gap)
		return sig

	case breakout:
		sig := newSignal(symbol, TrendOnly, ConfidenceTrendOnly)
		sig.RetestConfirmed = retest
		sig.attachTrendline(line)
		return sig
	}

	return nil
}

func (s *Signal) attachGap(gap analysis.Gap) {
	s.GapLow = gap.Low
	s.GapHigh = gap.High
	s.GapSizePercent = gap.SizePercent
}

func (s *Signal) attachTrendline(line *analysis.Trendline) {
	if line != nil {
		s.TrendAngle = line.Angle
	}
}
