package analysis

import "okx-short-bot/internal/okx"

// TrendReason explains a not-uptrend classification. Insufficient data is a
// definite "not uptrend" but must stay distinguishable from a genuine
// structure break so callers can report it.
type TrendReason string

const (
	ReasonUptrend          TrendReason = "higher_lows"
	ReasonStructureBreak   TrendReason = "lower_or_equal_low"
	ReasonInsufficientData TrendReason = "insufficient_swing_lows"
)

// TrendClassification is the directional regime over a candle window plus
// the swing structure that supports it.
type TrendClassification struct {
	Uptrend    bool         `json:"uptrend"`
	Reason     TrendReason  `json:"reason"`
	SwingLows  []SwingPoint `json:"swing_lows"`
	SwingHighs []SwingPoint `json:"swing_highs"`
}

// TrendClassifier determines the directional regime from Higher-Low
// sequences. Short candidates require an established uptrend to revert from.
type TrendClassifier struct {
	extractor    *SwingPointExtractor
	lookbackBars int
}

// NewTrendClassifier creates a new trend classifier
func NewTrendClassifier(lookbackBars int) *TrendClassifier {
	if lookbackBars <= 0 {
		lookbackBars = 50
	}
	return &TrendClassifier{
		extractor:    NewSwingPointExtractor(),
		lookbackBars: lookbackBars,
	}
}

// Classify restricts the candles to the lookback window, extracts swing
// points and declares an uptrend only when at least 2 swing lows exist and
// every successive swing low is strictly higher than the previous. A single
// equal-or-lower low invalidates the whole window. Swing indices are
// reported in the frame of the full input slice so trendline fits and
// projections downstream share one index frame with the candles.
func (tc *TrendClassifier) Classify(candles []okx.Candle) TrendClassification {
	window := candles
	offset := 0
	if len(window) > tc.lookbackBars {
		offset = len(window) - tc.lookbackBars
		window = window[offset:]
	}

	swingLows := tc.extractor.FindSwingLows(window)
	swingHighs := tc.extractor.FindSwingHighs(window)
	for i := range swingLows {
		swingLows[i].CandleIndex += offset
	}
	for i := range swingHighs {
		swingHighs[i].CandleIndex += offset
	}

	result := TrendClassification{
		SwingLows:  swingLows,
		SwingHighs: swingHighs,
	}

	if len(swingLows) < 2 {
		result.Reason = ReasonInsufficientData
		return result
	}

	for i := 1; i < len(swingLows); i++ {
		if swingLows[i].Price <= swingLows[i-1].Price {
			result.Reason = ReasonStructureBreak
			return result
		}
	}

	result.Uptrend = true
	result.Reason = ReasonUptrend
	return result
}
