package signal

import (
	"time"

	"github.com/google/uuid"
)

// Type discriminates the three signal variants
type Type string

const (
	GapOnly       Type = "GAP_ONLY"
	TrendOnly     Type = "TREND_ONLY"
	GapTrendCombo Type = "GAP_TREND_COMBO"
)

// Confidence scores per variant. Combo with a confirmed retest carries the
// premium score.
const (
	ConfidenceGapOnly     = 60.0
	ConfidenceTrendOnly   = 70.0
	ConfidenceCombo       = 85.0
	ConfidenceComboRetest = 95.0
)

// Signal is a short-setup candidate for one symbol in one evaluation cycle.
// At most one signal per symbol per cycle; precedence resolves conflicts.
type Signal struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Type       Type      `json:"type"`
	Confidence float64   `json:"confidence"` // 0-100
	Timestamp  time.Time `json:"timestamp"`

	// Price levels, filled in by the pricer after composition
	Entry  float64 `json:"entry"`
	Stop   float64 `json:"stop"`
	Target float64 `json:"target"`

	// Supporting setup fields
	GapLow          float64 `json:"gap_low,omitempty"`
	GapHigh         float64 `json:"gap_high,omitempty"`
	GapSizePercent  float64 `json:"gap_size_percent,omitempty"`
	TrendAngle      float64 `json:"trend_angle,omitempty"`
	RetestConfirmed bool    `json:"retest_confirmed"`
}

func newSignal(symbol string, kind Type, confidence float64) *Signal {
	return &Signal{
		ID:         uuid.New().String(),
		Symbol:     symbol,
		Type:       kind,
		Confidence: confidence,
		Timestamp:  time.Now(),
	}
}
