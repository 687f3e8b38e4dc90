package risk

import (
	"fmt"
	"math"
	"time"

	"okx-short-bot/internal/signal"
)

// Config holds risk validation thresholds
type Config struct {
	MaxRiskPercent    float64 // Percentage of capital risked per trade
	MinRewardRisk     float64 // Required reward-to-risk ratio
	PremiumRewardRisk float64 // Lower ratio accepted for premium signals
	Leverage          float64
	MaxOpenPositions  int
	MaxDailyTrades    int
	MaxDailyLoss      float64 // Realized loss cap per day, quote currency
}

// AccountState is the injected account snapshot the validator decides
// against. The evaluation loop owns and supplies it; the validator holds no
// state of its own.
type AccountState struct {
	Capital           float64
	OpenSymbols       map[string]bool
	OpenPositions     int
	TradesToday       int
	RealizedLossToday float64 // Positive = money lost today
}

// Assessment is the immutable outcome for one signal. Rejected assessments
// are logged and discarded, never retried within the same cycle.
type Assessment struct {
	SignalID        string      `json:"signal_id"`
	Symbol          string      `json:"symbol"`
	SignalType      signal.Type `json:"signal_type"`
	Entry           float64     `json:"entry"`
	Stop            float64     `json:"stop"`
	Target          float64     `json:"target"`
	Size            float64     `json:"size"` // Contracts after leverage
	RewardRisk      float64     `json:"reward_risk"`
	RiskPercent     float64     `json:"risk_percent"`
	Accepted        bool        `json:"accepted"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Validator converts signals into accepted assessments or rejections
type Validator struct {
	config Config
}

// NewValidator creates a new risk validator
func NewValidator(config Config) *Validator {
	if config.Leverage <= 0 {
		config.Leverage = 1
	}
	return &Validator{config: config}
}

// Validate sizes the trade and applies every gate in order: account limits,
// degenerate price levels, reward-to-risk, risk cap. The first failing gate
// becomes the rejection reason.
func (v *Validator) Validate(sig *signal.Signal, account AccountState) Assessment {
	assessment := Assessment{
		SignalID:   sig.ID,
		Symbol:     sig.Symbol,
		SignalType: sig.Type,
		Entry:      sig.Entry,
		Stop:       sig.Stop,
		Target:     sig.Target,
		CreatedAt:  time.Now(),
	}

	if account.OpenSymbols[sig.Symbol] {
		return reject(assessment, fmt.Sprintf("open position already exists for %s", sig.Symbol))
	}
	if account.OpenPositions >= v.config.MaxOpenPositions {
		return reject(assessment, fmt.Sprintf("max open positions reached (%d/%d)",
			account.OpenPositions, v.config.MaxOpenPositions))
	}
	if v.config.MaxDailyTrades > 0 && account.TradesToday >= v.config.MaxDailyTrades {
		return reject(assessment, fmt.Sprintf("daily trade limit reached (%d/%d)",
			account.TradesToday, v.config.MaxDailyTrades))
	}
	if v.config.MaxDailyLoss > 0 && account.RealizedLossToday >= v.config.MaxDailyLoss {
		return reject(assessment, fmt.Sprintf("daily loss limit reached (%.2f/%.2f)",
			account.RealizedLossToday, v.config.MaxDailyLoss))
	}
	if account.Capital <= 0 {
		return reject(assessment, "account capital unavailable")
	}

	riskDistance := math.Abs(sig.Entry - sig.Stop)
	if riskDistance == 0 {
		return reject(assessment, "stop equals entry, zero risk distance")
	}

	assessment.RewardRisk = math.Abs(sig.Entry-sig.Target) / riskDistance
	required := v.requiredRatio(sig)
	if assessment.RewardRisk < required {
		return reject(assessment, fmt.Sprintf("reward/risk %.2f below required %.2f",
			assessment.RewardRisk, required))
	}

	riskAmount := account.Capital * v.config.MaxRiskPercent / 100
	assessment.Size = riskAmount / riskDistance / v.config.Leverage
	assessment.RiskPercent = assessment.Size * v.config.Leverage * riskDistance / account.Capital * 100
	if assessment.RiskPercent > v.config.MaxRiskPercent+1e-9 {
		return reject(assessment, fmt.Sprintf("risk %.2f%% exceeds cap %.2f%%",
			assessment.RiskPercent, v.config.MaxRiskPercent))
	}

	assessment.Accepted = true
	return assessment
}

// requiredRatio applies the premium threshold only to a combo signal with a
// confirmed retest
func (v *Validator) requiredRatio(sig *signal.Signal) float64 {
	if sig.Type == signal.GapTrendCombo && sig.RetestConfirmed && v.config.PremiumRewardRisk > 0 {
		return v.config.PremiumRewardRisk
	}
	return v.config.MinRewardRisk
}

func reject(assessment Assessment, reason string) Assessment {
	assessment.Accepted = false
	assessment.RejectionReason = reason
	return assessment
}
