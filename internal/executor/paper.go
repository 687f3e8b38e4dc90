package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"okx-short-bot/internal/logging"
	"okx-short-bot/internal/risk"
)

// PaperOrder is one simulated instruction, kept for the status API
type PaperOrder struct {
	Symbol   string    `json:"symbol"`
	Action   string    `json:"action"` // "open_short" or "close"
	Entry    float64   `json:"entry,omitempty"`
	Stop     float64   `json:"stop,omitempty"`
	Target   float64   `json:"target,omitempty"`
	Size     float64   `json:"size,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	IssuedAt time.Time `json:"issued_at"`
}

// PaperTrader simulates execution: every instruction is logged and recorded,
// nothing reaches the exchange. The default executor, as dry-run is the
// default mode.
type PaperTrader struct {
	logger zerolog.Logger

	mu     sync.Mutex
	orders []PaperOrder
}

// NewPaperTrader creates a simulated executor
func NewPaperTrader() *PaperTrader {
	return &PaperTrader{logger: logging.WithComponent("paper_trader")}
}

// PlaceShort records a simulated short entry with its bracket
func (pt *PaperTrader) PlaceShort(_ context.Context, assessment risk.Assessment) error {
	if !assessment.Accepted {
		return fmt.Errorf("refusing to place a rejected assessment for %s", assessment.Symbol)
	}

	order := PaperOrder{
		Symbol:   assessment.Symbol,
		Action:   "open_short",
		Entry:    assessment.Entry,
		Stop:     assessment.Stop,
		Target:   assessment.Target,
		Size:     assessment.Size,
		IssuedAt: time.Now(),
	}

	pt.mu.Lock()
	pt.orders = append(pt.orders, order)
	pt.mu.Unlock()

	pt.logger.Info().
		Str("symbol", assessment.Symbol).
		Float64("entry", assessment.Entry).
		Float64("stop", assessment.Stop).
		Float64("target", assessment.Target).
		Float64("size", assessment.Size).
		Float64("reward_risk", assessment.RewardRisk).
		Msg("Paper short placed")
	return nil
}

// ClosePosition records a simulated market close
func (pt *PaperTrader) ClosePosition(_ context.Context, symbol, reason string) error {
	order := PaperOrder{
		Symbol:   symbol,
		Action:   "close",
		Reason:   reason,
		IssuedAt: time.Now(),
	}

	pt.mu.Lock()
	pt.orders = append(pt.orders, order)
	pt.mu.Unlock()

	pt.logger.Info().
		Str("symbol", symbol).
		Str("reason", reason).
		Msg("Paper position closed")
	return nil
}

// Orders returns a copy of everything recorded so far
func (pt *PaperTrader) Orders() []PaperOrder {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	out := make([]PaperOrder, len(pt.orders))
	copy(out, pt.orders)
	return out
}
