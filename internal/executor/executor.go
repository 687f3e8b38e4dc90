package executor

import (
	"context"

	"okx-short-bot/internal/risk"
)

// Executor places and closes short positions. The pipeline never talks to
// the exchange directly; it emits instructions through this interface so
// paper trading and live trading are interchangeable.
type Executor interface {
	// PlaceShort opens a market short with its bracket (stop above,
	// target below) from an accepted assessment.
	PlaceShort(ctx context.Context, assessment risk.Assessment) error
	// ClosePosition market-closes the symbol's open position. The reason
	// travels with the instruction for the decision record.
	ClosePosition(ctx context.Context, symbol, reason string) error
}
