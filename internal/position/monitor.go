package position

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"okx-short-bot/internal/executor"
	"okx-short-bot/internal/logging"
)

// State is one node of the position life cycle:
// OPEN -> MONITORING -> {TP_HIT, SL_HIT, TIMEOUT, CORRELATION_SPIKE,
// NEWS_STOP} -> CLOSED. MONITORING re-enters itself every cycle; the middle
// states are mutually exclusive outcomes of one closing event.
type State string

const (
	StateOpen             State = "OPEN"
	StateMonitoring       State = "MONITORING"
	StateTPHit            State = "TP_HIT"
	StateSLHit            State = "SL_HIT"
	StateTimeout          State = "TIMEOUT"
	StateCorrelationSpike State = "CORRELATION_SPIKE"
	StateNewsStop         State = "NEWS_STOP"
	StateClosed           State = "CLOSED"
)

// Terminal reports whether the state is a closing outcome
func (s State) Terminal() bool {
	switch s {
	case StateTPHit, StateSLHit, StateTimeout, StateCorrelationSpike, StateNewsStop, StateClosed:
		return true
	}
	return false
}

// Position is one open short. Mutated only by the monitor (correlation and
// elapsed-time updates) and by fill reports; at most one per symbol.
type Position struct {
	Symbol          string    `json:"symbol"`
	Side            string    `json:"side"` // Always SHORT
	Entry           float64   `json:"entry"`
	Size            float64   `json:"size"`
	Target          float64   `json:"target"`
	Stop            float64   `json:"stop"`
	OpenedAt        time.Time `json:"opened_at"`
	State           State     `json:"state"`
	Correlation     float64   `json:"correlation"`
	ElapsedHours    float64   `json:"elapsed_hours"`
	Emergency       bool      `json:"emergency"`
	EmergencyReason string    `json:"emergency_reason,omitempty"`
}

// NewsCalendar answers whether the symbol sits inside a configured quiet
// window. Satisfied by internal/calendar.
type NewsCalendar interface {
	ActiveWindow(symbol string, at time.Time) string
}

// Monitor life-cycles open positions. Locally computed triggers issue a
// market-close instruction through the executor; the monitor itself never
// talks to the exchange.
type Monitor struct {
	emergencyCorrelation float64
	lifetime             time.Duration
	exec                 executor.Executor
	calendar             NewsCalendar
	logger               zerolog.Logger
}

// NewMonitor creates a position monitor
func NewMonitor(emergencyCorrelation float64, lifetime time.Duration, exec executor.Executor, calendar NewsCalendar) *Monitor {
	if emergencyCorrelation <= 0 {
		emergencyCorrelation = 0.5
	}
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	return &Monitor{
		emergencyCorrelation: emergencyCorrelation,
		lifetime:             lifetime,
		exec:                 exec,
		calendar:             calendar,
		logger:               logging.WithComponent("position_monitor"),
	}
}

// Evaluate runs one monitoring cycle. Triggers in priority order, first
// match wins: correlation spike (independent of P&L and elapsed time), then
// lifetime timeout, then an active news window. On a trigger the close
// instruction is issued before the state commits; if issuing fails the
// position stays MONITORING and the next cycle retries. Returns the state
// after the cycle.
func (m *Monitor) Evaluate(ctx context.Context, pos *Position, correlation float64, now time.Time) (State, error) {
	if pos.State.Terminal() {
		return pos.State, nil
	}

	pos.Correlation = correlation
	pos.ElapsedHours = now.Sub(pos.OpenedAt).Hours()
	pos.State = StateMonitoring

	trigger, reason := m.trigger(pos, correlation, now)
	if trigger == "" {
		return StateMonitoring, nil
	}

	if err := m.exec.ClosePosition(ctx, pos.Symbol, string(trigger)); err != nil {
		m.logger.Warn().
			Str("symbol", pos.Symbol).
			Str("trigger", string(trigger)).
			Err(err).
			Msg("Close instruction failed, retrying next cycle")
		return StateMonitoring, err
	}

	pos.State = trigger
	pos.Emergency = trigger == StateCorrelationSpike
	pos.EmergencyReason = reason

	m.logger.Info().
		Str("symbol", pos.Symbol).
		Str("trigger", string(trigger)).
		Str("reason", reason).
		Float64("correlation", correlation).
		Float64("elapsed_hours", pos.ElapsedHours).
		Msg("Position close issued")
	return trigger, nil
}

func (m *Monitor) trigger(pos *Position, correlation float64, now time.Time) (State, string) {
	if math.Abs(correlation) > m.emergencyCorrelation {
		return StateCorrelationSpike, "correlation to reference exceeded emergency threshold"
	}
	if now.Sub(pos.OpenedAt) > m.lifetime {
		return StateTimeout, "position lifetime exceeded"
	}
	if m.calendar != nil {
		if label := m.calendar.ActiveWindow(pos.Symbol, now); label != "" {
			return StateNewsStop, "news window active: " + label
		}
	}
	return "", ""
}

// RecordFill transitions to TP_HIT or SL_HIT when the execution collaborator
// reports a filled target or stop order. This path is externally driven, not
// computed locally.
func (m *Monitor) RecordFill(pos *Position, takeProfit bool) State {
	if pos.State.Terminal() {
		return pos.State
	}
	if takeProfit {
		pos.State = StateTPHit
	} else {
		pos.State = StateSLHit
	}
	return pos.State
}
