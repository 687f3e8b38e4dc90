package screening

import (
	"math"
	"sync"
	"time"

	"okx-short-bot/internal/okx"
)

const defaultWickWindow = 50

// WickFilter flags symbols whose recent candles show manipulation-shaped
// wicks: a total wick many times larger than the body. Too many anomalies in
// the window and the symbol is not worth trading.
type WickFilter struct {
	ratioThreshold float64
	maxAnomalies   int
	window         int
}

// NewWickFilter creates a wick-anomaly filter
func NewWickFilter(ratioThreshold float64, maxAnomalies int) *WickFilter {
	if ratioThreshold <= 0 {
		ratioThreshold = 3
	}
	if maxAnomalies <= 0 {
		maxAnomalies = 5
	}
	return &WickFilter{
		ratioThreshold: ratioThreshold,
		maxAnomalies:   maxAnomalies,
		window:         defaultWickWindow,
	}
}

// Suspicious counts wick anomalies over the recent window and reports
// whether the count crosses the ban threshold
func (wf *WickFilter) Suspicious(candles []okx.Candle) (bool, int) {
	window := candles
	if len(window) > wf.window {
		window = window[len(window)-wf.window:]
	}

	anomalies := 0
	for _, c := range window {
		body := math.Abs(c.Close - c.Open)
		wick := (c.High - c.Low) - body
		if wick <= 0 {
			continue
		}
		if body == 0 || wick/body > wf.ratioThreshold {
			anomalies++
		}
	}
	return anomalies >= wf.maxAnomalies, anomalies
}

// BanList tracks symbols excluded for a cooldown after a manipulation flag.
// The evaluation loop is the single writer; the mutex covers reads from the
// status API.
type BanList struct {
	duration time.Duration

	mu   sync.RWMutex
	bans map[string]time.Time // Symbol -> expiry
}

// NewBanList creates a ban list with the given cooldown
func NewBanList(duration time.Duration) *BanList {
	if duration <= 0 {
		duration = 24 * time.Hour
	}
	return &BanList{
		duration: duration,
		bans:     make(map[string]time.Time),
	}
}

// Ban excludes the symbol until now + cooldown
func (bl *BanList) Ban(symbol string, now time.Time) {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	bl.bans[symbol] = now.Add(bl.duration)
}

// Banned reports whether the symbol is still inside its cooldown
func (bl *BanList) Banned(symbol string, now time.Time) bool {
	bl.mu.RLock()
	defer bl.mu.RUnlock()
	expiry, ok := bl.bans[symbol]
	return ok && now.Before(expiry)
}

// Prune drops expired entries
func (bl *BanList) Prune(now time.Time) {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	for symbol, expiry := range bl.bans {
		if !now.Before(expiry) {
			delete(bl.bans, symbol)
		}
	}
}

// Snapshot copies the current bans for persistence
func (bl *BanList) Snapshot() map[string]time.Time {
	bl.mu.RLock()
	defer bl.mu.RUnlock()
	out := make(map[string]time.Time, len(bl.bans))
	for symbol, expiry := range bl.bans {
		out[symbol] = expiry
	}
	return out
}

// Restore loads persisted bans, keeping only those still in the future
func (bl *BanList) Restore(bans map[string]time.Time, now time.Time) {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	for symbol, expiry := range bans {
		if now.Before(expiry) {
			bl.bans[symbol] = expiry
		}
	}
}
