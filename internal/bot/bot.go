package bot

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"okx-short-bot/config"
	"okx-short-bot/internal/analysis"
	"okx-short-bot/internal/calendar"
	"okx-short-bot/internal/executor"
	"okx-short-bot/internal/logging"
	"okx-short-bot/internal/okx"
	"okx-short-bot/internal/position"
	"okx-short-bot/internal/risk"
	"okx-short-bot/internal/screening"
	"okx-short-bot/internal/signal"
	"okx-short-bot/internal/store"
)

// errSymbolBanned marks a symbol the wick filter banned during evaluation.
// The scan counts it as skipped rather than failed.
var errSymbolBanned = errors.New("symbol banned for wick anomalies")

// MarketData supplies candle windows, satisfied by the OKX client
type MarketData interface {
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]okx.Candle, error)
}

// CorrelationSource supplies the rolling correlation to the reference asset
type CorrelationSource interface {
	Correlation(ctx context.Context, symbol string) (float64, error)
}

// PriceSource supplies live mark prices between candle fetches, satisfied by
// the websocket ticker stream. Optional; open positions are subscribed for
// the duration of their life.
type PriceSource interface {
	LastPrice(symbol string) (float64, bool)
	Subscribe(symbol string)
	Unsubscribe(symbol string)
}

// ScanSummary describes the last completed evaluation pass for the status
// API
type ScanSummary struct {
	ScanID         string        `json:"scan_id"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	SymbolsScanned int           `json:"symbols_scanned"`
	SymbolsSkipped int           `json:"symbols_skipped"`
	SignalsFound   int           `json:"signals_found"`
	Accepted       int           `json:"accepted"`
	Rejected       int           `json:"rejected"`
}

// Deps bundles the collaborators the bot is wired with
type Deps struct {
	Market       MarketData
	Universe     *screening.Universe
	Correlations CorrelationSource
	Calendar     *calendar.Calendar
	Executor     executor.Executor
	Recorder     store.Recorder
	State        *store.StateStore
	Prices       PriceSource
}

// Bot runs the evaluation loop: one sequential pass per interval, open
// positions monitored strictly before new candidates. The bot is the single
// writer of the position map and the ban list.
type Bot struct {
	cfg    *config.Config
	deps   Deps
	logger zerolog.Logger

	fitter     *analysis.TrendlineFitter
	gaps       *analysis.GapDetector
	trend      *analysis.TrendClassifier
	composer   *signal.Composer
	pricer     *signal.Pricer
	validator  *risk.Validator
	monitor    *position.Monitor
	wickFilter *screening.WickFilter
	bans       *screening.BanList

	mu                sync.RWMutex
	positions         map[string]*position.Position
	tradesToday       int
	realizedLossToday float64
	dayStart          time.Time
	lastScan          ScanSummary

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New wires the pipeline from config
func New(cfg *config.Config, deps Deps) *Bot {
	filters := cfg.FiltersConfig
	riskCfg := cfg.RiskConfig

	b := &Bot{
		cfg:    cfg,
		deps:   deps,
		logger: logging.WithComponent("bot"),

		fitter:     analysis.NewTrendlineFitter(filters.MinTrendTouches, filters.MinTrendAngle),
		gaps:       analysis.NewGapDetector(filters.MinGapPercent, filters.MaxGapAgeBars),
		trend:      analysis.NewTrendClassifier(filters.TrendLookbackBars),
		composer:   signal.NewComposer(),
		pricer:     signal.NewPricer(riskCfg.ATRStopMultiplier, riskCfg.ATRTargetMultiplier),
		wickFilter: screening.NewWickFilter(filters.WickRatioThreshold, filters.MaxWickAnomalies),
		bans:       screening.NewBanList(time.Duration(filters.BanDurationHrs * float64(time.Hour))),

		validator: risk.NewValidator(risk.Config{
			MaxRiskPercent:    riskCfg.MaxRiskPercent,
			MinRewardRisk:     riskCfg.MinRewardRisk,
			PremiumRewardRisk: riskCfg.PremiumRewardRisk,
			Leverage:          riskCfg.Leverage,
			MaxOpenPositions:  riskCfg.MaxOpenPositions,
			MaxDailyTrades:    riskCfg.MaxDailyTrades,
			MaxDailyLoss:      riskCfg.MaxDailyLoss,
		}),

		positions: make(map[string]*position.Position),
		dayStart:  time.Now().UTC().Truncate(24 * time.Hour),
		stopChan:  make(chan struct{}),
	}

	b.monitor = position.NewMonitor(
		riskCfg.EmergencyCorr,
		time.Duration(riskCfg.PositionLifetimeHrs*float64(time.Hour)),
		deps.Executor,
		deps.Calendar,
	)

	return b
}

// Start restores persisted state and launches the loop
func (b *Bot) Start(ctx context.Context) {
	b.restore(ctx)

	b.wg.Add(1)
	go b.run(ctx)

	b.logger.Info().
		Dur("interval", b.cfg.ScanInterval()).
		Str("timeframe", b.cfg.BotConfig.Timeframe).
		Bool("dry_run", b.cfg.BotConfig.DryRun).
		Msg("Evaluation loop started")
}

// Stop requests cooperative shutdown and waits for the in-flight symbol to
// finish
func (b *Bot) Stop() {
	close(b.stopChan)
	b.wg.Wait()
	b.logger.Info().Msg("Evaluation loop stopped")
}

func (b *Bot) run(ctx context.Context) {
	defer b.wg.Done()

	b.runCycle(ctx)
	if b.cfg.BotConfig.SingleScan {
		return
	}

	ticker := time.NewTicker(b.cfg.ScanInterval())
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.runCycle(ctx)
		}
	}
}

// runCycle is one full sequential pass. Positions first: emergency closes
// must not wait behind new-signal scanning.
func (b *Bot) runCycle(ctx context.Context) {
	summary := ScanSummary{ScanID: uuid.New().String(), StartedAt: time.Now()}
	b.resetDailyCounters(summary.StartedAt)

	b.monitorPositions(ctx)

	if !b.stopping() {
		b.scanCandidates(ctx, &summary)
	}

	b.snapshot(ctx)

	summary.Duration = time.Since(summary.StartedAt)
	b.mu.Lock()
	b.lastScan = summary
	b.mu.Unlock()

	b.logger.Info().
		Str("scan_id", summary.ScanID).
		Int("scanned", summary.SymbolsScanned).
		Int("skipped", summary.SymbolsSkipped).
		Int("signals", summary.SignalsFound).
		Int("accepted", summary.Accepted).
		Dur("duration", summary.Duration).
		Msg("Cycle complete")
}

func (b *Bot) monitorPositions(ctx context.Context) {
	now := time.Now()
	for _, symbol := range b.openSymbols() {
		b.mu.RLock()
		pos := b.positions[symbol]
		b.mu.RUnlock()
		if pos == nil {
			continue
		}

		// The live mark crossing the bracket realizes the fill locally:
		// paper mode has no resting orders to report TP/SL back.
		if price, ok := b.lastPrice(symbol); ok {
			if hit, takeProfit := bracketCrossed(pos, price); hit {
				state := b.monitor.RecordFill(pos, takeProfit)
				b.finalizePosition(ctx, pos, state)
				continue
			}
		}

		symCtx, cancel := context.WithTimeout(ctx, b.cfg.SymbolTimeout())
		corr, err := b.deps.Correlations.Correlation(symCtx, symbol)
		if err != nil {
			b.logger.Warn().Str("symbol", symbol).Err(err).Msg("Correlation fetch failed, keeping last value")
			corr = pos.Correlation
		}

		state, err := b.monitor.Evaluate(symCtx, pos, corr, now)
		cancel()
		if err != nil {
			continue // Close failed, retried next cycle
		}

		if state.Terminal() {
			b.finalizePosition(ctx, pos, state)
		}
	}
}

// bracketCrossed reports whether the mark has crossed a short's target
// (take profit) or stop (stop loss)
func bracketCrossed(pos *position.Position, price float64) (hit, takeProfit bool) {
	if pos.Target > 0 && price <= pos.Target {
		return true, true
	}
	if pos.Stop > 0 && price >= pos.Stop {
		return true, false
	}
	return false, false
}

func (b *Bot) finalizePosition(ctx context.Context, pos *position.Position, state position.State) {
	if err := b.deps.Recorder.RecordClose(ctx, *pos, string(state)); err != nil {
		b.logger.Error().Str("symbol", pos.Symbol).Err(err).Msg("Close record failed")
	}

	// Short P&L from the live mark when the stream has one
	if price, ok := b.lastPrice(pos.Symbol); ok {
		pnl := (pos.Entry - price) * pos.Size * b.cfg.RiskConfig.Leverage
		if pnl < 0 {
			b.mu.Lock()
			b.realizedLossToday += -pnl
			b.mu.Unlock()
		}
	}

	b.mu.Lock()
	delete(b.positions, pos.Symbol)
	b.mu.Unlock()

	if b.deps.Prices != nil {
		b.deps.Prices.Unsubscribe(pos.Symbol)
	}
}

func (b *Bot) scanCandidates(ctx context.Context, summary *ScanSummary) {
	symbols := b.deps.Universe.Eligible(ctx)
	b.bans.Prune(time.Now())

	for _, symbol := range symbols {
		if b.stopping() {
			return
		}
		if b.bans.Banned(symbol, time.Now()) || b.hasPosition(symbol) {
			summary.SymbolsSkipped++
			continue
		}

		symCtx, cancel := context.WithTimeout(ctx, b.cfg.SymbolTimeout())
		err := b.evaluateSymbol(symCtx, symbol, summary)
		cancel()
		if errors.Is(err, errSymbolBanned) {
			summary.SymbolsSkipped++
			continue
		}
		if err != nil {
			// One symbol's failure never kills the pass
			b.logger.Warn().Str("symbol", symbol).Err(err).Msg("Symbol skipped")
			summary.SymbolsSkipped++
			continue
		}
		summary.SymbolsScanned++
	}
}

func (b *Bot) evaluateSymbol(ctx context.Context, symbol string, summary *ScanSummary) error {
	candles, err := b.deps.Market.GetCandles(ctx, symbol, b.cfg.BotConfig.Timeframe, b.cfg.BotConfig.CandleCount)
	if err != nil {
		return err
	}
	logger := logging.WithSymbol("bot", symbol)

	if suspicious, count := b.wickFilter.Suspicious(candles); suspicious {
		b.bans.Ban(symbol, time.Now())
		logger.Warn().Int("anomalies", count).Msg("Wick anomalies, symbol banned")
		return errSymbolBanned
	}

	trend := b.trend.Classify(candles)
	if !trend.Uptrend {
		return nil
	}

	var (
		line     *analysis.Trendline
		breakout bool
		retest   bool
	)
	if line = b.fitter.Fit(trend.SwingLows); line != nil {
		breakout = b.fitter.IsBreakout(candles, line, b.cfg.FiltersConfig.BreakoutTolerance)
		if breakout {
			retest = b.fitter.IsRetest(candles, line, b.cfg.FiltersConfig.RetestBars, b.cfg.FiltersConfig.BreakoutTolerance)
		}
	}

	gaps := b.gaps.Active(b.gaps.Detect(candles, analysis.BullishGap))

	sig := b.composer.Compose(symbol, trend, gaps, line, breakout, retest)
	if sig == nil {
		return nil
	}
	summary.SignalsFound++

	corr, err := b.deps.Correlations.Correlation(ctx, symbol)
	if err != nil {
		return err
	}
	if corr > b.cfg.FiltersConfig.MaxCorrelation || corr < -b.cfg.FiltersConfig.MaxCorrelation {
		logger.Debug().Float64("correlation", corr).Msg("Too correlated to reference, no entry")
		return nil
	}

	if b.deps.Calendar != nil {
		if label := b.deps.Calendar.ActiveWindow(symbol, time.Now()); label != "" {
			logger.Debug().Str("window", label).Msg("News window active, no entry")
			return nil
		}
	}

	if !b.pricer.Apply(sig, candles) {
		return nil
	}

	assessment := b.validator.Validate(sig, b.accountState())
	if err := b.deps.Recorder.RecordAssessment(ctx, assessment, sig.Confidence); err != nil {
		logger.Error().Err(err).Msg("Assessment record failed")
	}

	if !assessment.Accepted {
		summary.Rejected++
		logger.Info().
			Str("signal", string(sig.Type)).
			Str("reason", assessment.RejectionReason).
			Msg("Signal rejected")
		return nil
	}

	if err := b.deps.Executor.PlaceShort(ctx, assessment); err != nil {
		logger.Error().Err(err).Msg("Entry failed")
		return nil
	}

	b.mu.Lock()
	b.positions[symbol] = &position.Position{
		Symbol:   symbol,
		Side:     "SHORT",
		Entry:    assessment.Entry,
		Size:     assessment.Size,
		Target:   assessment.Target,
		Stop:     assessment.Stop,
		OpenedAt: time.Now(),
		State:    position.StateOpen,
	}
	b.tradesToday++
	b.mu.Unlock()
	summary.Accepted++

	if b.deps.Prices != nil {
		b.deps.Prices.Subscribe(symbol)
	}

	logger.Info().
		Str("signal", string(sig.Type)).
		Float64("confidence", sig.Confidence).
		Float64("entry", assessment.Entry).
		Float64("stop", assessment.Stop).
		Float64("target", assessment.Target).
		Float64("size", assessment.Size).
		Msg("Short opened")
	return nil
}

func (b *Bot) accountState() risk.AccountState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	open := make(map[string]bool, len(b.positions))
	for symbol := range b.positions {
		open[symbol] = true
	}
	return risk.AccountState{
		Capital:           b.cfg.RiskConfig.Capital,
		OpenSymbols:       open,
		OpenPositions:     len(b.positions),
		TradesToday:       b.tradesToday,
		RealizedLossToday: b.realizedLossToday,
	}
}

func (b *Bot) restore(ctx context.Context) {
	if b.deps.State == nil {
		return
	}
	now := time.Now()

	b.bans.Restore(b.deps.State.LoadBans(ctx), now)

	for symbol, payload := range b.deps.State.LoadPositions(ctx) {
		var pos position.Position
		if err := json.Unmarshal(payload, &pos); err != nil {
			b.logger.Warn().Str("symbol", symbol).Err(err).Msg("Position snapshot unreadable, dropped")
			continue
		}
		if pos.State.Terminal() {
			continue
		}
		b.positions[symbol] = &pos
		if b.deps.Prices != nil {
			b.deps.Prices.Subscribe(symbol)
		}
	}

	if len(b.positions) > 0 {
		b.logger.Info().Int("positions", len(b.positions)).Msg("Open positions restored")
	}
}

func (b *Bot) snapshot(ctx context.Context) {
	if b.deps.State == nil {
		return
	}

	b.deps.State.SaveBans(ctx, b.bans.Snapshot())

	b.mu.RLock()
	positions := make(map[string]any, len(b.positions))
	for symbol, pos := range b.positions {
		positions[symbol] = *pos
	}
	b.mu.RUnlock()
	b.deps.State.SavePositions(ctx, positions)
}

func (b *Bot) resetDailyCounters(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	b.mu.Lock()
	defer b.mu.Unlock()
	if day.After(b.dayStart) {
		b.tradesToday = 0
		b.realizedLossToday = 0
		b.dayStart = day
	}
}

func (b *Bot) openSymbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	symbols := make([]string, 0, len(b.positions))
	for symbol := range b.positions {
		symbols = append(symbols, symbol)
	}
	return symbols
}

func (b *Bot) hasPosition(symbol string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.positions[symbol]
	return ok
}

func (b *Bot) lastPrice(symbol string) (float64, bool) {
	if b.deps.Prices == nil {
		return 0, false
	}
	return b.deps.Prices.LastPrice(symbol)
}

func (b *Bot) stopping() bool {
	select {
	case <-b.stopChan:
		return true
	default:
		return false
	}
}

// Positions returns a copy of the open positions for the status API
func (b *Bot) Positions() []position.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]position.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, *pos)
	}
	return out
}

// LastScan returns the last completed pass summary
func (b *Bot) LastScan() ScanSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastScan
}

// BannedSymbols returns the current ban snapshot
func (b *Bot) BannedSymbols() map[string]time.Time {
	return b.bans.Snapshot()
}

// RiskMetrics reports the account gates for the status API
func (b *Bot) RiskMetrics() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return map[string]interface{}{
		"capital":             b.cfg.RiskConfig.Capital,
		"open_positions":      len(b.positions),
		"max_open_positions":  b.cfg.RiskConfig.MaxOpenPositions,
		"trades_today":        b.tradesToday,
		"max_daily_trades":    b.cfg.RiskConfig.MaxDailyTrades,
		"realized_loss_today": b.realizedLossToday,
		"max_daily_loss":      b.cfg.RiskConfig.MaxDailyLoss,
		"can_trade":           len(b.positions) < b.cfg.RiskConfig.MaxOpenPositions && b.tradesToday < b.cfg.RiskConfig.MaxDailyTrades,
	}
}
