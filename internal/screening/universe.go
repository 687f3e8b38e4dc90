package screening

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"okx-short-bot/internal/logging"
	"okx-short-bot/internal/okx"
)

// fallbackSymbols keeps the bot scanning liquid names when the ticker
// endpoint is down at startup
var fallbackSymbols = []string{
	"ETH-USDT-SWAP",
	"SOL-USDT-SWAP",
	"XRP-USDT-SWAP",
	"DOGE-USDT-SWAP",
	"ADA-USDT-SWAP",
	"LINK-USDT-SWAP",
	"AVAX-USDT-SWAP",
	"LTC-USDT-SWAP",
}

// TickerSource supplies 24h tickers, satisfied by the OKX client
type TickerSource interface {
	GetTickers(ctx context.Context, instType string) ([]okx.Ticker, error)
}

// Universe selects the symbols worth evaluating: USDT perpetual swaps above
// a 24h volume floor, reference asset excluded, ranked by volume, capped at
// a maximum count.
type Universe struct {
	source       TickerSource
	minVolumeUSD float64
	maxSymbols   int
	exclude      string
	logger       zerolog.Logger
}

// NewUniverse creates a symbol universe filter
func NewUniverse(source TickerSource, minVolumeUSD float64, maxSymbols int, exclude string) *Universe {
	if maxSymbols <= 0 {
		maxSymbols = 200
	}
	return &Universe{
		source:       source,
		minVolumeUSD: minVolumeUSD,
		maxSymbols:   maxSymbols,
		exclude:      exclude,
		logger:       logging.WithComponent("universe"),
	}
}

// Eligible returns the ranked symbol list for this cycle. A ticker fetch
// failure falls back to the static list so the loop keeps running.
func (u *Universe) Eligible(ctx context.Context) []string {
	tickers, err := u.source.GetTickers(ctx, "SWAP")
	if err != nil {
		u.logger.Warn().Err(err).Msg("Ticker fetch failed, using fallback universe")
		return append([]string(nil), fallbackSymbols...)
	}

	eligible := make([]okx.Ticker, 0, len(tickers))
	for _, tk := range tickers {
		if !strings.HasSuffix(tk.Symbol, "-USDT-SWAP") {
			continue
		}
		if tk.Symbol == u.exclude {
			continue
		}
		if tk.VolumeUSD24h < u.minVolumeUSD {
			continue
		}
		eligible = append(eligible, tk)
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].VolumeUSD24h > eligible[j].VolumeUSD24h
	})
	if len(eligible) > u.maxSymbols {
		eligible = eligible[:u.maxSymbols]
	}

	symbols := make([]string, len(eligible))
	for i, tk := range eligible {
		symbols[i] = tk.Symbol
	}
	return symbols
}
