package correlation

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"okx-short-bot/internal/okx"
)

// CandleSource supplies candle windows, satisfied by the OKX client
type CandleSource interface {
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]okx.Candle, error)
}

// Analyzer computes the Pearson correlation of close-to-close returns
// between a symbol and the reference asset. The reference window is cached
// for one evaluation cycle so a pass over many symbols fetches it once.
type Analyzer struct {
	source    CandleSource
	reference string
	timeframe string
	window    int
	cacheTTL  time.Duration

	mu         sync.Mutex
	refReturns []float64
	refFetched time.Time
}

// NewAnalyzer creates a correlation analyzer against the reference symbol
func NewAnalyzer(source CandleSource, reference, timeframe string, window int, cacheTTL time.Duration) *Analyzer {
	if window <= 0 {
		window = 50
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Analyzer{
		source:    source,
		reference: reference,
		timeframe: timeframe,
		window:    window,
		cacheTTL:  cacheTTL,
	}
}

// Correlation returns the symbol's return correlation to the reference in
// [-1,1]. Too little overlapping data yields 0, not an error.
func (a *Analyzer) Correlation(ctx context.Context, symbol string) (float64, error) {
	if symbol == a.reference {
		return 1, nil
	}

	refReturns, err := a.referenceReturns(ctx)
	if err != nil {
		return 0, fmt.Errorf("reference window for %s: %w", a.reference, err)
	}

	candles, err := a.source.GetCandles(ctx, symbol, a.timeframe, a.window)
	if err != nil {
		return 0, fmt.Errorf("candles for %s: %w", symbol, err)
	}

	return Pearson(closeReturns(candles), refReturns), nil
}

func (a *Analyzer) referenceReturns(ctx context.Context) ([]float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.refReturns != nil && time.Since(a.refFetched) < a.cacheTTL {
		return a.refReturns, nil
	}

	candles, err := a.source.GetCandles(ctx, a.reference, a.timeframe, a.window)
	if err != nil {
		return nil, err
	}
	a.refReturns = closeReturns(candles)
	a.refFetched = time.Now()
	return a.refReturns, nil
}

// closeReturns converts a candle window into percentage close-to-close
// returns
func closeReturns(candles []okx.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (candles[i].Close-prev)/prev*100)
	}
	return out
}

// Pearson computes the correlation coefficient over the overlapping tail of
// the two series. Fewer than 2 overlapping points or zero variance yield 0.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 2 {
		return 0
	}
	x = x[len(x)-n:]
	y = y[len(y)-n:]

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}
