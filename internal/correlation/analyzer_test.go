package correlation

import (
	"context"
	"math"
	"testing"
	"time"

	"okx-short-bot/internal/okx"
)

type fakeSource struct {
	series map[string][]okx.Candle
	calls  map[string]int
}

func (f *fakeSource) GetCandles(_ context.Context, symbol, _ string, _ int) ([]okx.Candle, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[symbol]++
	return f.series[symbol], nil
}

func candlesFromCloses(closes ...float64) []okx.Candle {
	out := make([]okx.Candle, len(closes))
	for i, c := range closes {
		out[i] = okx.Candle{Close: c}
	}
	return out
}

// TestPerfectPositiveCorrelation verifies identical return series score 1
func TestPerfectPositiveCorrelation(t *testing.T) {
	source := &fakeSource{series: map[string][]okx.Candle{
		"BTC-USDT-SWAP": candlesFromCloses(100, 102, 101, 105, 104),
		"ETH-USDT-SWAP": candlesFromCloses(10, 10.2, 10.1, 10.5, 10.4),
	}}
	analyzer := NewAnalyzer(source, "BTC-USDT-SWAP", "15m", 50, time.Minute)

	corr, err := analyzer.Correlation(context.Background(), "ETH-USDT-SWAP")
	if err != nil {
		t.Fatalf("Correlation: %v", err)
	}
	if math.Abs(corr-1) > 1e-9 {
		t.Errorf("Expected correlation 1, got %f", corr)
	}
}

// TestPerfectNegativeCorrelation verifies mirrored returns score -1
func TestPerfectNegativeCorrelation(t *testing.T) {
	// ETH returns are exactly -1x the BTC returns
	source := &fakeSource{series: map[string][]okx.Candle{
		"BTC-USDT-SWAP": candlesFromCloses(100, 101, 100, 102),  // +1%, ~-1%, +2%
		"ETH-USDT-SWAP": candlesFromCloses(100, 99, 99.9802, 97.98059604), // -1%, ~+1%, -2%
	}}
	analyzer := NewAnalyzer(source, "BTC-USDT-SWAP", "15m", 50, time.Minute)

	corr, err := analyzer.Correlation(context.Background(), "ETH-USDT-SWAP")
	if err != nil {
		t.Fatalf("Correlation: %v", err)
	}
	if corr > -0.99 {
		t.Errorf("Expected correlation near -1, got %f", corr)
	}
}

// TestReferenceWindowCached verifies one reference fetch serves many symbols
func TestReferenceWindowCached(t *testing.T) {
	source := &fakeSource{series: map[string][]okx.Candle{
		"BTC-USDT-SWAP": candlesFromCloses(100, 102, 101, 105),
		"ETH-USDT-SWAP": candlesFromCloses(10, 10.1, 10.0, 10.3),
		"SOL-USDT-SWAP": candlesFromCloses(50, 51, 49, 52),
	}}
	analyzer := NewAnalyzer(source, "BTC-USDT-SWAP", "15m", 50, time.Minute)

	for _, symbol := range []string{"ETH-USDT-SWAP", "SOL-USDT-SWAP", "ETH-USDT-SWAP"} {
		if _, err := analyzer.Correlation(context.Background(), symbol); err != nil {
			t.Fatalf("Correlation(%s): %v", symbol, err)
		}
	}
	if source.calls["BTC-USDT-SWAP"] != 1 {
		t.Errorf("Expected 1 reference fetch, got %d", source.calls["BTC-USDT-SWAP"])
	}
}

// TestReferenceSymbolIsUnity verifies the reference correlates 1 with itself
// without a fetch
func TestReferenceSymbolIsUnity(t *testing.T) {
	analyzer := NewAnalyzer(&fakeSource{}, "BTC-USDT-SWAP", "15m", 50, time.Minute)

	corr, err := analyzer.Correlation(context.Background(), "BTC-USDT-SWAP")
	if err != nil {
		t.Fatalf("Correlation: %v", err)
	}
	if corr != 1 {
		t.Errorf("Expected 1, got %f", corr)
	}
}

// TestPearsonDegenerateInputs verifies short or flat series score 0
func TestPearsonDegenerateInputs(t *testing.T) {
	if got := Pearson(nil, nil); got != 0 {
		t.Errorf("Expected 0 for empty series, got %f", got)
	}
	if got := Pearson([]float64{1}, []float64{1}); got != 0 {
		t.Errorf("Expected 0 for single points, got %f", got)
	}
	if got := Pearson([]float64{1, 1, 1}, []float64{1, 2, 3}); got != 0 {
		t.Errorf("Expected 0 for zero variance, got %f", got)
	}
}

// TestPearsonOverlappingTail verifies unequal lengths align on the tail
func TestPearsonOverlappingTail(t *testing.T) {
	long := []float64{9, -7, 1, 2, 3}
	short := []float64{1, 2, 3}
	if got := Pearson(long, short); math.Abs(got-1) > 1e-9 {
		t.Errorf("Expected 1 on the overlapping tail, got %f", got)
	}
}
