package okx

import "time"

// Candle represents a single OHLCV bar. Sequences are ordered oldest-first
// and monotonic in timestamp; the exchange may return fewer bars than
// requested early in a session.
type Candle struct {
	Timestamp int64   `json:"timestamp"` // Bar open time, Unix milliseconds
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Time returns the bar open time.
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp)
}

// Ticker represents 24h ticker statistics for one instrument.
type Ticker struct {
	Symbol       string  `json:"inst_id"`
	LastPrice    float64 `json:"last_price"`
	VolumeUSD24h float64 `json:"volume_usd_24h"`
}

// apiResponse is the OKX v5 envelope: code "0" on success.
type apiResponse struct {
	Code string              `json:"code"`
	Msg  string              `json:"msg"`
	Data []map[string]string `json:"data"`
}

// candleResponse carries candle rows, which OKX encodes as string arrays:
// [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm], newest first.
type candleResponse struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}
