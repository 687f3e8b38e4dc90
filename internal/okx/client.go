// Package okx implements the market-data provider against the OKX v5 public
// API. All calls are context-bounded and wrapped in the injected retry
// policy; a symbol whose fetch keeps failing surfaces an error to the caller,
// which skips it for the cycle.
package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"okx-short-bot/internal/retry"
)

// Client is an OKX v5 REST client for public market data.
type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
}

// NewClient creates a client with the given base URL, request timeout and
// retry policy.
func NewClient(baseURL string, timeout time.Duration, policy retry.Policy) *Client {
	if baseURL == "" {
		baseURL = "https://www.okx.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		policy:     policy,
	}
}

// GetCandles fetches up to limit bars for the instrument, oldest first.
func (c *Client) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error) {
	params := url.Values{}
	params.Set("instId", symbol)
	params.Set("bar", timeframe)
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/api/v5/market/candles?%s", c.baseURL, params.Encode())

	var candles []Candle
	err := c.policy.Do(ctx, func() error {
		body, err := c.get(ctx, endpoint)
		if err != nil {
			return err
		}

		var resp candleResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("error parsing candles: %w", err)
		}
		if resp.Code != "0" {
			return fmt.Errorf("API error %s: %s", resp.Code, resp.Msg)
		}

		candles, err = parseCandles(resp.Data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return candles, nil
}

// GetTickers fetches 24h ticker statistics for all instruments of the given
// type (e.g. "SWAP").
func (c *Client) GetTickers(ctx context.Context, instType string) ([]Ticker, error) {
	endpoint := fmt.Sprintf("%s/api/v5/market/tickers?instType=%s", c.baseURL, url.QueryEscape(instType))

	var tickers []Ticker
	err := c.policy.Do(ctx, func() error {
		body, err := c.get(ctx, endpoint)
		if err != nil {
			return err
		}

		var resp apiResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("error parsing tickers: %w", err)
		}
		if resp.Code != "0" {
			return fmt.Errorf("API error %s: %s", resp.Code, resp.Msg)
		}

		tickers = tickers[:0]
		for _, row := range resp.Data {
			tickers = append(tickers, Ticker{
				Symbol:       row["instId"],
				LastPrice:    parseFloat(row["last"]),
				VolumeUSD24h: parseFloat(row["volCcy24h"]),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tickers, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// parseCandles converts OKX rows (newest first) into an oldest-first,
// timestamp-monotonic sequence. Rows that fail to parse are dropped.
func parseCandles(rows [][]string) ([]Candle, error) {
	candles := make([]Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		ts, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		candles = append(candles, Candle{
			Timestamp: ts,
			Open:      parseFloat(row[1]),
			High:      parseFloat(row[2]),
			Low:       parseFloat(row[3]),
			Close:     parseFloat(row[4]),
			Volume:    parseFloat(row[5]),
		})
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})

	return candles, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
