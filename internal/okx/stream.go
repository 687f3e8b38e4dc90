package okx

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"okx-short-bot/internal/logging"
)

// PriceStream maintains a websocket subscription to the OKX public tickers
// channel and exposes the latest traded price per symbol. It exists so the
// position monitor can see fills between REST evaluation cycles; the
// evaluation loop itself never blocks on the stream.
type PriceStream struct {
	url        string
	mu         sync.RWMutex
	prices     map[string]float64
	subscribed map[string]bool
	conn       *websocket.Conn
	connMu     sync.Mutex
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

type wsRequest struct {
	Op   string      `json:"op"`
	Args []wsChannel `json:"args"`
}

type wsChannel struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type wsTickerMessage struct {
	Arg  wsChannel `json:"arg"`
	Data []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
	} `json:"data"`
}

// NewPriceStream creates a stream for the given public websocket URL.
func NewPriceStream(url string) *PriceStream {
	return &PriceStream{
		url:        url,
		prices:     make(map[string]float64),
		subscribed: make(map[string]bool),
		stopChan:   make(chan struct{}),
	}
}

// Start connects and begins reading ticker updates. Reconnects with a fixed
// delay until Stop is called.
func (s *PriceStream) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop closes the stream and waits for the reader to exit.
func (s *PriceStream) Stop() {
	close(s.stopChan)
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()
}

// Subscribe registers interest in a symbol's ticker updates.
func (s *PriceStream) Subscribe(symbol string) {
	s.mu.Lock()
	already := s.subscribed[symbol]
	s.subscribed[symbol] = true
	s.mu.Unlock()

	if already {
		return
	}
	s.send(wsRequest{Op: "subscribe", Args: []wsChannel{{Channel: "tickers", InstID: symbol}}})
}

// Unsubscribe drops a symbol's subscription, typically after its position closes.
func (s *PriceStream) Unsubscribe(symbol string) {
	s.mu.Lock()
	delete(s.subscribed, symbol)
	delete(s.prices, symbol)
	s.mu.Unlock()

	s.send(wsRequest{Op: "unsubscribe", Args: []wsChannel{{Channel: "tickers", InstID: symbol}}})
}

// LastPrice returns the most recent traded price for the symbol, with ok
// false when no update has arrived yet.
func (s *PriceStream) LastPrice(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[symbol]
	return price, ok
}

func (s *PriceStream) run(ctx context.Context) {
	defer s.wg.Done()
	logger := logging.WithComponent("price_stream")

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := s.connect(); err != nil {
			logger.Warn().Err(err).Msg("websocket connect failed, retrying")
			select {
			case <-time.After(5 * time.Second):
				continue
			case <-s.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}

		s.resubscribe()
		s.readLoop(logger)
	}
}

func (s *PriceStream) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return err
	}
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	return nil
}

// resubscribe replays subscriptions after a reconnect.
func (s *PriceStream) resubscribe() {
	s.mu.RLock()
	args := make([]wsChannel, 0, len(s.subscribed))
	for symbol := range s.subscribed {
		args = append(args, wsChannel{Channel: "tickers", InstID: symbol})
	}
	s.mu.RUnlock()

	if len(args) > 0 {
		s.send(wsRequest{Op: "subscribe", Args: args})
	}
}

// readLoop consumes ticker messages until the connection drops.
func (s *PriceStream) readLoop(logger zerolog.Logger) {
	for {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopChan:
			default:
				logger.Warn().Err(err).Msg("websocket read failed, reconnecting")
			}
			conn.Close()
			return
		}

		var msg wsTickerMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Arg.Channel != "tickers" {
			continue
		}

		s.mu.Lock()
		for _, tick := range msg.Data {
			if price := parseFloat(tick.Last); price > 0 {
				s.prices[tick.InstID] = price
			}
		}
		s.mu.Unlock()
	}
}

// send marshals and writes a request if connected; silently dropped otherwise
// (the resubscribe pass after connect covers missed subscriptions).
func (s *PriceStream) send(req wsRequest) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return
	}
	data, err := json.Marshal(req)
	if err != nil {
		return
	}
	_ = s.conn.WriteMessage(websocket.TextMessage, data)
}
