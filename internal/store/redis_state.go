package store

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"okx-short-bot/config"
	"okx-short-bot/internal/logging"
)

// Redis keys for shared-state snapshots
const (
	banListKey   = "shortbot:bans"
	positionsKey = "shortbot:positions"

	// Snapshots outlive any position lifetime by a wide margin
	stateTTL = 7 * 24 * time.Hour
)

// StateStore snapshots the ban list and open positions to Redis so a restart
// resumes where it left off. When Redis is unavailable it degrades to an
// in-memory copy and the bot keeps trading.
type StateStore struct {
	client    *redis.Client
	available atomic.Bool
	logger    zerolog.Logger

	mu        sync.RWMutex
	bans      map[string]time.Time
	positions map[string]json.RawMessage
}

// NewRedisClient builds a client from config, or nil when disabled
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewStateStore creates a snapshot store. A nil client means memory-only.
func NewStateStore(client *redis.Client) *StateStore {
	store := &StateStore{
		client:    client,
		logger:    logging.WithComponent("state_store"),
		bans:      make(map[string]time.Time),
		positions: make(map[string]json.RawMessage),
	}

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			store.logger.Warn().Err(err).Msg("Redis unavailable at startup, using in-memory snapshots")
		} else {
			store.available.Store(true)
			store.logger.Info().Msg("Redis connected")
		}
	}
	return store
}

// SaveBans snapshots the ban list
func (s *StateStore) SaveBans(ctx context.Context, bans map[string]time.Time) {
	s.mu.Lock()
	s.bans = bans
	s.mu.Unlock()

	if !s.redisUsable() {
		return
	}
	payload, err := json.Marshal(bans)
	if err != nil {
		s.logger.Error().Err(err).Msg("Ban snapshot marshal failed")
		return
	}
	if err := s.client.Set(ctx, banListKey, payload, stateTTL).Err(); err != nil {
		s.markUnavailable(err, "ban snapshot")
	}
}

// LoadBans restores the last ban snapshot, preferring Redis
func (s *StateStore) LoadBans(ctx context.Context) map[string]time.Time {
	if s.redisUsable() {
		payload, err := s.client.Get(ctx, banListKey).Bytes()
		switch {
		case err == redis.Nil:
			return map[string]time.Time{}
		case err != nil:
			s.markUnavailable(err, "ban restore")
		default:
			bans := map[string]time.Time{}
			if err := json.Unmarshal(payload, &bans); err == nil {
				return bans
			}
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]time.Time, len(s.bans))
	for symbol, expiry := range s.bans {
		out[symbol] = expiry
	}
	return out
}

// SavePositions snapshots the open positions, JSON-encoded per symbol
func (s *StateStore) SavePositions(ctx context.Context, positions map[string]any) {
	encoded := make(map[string]json.RawMessage, len(positions))
	for symbol, pos := range positions {
		payload, err := json.Marshal(pos)
		if err != nil {
			s.logger.Error().Err(err).Str("symbol", symbol).Msg("Position snapshot marshal failed")
			continue
		}
		encoded[symbol] = payload
	}

	s.mu.Lock()
	s.positions = encoded
	s.mu.Unlock()

	if !s.redisUsable() {
		return
	}
	payload, err := json.Marshal(encoded)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, positionsKey, payload, stateTTL).Err(); err != nil {
		s.markUnavailable(err, "position snapshot")
	}
}

// LoadPositions restores the last open-position snapshot as raw JSON per
// symbol; the caller unmarshals into its own position type
func (s *StateStore) LoadPositions(ctx context.Context) map[string]json.RawMessage {
	if s.redisUsable() {
		payload, err := s.client.Get(ctx, positionsKey).Bytes()
		switch {
		case err == redis.Nil:
			return map[string]json.RawMessage{}
		case err != nil:
			s.markUnavailable(err, "position restore")
		default:
			positions := map[string]json.RawMessage{}
			if err := json.Unmarshal(payload, &positions); err == nil {
				return positions
			}
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(s.positions))
	for symbol, payload := range s.positions {
		out[symbol] = payload
	}
	return out
}

// Available reports whether Redis is currently reachable
func (s *StateStore) Available() bool {
	return s.available.Load()
}

func (s *StateStore) redisUsable() bool {
	return s.client != nil && s.available.Load()
}

func (s *StateStore) markUnavailable(err error, op string) {
	s.available.Store(false)
	s.logger.Warn().Err(err).Str("op", op).Msg("Redis failed, degrading to in-memory snapshots")
}
