package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

// TestStateStoreMemoryOnly verifies snapshots round-trip without Redis
func TestStateStoreMemoryOnly(t *testing.T) {
	store := NewStateStore(nil)
	ctx := context.Background()

	if store.Available() {
		t.Error("Expected Redis unavailable with a nil client")
	}

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	store.SaveBans(ctx, map[string]time.Time{"ETH-USDT-SWAP": expiry})

	bans := store.LoadBans(ctx)
	if got, ok := bans["ETH-USDT-SWAP"]; !ok || !got.Equal(expiry) {
		t.Errorf("Ban snapshot did not round-trip: %+v", bans)
	}

	type snapshot struct {
		Symbol string  `json:"symbol"`
		Entry  float64 `json:"entry"`
	}
	store.SavePositions(ctx, map[string]any{
		"SOL-USDT-SWAP": snapshot{Symbol: "SOL-USDT-SWAP", Entry: 150},
	})

	positions := store.LoadPositions(ctx)
	payload, ok := positions["SOL-USDT-SWAP"]
	if !ok {
		t.Fatalf("Position snapshot missing: %+v", positions)
	}
	var restored snapshot
	if err := json.Unmarshal(payload, &restored); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if restored.Entry != 150 {
		t.Errorf("Expected entry 150, got %f", restored.Entry)
	}
}

// TestStateStoreEmptyLoads verifies missing snapshots come back empty
func TestStateStoreEmptyLoads(t *testing.T) {
	store := NewStateStore(nil)
	ctx := context.Background()

	if got := store.LoadBans(ctx); len(got) != 0 {
		t.Errorf("Expected no bans, got %+v", got)
	}
	if got := store.LoadPositions(ctx); len(got) != 0 {
		t.Errorf("Expected no positions, got %+v", got)
	}
}
