package calendar

import (
	"testing"
	"time"

	"okx-short-bot/config"
)

// TestInWindowBasics verifies clock-range, weekday and symbol matching
func TestInWindowBasics(t *testing.T) {
	cal, err := New([]config.NewsWindow{
		{Label: "fomc", StartUTC: "18:00", EndUTC: "19:30", Weekdays: []string{"Wed"}},
		{Label: "eth-upgrade", StartUTC: "06:00", EndUTC: "08:00", Symbols: []string{"ETH-USDT-SWAP"}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// 2026-08-19 is a Wednesday
	wed := time.Date(2026, 8, 19, 18, 30, 0, 0, time.UTC)
	if !cal.InWindow("SOL-USDT-SWAP", wed) {
		t.Error("Expected fomc window active Wednesday 18:30")
	}
	if got := cal.ActiveWindow("SOL-USDT-SWAP", wed); got != "fomc" {
		t.Errorf("Expected label fomc, got %q", got)
	}

	thu := wed.Add(24 * time.Hour)
	if cal.InWindow("SOL-USDT-SWAP", thu) {
		t.Error("Expected fomc window inactive Thursday")
	}

	upgrade := time.Date(2026, 8, 19, 7, 0, 0, 0, time.UTC)
	if !cal.InWindow("ETH-USDT-SWAP", upgrade) {
		t.Error("Expected symbol-scoped window active for ETH")
	}
	if cal.InWindow("SOL-USDT-SWAP", upgrade) {
		t.Error("Expected symbol-scoped window inactive for SOL")
	}
}

// TestWindowCrossesMidnight verifies an end before start wraps around
func TestWindowCrossesMidnight(t *testing.T) {
	cal, err := New([]config.NewsWindow{
		{Label: "rollover", StartUTC: "23:30", EndUTC: "00:30"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	day := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)
	for _, tc := range []struct {
		clock  time.Duration
		active bool
	}{
		{23*time.Hour + 45*time.Minute, true},
		{15 * time.Minute, true},
		{45 * time.Minute, false},
		{12 * time.Hour, false},
	} {
		at := day.Add(tc.clock)
		if got := cal.InWindow("ETH-USDT-SWAP", at); got != tc.active {
			t.Errorf("At %s: expected active=%v, got %v", at.Format("15:04"), tc.active, got)
		}
	}
}

// TestBadConfigRejected verifies constructor validation
func TestBadConfigRejected(t *testing.T) {
	if _, err := New([]config.NewsWindow{{Label: "x", StartUTC: "25:00", EndUTC: "26:00"}}); err == nil {
		t.Error("Expected error for an invalid clock")
	}
	if _, err := New([]config.NewsWindow{{Label: "x", StartUTC: "10:00", EndUTC: "11:00", Weekdays: []string{"Someday"}}}); err == nil {
		t.Error("Expected error for an unknown weekday")
	}
}

// TestEmptyCalendar verifies no windows means never active
func TestEmptyCalendar(t *testing.T) {
	cal, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cal.InWindow("ETH-USDT-SWAP", time.Now()) {
		t.Error("Expected empty calendar to be always inactive")
	}
}
