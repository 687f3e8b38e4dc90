package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestDefaultsApplied verifies a missing file yields a fully defaulted,
// valid configuration
func TestDefaultsApplied(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.BotConfig.Timeframe != "15m" {
		t.Errorf("Expected default timeframe 15m, got %s", cfg.BotConfig.Timeframe)
	}
	if cfg.BotConfig.ScanIntervalSecs != 60 {
		t.Errorf("Expected default scan interval 60s, got %d", cfg.BotConfig.ScanIntervalSecs)
	}
	if cfg.RiskConfig.MinRewardRisk != 4.0 {
		t.Errorf("Expected default min R/R 4.0, got %f", cfg.RiskConfig.MinRewardRisk)
	}
	if cfg.RiskConfig.EmergencyCorr != 0.5 {
		t.Errorf("Expected default emergency correlation 0.5, got %f", cfg.RiskConfig.EmergencyCorr)
	}
	if cfg.FiltersConfig.MinGapPercent != 0.3 {
		t.Errorf("Expected default min gap 0.3%%, got %f", cfg.FiltersConfig.MinGapPercent)
	}
	if cfg.FiltersConfig.ReferenceSymbol != "BTC-USDT-SWAP" {
		t.Errorf("Expected default reference symbol, got %s", cfg.FiltersConfig.ReferenceSymbol)
	}
	if cfg.ScanInterval() != 60*time.Second {
		t.Errorf("Expected 60s interval, got %s", cfg.ScanInterval())
	}
}

// TestFileValuesOverrideDefaults verifies JSON values survive defaulting
func TestFileValuesOverrideDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"bot": {"timeframe": "5m", "scan_interval_secs": 30},
		"risk": {"leverage": 5, "max_open_positions": 2},
		"filters": {"min_gap_percent": 0.5}
	}`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.BotConfig.Timeframe != "5m" {
		t.Errorf("Expected timeframe 5m, got %s", cfg.BotConfig.Timeframe)
	}
	if cfg.RiskConfig.Leverage != 5 {
		t.Errorf("Expected leverage 5, got %f", cfg.RiskConfig.Leverage)
	}
	if cfg.RiskConfig.MaxOpenPositions != 2 {
		t.Errorf("Expected 2 max positions, got %d", cfg.RiskConfig.MaxOpenPositions)
	}
	// Unset fields still get defaults
	if cfg.RiskConfig.MinRewardRisk != 4.0 {
		t.Errorf("Expected defaulted min R/R, got %f", cfg.RiskConfig.MinRewardRisk)
	}
}

// TestEnvOverrides verifies environment variables win over the file
func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `{"bot": {"scan_interval_secs": 30}}`)
	t.Setenv("BOT_SCAN_INTERVAL", "15")
	t.Setenv("OKX_API_KEY", "env-key")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.BotConfig.ScanIntervalSecs != 15 {
		t.Errorf("Expected env interval 15, got %d", cfg.BotConfig.ScanIntervalSecs)
	}
	if cfg.ExchangeConfig.APIKey != "env-key" {
		t.Errorf("Expected env API key, got %q", cfg.ExchangeConfig.APIKey)
	}
}

// TestInvalidConfigRejected verifies validation aborts the load loudly
func TestInvalidConfigRejected(t *testing.T) {
	cases := map[string]string{
		"risk percent over 100": `{"risk": {"max_risk_percent": 150}}`,
		"reward risk below 1":   `{"risk": {"min_reward_risk": 0.5}}`,
		"premium above minimum": `{"risk": {"min_reward_risk": 3, "premium_reward_risk": 4}}`,
		"bad news window clock": `{"schedule": {"news_windows": [{"label": "x", "start_utc": "25:99", "end_utc": "10:00"}]}}`,
		"correlation above 1":   `{"risk": {"emergency_corr": 1.5}}`,
	}

	for name, content := range cases {
		path := writeConfig(t, content)
		if _, err := LoadFrom(path); err == nil {
			t.Errorf("%s: expected a validation error", name)
		}
	}
}

// TestMalformedConfigRejected verifies a present-but-broken file aborts the
// load instead of silently falling back to defaults
func TestMalformedConfigRejected(t *testing.T) {
	path := writeConfig(t, `{"risk": {"leverage": `)
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("Expected an error for truncated JSON")
	}

	path = writeConfig(t, `not json at all`)
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("Expected an error for non-JSON content")
	}
}

// TestNewsWindowsValidated verifies well-formed windows load
func TestNewsWindowsValidated(t *testing.T) {
	path := writeConfig(t, `{
		"schedule": {"news_windows": [
			{"label": "fomc", "start_utc": "18:00", "end_utc": "19:30", "weekdays": ["Wed"]}
		]}
	}`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if len(cfg.ScheduleConfig.NewsWindows) != 1 || cfg.ScheduleConfig.NewsWindows[0].Label != "fomc" {
		t.Errorf("News windows not loaded: %+v", cfg.ScheduleConfig.NewsWindows)
	}
}
