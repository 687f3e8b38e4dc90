package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the top-level, strongly-typed configuration. It is loaded once at
// startup and validated before any component is constructed; an invalid
// configuration aborts the process.
type Config struct {
	BotConfig      BotConfig      `json:"bot"`
	ExchangeConfig ExchangeConfig `json:"exchange"`
	RiskConfig     RiskConfig     `json:"risk"`
	FiltersConfig  FiltersConfig  `json:"filters"`
	ScheduleConfig ScheduleConfig `json:"schedule"`
	LoggingConfig  LoggingConfig  `json:"logging"`
	DatabaseConfig DatabaseConfig `json:"database"`
	RedisConfig    RedisConfig    `json:"redis"`
	VaultConfig    VaultConfig    `json:"vault"`
	ServerConfig   ServerConfig   `json:"server"`
}

// BotConfig holds evaluation-loop settings
type BotConfig struct {
	Timeframe           string `json:"timeframe"`             // Candle timeframe, e.g. "15m"
	CandleCount         int    `json:"candle_count"`          // Candles requested per symbol
	ScanIntervalSecs    int    `json:"scan_interval_secs"`    // Seconds between evaluation passes
	SymbolTimeoutSecs   int    `json:"symbol_timeout_secs"`   // Per-symbol evaluation budget
	MaxSymbols          int    `json:"max_symbols"`           // Cap on symbols per pass
	DryRun              bool   `json:"dry_run"`               // Paper trading without real orders
	SingleScan          bool   `json:"single_scan"`           // Run one pass and exit
}

// ExchangeConfig holds OKX connectivity settings
type ExchangeConfig struct {
	BaseURL        string `json:"base_url"`
	WSPublicURL    string `json:"ws_public_url"`
	APIKey         string `json:"api_key"`
	APISecret      string `json:"api_secret"`
	Passphrase     string `json:"passphrase"`
	TimeoutSecs    int    `json:"timeout_secs"`
	RetryAttempts  int    `json:"retry_attempts"`
	RetryBaseMSecs int    `json:"retry_base_msecs"`
}

// RiskConfig holds risk validation and position life-cycle settings
type RiskConfig struct {
	Capital             float64 `json:"capital"`                // Account capital for sizing (paper mode)
	MaxRiskPercent      float64 `json:"max_risk_percent"`       // % of capital risked per trade
	MinRewardRisk       float64 `json:"min_reward_risk"`        // Required R/R for standard signals
	PremiumRewardRisk   float64 `json:"premium_reward_risk"`    // Relaxed R/R for premium signals
	Leverage            float64 `json:"leverage"`
	MaxOpenPositions    int     `json:"max_open_positions"`
	MaxDailyTrades      int     `json:"max_daily_trades"`
	MaxDailyLoss        float64 `json:"max_daily_loss"`         // Realized loss cap per day (quote currency)
	PositionLifetimeHrs float64 `json:"position_lifetime_hrs"`  // TIMEOUT threshold
	EmergencyCorr       float64 `json:"emergency_corr"`         // CORRELATION_SPIKE threshold
	ATRStopMultiplier   float64 `json:"atr_stop_multiplier"`
	ATRTargetMultiplier float64 `json:"atr_target_multiplier"`
}

// FiltersConfig holds market-structure detection and screening thresholds
type FiltersConfig struct {
	MinGapPercent      float64 `json:"min_gap_percent"`      // Minimum FVG size as % of close
	MaxGapAgeBars      int     `json:"max_gap_age_bars"`     // Gaps older than this are stale
	MinTrendTouches    int     `json:"min_trend_touches"`    // Swing lows required for a trendline
	MinTrendAngle      float64 `json:"min_trend_angle"`      // Degrees
	BreakoutTolerance  float64 `json:"breakout_tolerance"`   // % of projected value
	RetestBars         int     `json:"retest_bars"`          // Lookback for retest detection
	TrendLookbackBars  int     `json:"trend_lookback_bars"`  // Window for trend classification
	MaxCorrelation     float64 `json:"max_correlation"`      // Entry filter vs reference asset
	ReferenceSymbol    string  `json:"reference_symbol"`     // e.g. "BTC-USDT-SWAP"
	MinVolumeUSD       float64 `json:"min_volume_usd"`       // 24h volume floor for the universe
	WickRatioThreshold float64 `json:"wick_ratio_threshold"` // Wick/body ratio flagged as manipulation
	MaxWickAnomalies   int     `json:"max_wick_anomalies"`   // Anomalies tolerated before a ban
	BanDurationHrs     float64 `json:"ban_duration_hrs"`     // How long a banned symbol stays out
}

// NewsWindow is a recurring quiet period during which open positions are
// force-closed and no new entries are taken.
type NewsWindow struct {
	Label    string   `json:"label"`
	StartUTC string   `json:"start_utc"` // "HH:MM"
	EndUTC   string   `json:"end_utc"`   // "HH:MM"
	Weekdays []string `json:"weekdays"`  // Empty = every day
	Symbols  []string `json:"symbols"`   // Empty = all symbols
}

// ScheduleConfig holds the economic-calendar quiet windows
type ScheduleConfig struct {
	NewsWindows []NewsWindow `json:"news_windows"`
}

// LoggingConfig controls the structured logger
type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	Output     string `json:"output"`      // stdout, stderr, or file path
	JSONFormat bool   `json:"json_format"` // Console writer when false
}

// DatabaseConfig holds the optional Postgres decision-record store
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds the optional shared-state snapshot store
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// VaultConfig holds optional HashiCorp Vault credential sourcing
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
}

// ServerConfig holds the read-only status API settings
type ServerConfig struct {
	Enabled        bool   `json:"enabled"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	AllowedOrigins string `json:"allowed_origins"`
}

// Load reads config.json (when present), applies environment overrides and
// defaults, and validates the result.
func Load() (*Config, error) {
	return LoadFrom("config.json")
}

// LoadFrom is Load with an explicit file path, used by tests.
func LoadFrom(path string) (*Config, error) {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	// A missing file means defaults; an unreadable or malformed file must
	// abort rather than start the bot with values the operator never chose.
	cfg, err := loadFromFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = &Config{}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.ExchangeConfig.APIKey = getEnvOrDefault("OKX_API_KEY", cfg.ExchangeConfig.APIKey)
	cfg.ExchangeConfig.APISecret = getEnvOrDefault("OKX_API_SECRET", cfg.ExchangeConfig.APISecret)
	cfg.ExchangeConfig.Passphrase = getEnvOrDefault("OKX_PASSPHRASE", cfg.ExchangeConfig.Passphrase)
	cfg.ExchangeConfig.BaseURL = getEnvOrDefault("OKX_BASE_URL", cfg.ExchangeConfig.BaseURL)

	if v := os.Getenv("BOT_DRY_RUN"); v != "" {
		cfg.BotConfig.DryRun = v == "true"
	}
	if v := os.Getenv("BOT_SINGLE_SCAN"); v != "" {
		cfg.BotConfig.SingleScan = v == "true"
	}
	if v := os.Getenv("BOT_SCAN_INTERVAL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.BotConfig.ScanIntervalSecs = secs
		}
	}

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)

	if v := os.Getenv("DATABASE_ENABLED"); v != "" {
		cfg.DatabaseConfig.Enabled = v == "true"
	}
	cfg.DatabaseConfig.Host = getEnvOrDefault("DATABASE_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.User = getEnvOrDefault("DATABASE_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DATABASE_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DATABASE_NAME", cfg.DatabaseConfig.Database)
	if v := os.Getenv("DATABASE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.DatabaseConfig.Port = port
		}
	}

	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.RedisConfig.Enabled = v == "true"
	}
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)

	if v := os.Getenv("VAULT_ENABLED"); v != "" {
		cfg.VaultConfig.Enabled = v == "true"
	}
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
}

func applyDefaults(cfg *Config) {
	if cfg.BotConfig.Timeframe == "" {
		cfg.BotConfig.Timeframe = "15m"
	}
	if cfg.BotConfig.CandleCount <= 0 {
		cfg.BotConfig.CandleCount = 300
	}
	if cfg.BotConfig.ScanIntervalSecs <= 0 {
		cfg.BotConfig.ScanIntervalSecs = 60
	}
	if cfg.BotConfig.SymbolTimeoutSecs <= 0 {
		cfg.BotConfig.SymbolTimeoutSecs = 20
	}
	if cfg.BotConfig.MaxSymbols <= 0 {
		cfg.BotConfig.MaxSymbols = 200
	}

	if cfg.ExchangeConfig.BaseURL == "" {
		cfg.ExchangeConfig.BaseURL = "https://www.okx.com"
	}
	if cfg.ExchangeConfig.WSPublicURL == "" {
		cfg.ExchangeConfig.WSPublicURL = "wss://ws.okx.com:8443/ws/v5/public"
	}
	if cfg.ExchangeConfig.TimeoutSecs <= 0 {
		cfg.ExchangeConfig.TimeoutSecs = 10
	}
	if cfg.ExchangeConfig.RetryAttempts <= 0 {
		cfg.ExchangeConfig.RetryAttempts = 3
	}
	if cfg.ExchangeConfig.RetryBaseMSecs <= 0 {
		cfg.ExchangeConfig.RetryBaseMSecs = 1000
	}

	if cfg.RiskConfig.Capital <= 0 {
		cfg.RiskConfig.Capital = 1000
	}
	if cfg.RiskConfig.MaxRiskPercent <= 0 {
		cfg.RiskConfig.MaxRiskPercent = 5.0
	}
	if cfg.RiskConfig.MinRewardRisk <= 0 {
		cfg.RiskConfig.MinRewardRisk = 4.0
	}
	if cfg.RiskConfig.PremiumRewardRisk <= 0 {
		cfg.RiskConfig.PremiumRewardRisk = 3.0
	}
	if cfg.RiskConfig.Leverage <= 0 {
		cfg.RiskConfig.Leverage = 10
	}
	if cfg.RiskConfig.MaxOpenPositions <= 0 {
		cfg.RiskConfig.MaxOpenPositions = 5
	}
	if cfg.RiskConfig.MaxDailyTrades <= 0 {
		cfg.RiskConfig.MaxDailyTrades = 20
	}
	if cfg.RiskConfig.MaxDailyLoss <= 0 {
		cfg.RiskConfig.MaxDailyLoss = 100.0
	}
	if cfg.RiskConfig.PositionLifetimeHrs <= 0 {
		cfg.RiskConfig.PositionLifetimeHrs = 24
	}
	if cfg.RiskConfig.EmergencyCorr <= 0 {
		cfg.RiskConfig.EmergencyCorr = 0.5
	}
	if cfg.RiskConfig.ATRStopMultiplier <= 0 {
		cfg.RiskConfig.ATRStopMultiplier = 1.0
	}
	if cfg.RiskConfig.ATRTargetMultiplier <= 0 {
		cfg.RiskConfig.ATRTargetMultiplier = 4.0
	}

	if cfg.FiltersConfig.MinGapPercent <= 0 {
		cfg.FiltersConfig.MinGapPercent = 0.3
	}
	if cfg.FiltersConfig.MaxGapAgeBars <= 0 {
		cfg.FiltersConfig.MaxGapAgeBars = 50
	}
	if cfg.FiltersConfig.MinTrendTouches <= 0 {
		cfg.FiltersConfig.MinTrendTouches = 3
	}
	if cfg.FiltersConfig.MinTrendAngle <= 0 {
		cfg.FiltersConfig.MinTrendAngle = 5.0
	}
	if cfg.FiltersConfig.BreakoutTolerance <= 0 {
		cfg.FiltersConfig.BreakoutTolerance = 0.1
	}
	if cfg.FiltersConfig.RetestBars <= 0 {
		cfg.FiltersConfig.RetestBars = 10
	}
	if cfg.FiltersConfig.TrendLookbackBars <= 0 {
		cfg.FiltersConfig.TrendLookbackBars = 50
	}
	if cfg.FiltersConfig.MaxCorrelation <= 0 {
		cfg.FiltersConfig.MaxCorrelation = 0.2
	}
	if cfg.FiltersConfig.ReferenceSymbol == "" {
		cfg.FiltersConfig.ReferenceSymbol = "BTC-USDT-SWAP"
	}
	if cfg.FiltersConfig.MinVolumeUSD <= 0 {
		cfg.FiltersConfig.MinVolumeUSD = 5_000_000
	}
	if cfg.FiltersConfig.WickRatioThreshold <= 0 {
		cfg.FiltersConfig.WickRatioThreshold = 3.0
	}
	if cfg.FiltersConfig.MaxWickAnomalies <= 0 {
		cfg.FiltersConfig.MaxWickAnomalies = 5
	}
	if cfg.FiltersConfig.BanDurationHrs <= 0 {
		cfg.FiltersConfig.BanDurationHrs = 24
	}

	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "info"
	}
	if cfg.LoggingConfig.Output == "" {
		cfg.LoggingConfig.Output = "stdout"
	}

	if cfg.DatabaseConfig.Port <= 0 {
		cfg.DatabaseConfig.Port = 5432
	}
	if cfg.DatabaseConfig.SSLMode == "" {
		cfg.DatabaseConfig.SSLMode = "disable"
	}
	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}
	if cfg.VaultConfig.MountPath == "" {
		cfg.VaultConfig.MountPath = "secret"
	}
	if cfg.VaultConfig.SecretPath == "" {
		cfg.VaultConfig.SecretPath = "okx-short-bot/exchange"
	}
	if cfg.ServerConfig.Port <= 0 {
		cfg.ServerConfig.Port = 8090
	}
	if cfg.ServerConfig.AllowedOrigins == "" {
		cfg.ServerConfig.AllowedOrigins = "*"
	}
}

// Validate rejects configurations that would make the decision pipeline
// numerically unsound. Called once at load; components assume these hold.
func (c *Config) Validate() error {
	if c.RiskConfig.MaxRiskPercent > 100 {
		return fmt.Errorf("risk.max_risk_percent must be <= 100, got %.2f", c.RiskConfig.MaxRiskPercent)
	}
	if c.RiskConfig.MinRewardRisk < 1 {
		return fmt.Errorf("risk.min_reward_risk must be >= 1, got %.2f", c.RiskConfig.MinRewardRisk)
	}
	if c.RiskConfig.PremiumRewardRisk > c.RiskConfig.MinRewardRisk {
		return fmt.Errorf("risk.premium_reward_risk (%.2f) must not exceed min_reward_risk (%.2f)",
			c.RiskConfig.PremiumRewardRisk, c.RiskConfig.MinRewardRisk)
	}
	if c.RiskConfig.Leverage < 1 || c.RiskConfig.Leverage > 125 {
		return fmt.Errorf("risk.leverage must be in [1,125], got %.1f", c.RiskConfig.Leverage)
	}
	if c.RiskConfig.EmergencyCorr <= 0 || c.RiskConfig.EmergencyCorr > 1 {
		return fmt.Errorf("risk.emergency_corr must be in (0,1], got %.2f", c.RiskConfig.EmergencyCorr)
	}
	if c.FiltersConfig.MaxCorrelation <= 0 || c.FiltersConfig.MaxCorrelation > 1 {
		return fmt.Errorf("filters.max_correlation must be in (0,1], got %.2f", c.FiltersConfig.MaxCorrelation)
	}
	if c.FiltersConfig.MinTrendTouches < 2 {
		return fmt.Errorf("filters.min_trend_touches must be >= 2, got %d", c.FiltersConfig.MinTrendTouches)
	}
	for _, w := range c.ScheduleConfig.NewsWindows {
		if _, err := parseClock(w.StartUTC); err != nil {
			return fmt.Errorf("schedule window %q: bad start_utc: %w", w.Label, err)
		}
		if _, err := parseClock(w.EndUTC); err != nil {
			return fmt.Errorf("schedule window %q: bad end_utc: %w", w.Label, err)
		}
	}
	return nil
}

// ScanInterval returns the evaluation-loop interval as a duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.BotConfig.ScanIntervalSecs) * time.Second
}

// SymbolTimeout returns the per-symbol evaluation budget as a duration.
func (c *Config) SymbolTimeout() time.Duration {
	return time.Duration(c.BotConfig.SymbolTimeoutSecs) * time.Second
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
