package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"okx-short-bot/config"
	"okx-short-bot/internal/api"
	"okx-short-bot/internal/bot"
	"okx-short-bot/internal/calendar"
	"okx-short-bot/internal/correlation"
	"okx-short-bot/internal/executor"
	"okx-short-bot/internal/logging"
	"okx-short-bot/internal/okx"
	"okx-short-bot/internal/retry"
	"okx-short-bot/internal/screening"
	"okx-short-bot/internal/store"
	"okx-short-bot/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.Init(cfg.LoggingConfig)
	logger := logging.WithComponent("main")

	// Credentials: Vault when enabled, env/config otherwise. Public market
	// data needs none; they matter once live execution is wired.
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("Vault client failed")
	}
	creds, err := vaultClient.ExchangeCredentials(context.Background(), cfg.ExchangeConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("Exchange credentials unavailable")
	}
	if creds.APIKey == "" {
		logger.Warn().Msg("No exchange credentials, public endpoints only")
	}

	policy := retry.Policy{
		MaxAttempts: cfg.ExchangeConfig.RetryAttempts,
		BaseDelay:   time.Duration(cfg.ExchangeConfig.RetryBaseMSecs) * time.Millisecond,
		Multiplier:  2.0,
	}
	client := okx.NewClient(
		cfg.ExchangeConfig.BaseURL,
		time.Duration(cfg.ExchangeConfig.TimeoutSecs)*time.Second,
		policy,
	)

	cal, err := calendar.New(cfg.ScheduleConfig.NewsWindows)
	if err != nil {
		logger.Fatal().Err(err).Msg("News calendar invalid")
	}

	// Optional decision-record store
	var db *store.DB
	var recorder store.Recorder = store.NoopRecorder{}
	if cfg.DatabaseConfig.Enabled {
		db, err = store.NewDB(context.Background(), cfg.DatabaseConfig)
		if err != nil {
			logger.Fatal().Err(err).Msg("Decision store failed")
		}
		defer db.Close()
		recorder = db
	}

	state := store.NewStateStore(store.NewRedisClient(cfg.RedisConfig))

	stream := okx.NewPriceStream(cfg.ExchangeConfig.WSPublicURL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream.Start(ctx)
	defer stream.Stop()

	b := bot.New(cfg, bot.Deps{
		Market: client,
		Universe: screening.NewUniverse(
			client,
			cfg.FiltersConfig.MinVolumeUSD,
			cfg.BotConfig.MaxSymbols,
			cfg.FiltersConfig.ReferenceSymbol,
		),
		Correlations: correlation.NewAnalyzer(
			client,
			cfg.FiltersConfig.ReferenceSymbol,
			cfg.BotConfig.Timeframe,
			cfg.FiltersConfig.TrendLookbackBars,
			cfg.ScanInterval(),
		),
		Calendar: cal,
		Executor: executor.NewPaperTrader(),
		Recorder: recorder,
		State:    state,
		Prices:   stream,
	})

	b.Start(ctx)

	var server *api.Server
	if cfg.ServerConfig.Enabled {
		server = api.NewServer(cfg.ServerConfig, b, db)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error().Err(err).Msg("Status API failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutting down")

	b.Stop()
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Status API shutdown failed")
		}
	}
	logger.Info().Msg("Shutdown complete")
}
