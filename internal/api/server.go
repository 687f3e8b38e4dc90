package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"okx-short-bot/config"
	"okx-short-bot/internal/bot"
	"okx-short-bot/internal/logging"
	"okx-short-bot/internal/position"
	"okx-short-bot/internal/store"
)

// BotStatus is the read surface the server exposes, satisfied by the bot
type BotStatus interface {
	Positions() []position.Position
	LastScan() bot.ScanSummary
	BannedSymbols() map[string]time.Time
	RiskMetrics() map[string]interface{}
}

// Server is the read-only status API: health, last scan, open positions,
// risk metrics and recent decisions. No mutating endpoints; the bot is
// driven by config, not HTTP.
type Server struct {
	cfg    config.ServerConfig
	status BotStatus
	db     *store.DB // Optional, decisions endpoint 404s without it
	http   *http.Server
	logger zerolog.Logger
}

// NewServer creates the status server
func NewServer(cfg config.ServerConfig, status BotStatus, db *store.DB) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:    cfg,
		status: status,
		db:     db,
		logger: logging.WithComponent("api"),
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", s.handleHealth)
	api := router.Group("/api")
	{
		api.GET("/scan", s.handleLastScan)
		api.GET("/positions", s.handlePositions)
		api.GET("/bans", s.handleBans)
		api.GET("/risk", s.handleRisk)
		api.GET("/decisions", s.handleDecisions)
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Shutdown
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("Status API listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handleLastScan(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.LastScan())
}

func (s *Server) handlePositions(c *gin.Context) {
	positions := s.status.Positions()
	c.JSON(http.StatusOK, gin.H{
		"count":     len(positions),
		"positions": positions,
	})
}

func (s *Server) handleBans(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.BannedSymbols())
}

func (s *Server) handleRisk(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.RiskMetrics())
}

func (s *Server) handleDecisions(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "decision store disabled"})
		return
	}
	records, err := s.db.RecentAssessments(c.Request.Context(), 50)
	if err != nil {
		s.logger.Error().Err(err).Msg("Decision query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":     len(records),
		"decisions": records,
	})
}
