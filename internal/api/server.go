// Package api exposes the engine control surface over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"smc-trading-engine/internal/engine"
	"smc-trading-engine/internal/events"
)

// Config holds the HTTP server settings
type Config struct {
	Port         int      `json:"port"`
	AllowOrigins []string `json:"allow_origins"`
}

// Server serves the engine control API
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	engine     *engine.Engine
	bus        *events.Bus
	logger     zerolog.Logger
}

// NewServer builds the router and wires the engine control routes
func NewServer(cfg Config, eng *engine.Engine, bus *events.Bus, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	s := &Server{
		router: router,
		engine: eng,
		bus:    bus,
		logger: logger.With().Str("component", "api").Logger(),
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.POST("/engine/start", s.handleStart)
		api.POST("/engine/stop", s.handleStop)
		api.GET("/engine/status", s.handleStatus)
		api.GET("/engine/performance", s.handlePerformance)
		api.POST("/symbols/:symbol", s.handleAddSymbol)
		api.DELETE("/symbols/:symbol", s.handleRemoveSymbol)
	}
}

// Start serves HTTP until the listener fails or Shutdown is called
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("api server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the gin router for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}
