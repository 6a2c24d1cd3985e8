// Package server exposes the document engine over HTTP.
package server

import (
	"log/slog"

	"github.com/sobandev/docflow/internal/config"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	logger *slog.Logger
	engine DocumentEngine
	router *gin.Engine
}

// New creates a new Server instance
func New(cfg *config.Config, logger *slog.Logger, eng DocumentEngine) *Server {
	// Set Gin mode based on environment
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	router := gin.Default()

	if len(cfg.TrustedProxies) > 0 {
		if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			logger.Warn("Failed to set trusted proxies", "error", err)
		}
	}

	server := &Server{
		config: cfg,
		logger: logger,
		engine: eng,
		router: router,
	}

	// Setup middleware and routes
	setupSecurityMiddleware(router, cfg, logger)
	server.setupRoutes()

	return server
}

// Run starts the HTTP server
func Run(s *Server) error {
	s.logger.Info("Server listening", "port", s.config.Port)
	return s.router.Run(":" + s.config.Port)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	s.router.POST("/transcribe", s.handleTranscribe)
	s.router.POST("/generate-docx", s.handleGenerate)

	// Serve a bundled web frontend, if present, as fallback
	s.router.Use(static.Serve("/", static.LocalFile("./public", false)))
}
