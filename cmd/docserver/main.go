package main

import (
	"log"
	"time"

	"github.com/sobandev/docflow/internal/config"
	"github.com/sobandev/docflow/internal/logger"
	"github.com/sobandev/docflow/internal/server"
	"github.com/sobandev/docflow/internal/server/engine"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	slogger := logger.SetupLogger(cfg)

	// Log startup information
	slogger.Info("Starting docflow server",
		"env", cfg.Env,
		"port", cfg.Port,
		"extractor", cfg.Extractor,
	)

	store, err := engine.NewTemplateStore(cfg.TemplateDir)
	if err != nil {
		log.Fatalf("Failed to prepare template store: %v", err)
	}

	transcriber := engine.NewTranscriber(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.TranscriptionModel)

	var extractor engine.Extractor
	switch cfg.Extractor {
	case config.ExtractorAnthropic:
		extractor = engine.NewAnthropicExtractor(cfg.AnthropicAPIKey)
	case config.ExtractorOpenAI:
		extractor = engine.NewChatExtractor(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.ExtractionModel)
	default:
		log.Fatalf("Unknown extractor: %q", cfg.Extractor)
	}

	eng := engine.New(transcriber, extractor, store, slogger, time.Now)

	// Start server
	srv := server.New(cfg, slogger, eng)
	if err := server.Run(srv); err != nil {
		slogger.Error("Failed to start server", "error", err)
		log.Fatalf("Fatal: %v", err)
	}
}
