// Package config loads docserver configuration from the environment.
package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvProduction represents the production environment.
	EnvProduction = "production"

	// ExtractorOpenAI selects the OpenAI-compatible chat extractor.
	ExtractorOpenAI = "openai"
	// ExtractorAnthropic selects the Anthropic tool-use extractor.
	ExtractorAnthropic = "anthropic"
)

// Config holds all docserver configuration.
type Config struct {
	// Server settings
	Env  string `envconfig:"ENV" default:"development"`
	Port string `envconfig:"PORT" default:"8000"`

	// Security settings
	AllowedHosts   []string `envconfig:"ALLOWED_HOSTS" default:"localhost"`
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES" default:"10.0.0.0/8,172.16.0.0/12"`
	HSTSMaxAge     int      `envconfig:"HSTS_MAX_AGE" default:"31536000"`
	CSPMode        string   `envconfig:"CSP_MODE" default:"relaxed"`

	// Logging settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Transcription settings. The transcription endpoint speaks the OpenAI
	// audio API, so a Groq base URL works via GROQ_BASE_URL.
	GroqAPIKey         string `envconfig:"GROQ_API_KEY"`
	GroqBaseURL        string `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1"`
	TranscriptionModel string `envconfig:"TRANSCRIPTION_MODEL" default:"whisper-large-v3"`

	// Extraction settings
	Extractor       string `envconfig:"EXTRACTOR" default:"openai"`
	ExtractionModel string `envconfig:"EXTRACTION_MODEL" default:"llama-3.3-70b-versatile"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`

	// Storage settings
	TemplateDir string `envconfig:"TEMPLATE_DIR" default:"templates"`
}

// LoadConfig loads configuration from .env file and environment variables.
func LoadConfig() (*Config, error) {
	// Try to load .env file (optional for development)
	if err := godotenv.Load(); err != nil {
		// Not an error if file doesn't exist (expected in production)
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	// Parse environment variables into config struct
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	return &config, nil
}

// BuildCSP constructs Content Security Policy based on mode.
func BuildCSP(mode string) string {
	if mode == "strict" {
		// Production CSP
		return "default-src 'self'; " +
			"style-src 'self' 'unsafe-inline'; " +
			"script-src 'self'; " +
			"img-src 'self' data:; " +
			"object-src 'none'; " +
			"base-uri 'self'; " +
			"form-action 'self'"
	}

	// Development/relaxed CSP
	return "default-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"script-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data:"
}
