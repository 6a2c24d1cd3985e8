package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Env)
	require.Equal(t, "8000", cfg.Port)
	require.Equal(t, ExtractorOpenAI, cfg.Extractor)
	require.Equal(t, "templates", cfg.TemplateDir)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("PORT", "9000")
	t.Setenv("EXTRACTOR", "anthropic")
	t.Setenv("ALLOWED_HOSTS", "docflow.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, EnvProduction, cfg.Env)
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, ExtractorAnthropic, cfg.Extractor)
	require.Equal(t, []string{"docflow.example.com"}, cfg.AllowedHosts)
}

func TestBuildCSP(t *testing.T) {
	strict := BuildCSP("strict")
	require.True(t, strings.Contains(strict, "object-src 'none'"))
	require.False(t, strings.Contains(strict, "script-src 'self' 'unsafe-inline'"))

	relaxed := BuildCSP("relaxed")
	require.True(t, strings.Contains(relaxed, "script-src 'self' 'unsafe-inline'"))
}
