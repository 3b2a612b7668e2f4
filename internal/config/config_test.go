package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouter.BaseURL)
	assert.Equal(t, "google/gemini-2.0-flash-001", cfg.OpenRouter.Model)
	assert.Equal(t, 60, cfg.OpenRouter.TimeoutSecs)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, 2000, cfg.Analysis.MaxTokens)
	assert.Equal(t, 3, cfg.Analysis.MaxAttempts)
	assert.Equal(t, 2, cfg.Analysis.BackoffSecs)
	assert.InDelta(t, 0.2, cfg.Preference.Increment, 0.001)
	assert.InDelta(t, 0.05, cfg.Preference.Decrement, 0.001)
	assert.InDelta(t, 0.5, cfg.Preference.MinWeight, 0.001)
	assert.InDelta(t, 5.0, cfg.Preference.MaxWeight, 0.001)
	assert.InDelta(t, 0.6, cfg.Preference.CoverThreshold, 0.001)
	assert.Equal(t, 5, cfg.Preference.MaxFocusAreas)
	assert.Equal(t, 3, cfg.Preference.MaxRelevant)
	assert.Equal(t, time.Hour, cfg.Preference.QuestionCacheTTL)
	assert.Equal(t, 1000, cfg.Translate.MaxBatchTokens)
	assert.Equal(t, 4, cfg.Translate.MaxConcurrent)
	assert.Equal(t, []string{"status", "error"}, cfg.Translate.ExcludedKeys)
	assert.Equal(t, 120, cfg.Session.TTLMinutes)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/contracts
log:
  level: debug
  format: console
openrouter:
  model: google/gemini-2.5-pro
preference:
  increment: 0.3
  cover_threshold: 0.7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/contracts", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "google/gemini-2.5-pro", cfg.OpenRouter.Model)
	assert.InDelta(t, 0.3, cfg.Preference.Increment, 0.001)
	assert.InDelta(t, 0.7, cfg.Preference.CoverThreshold, 0.001)
	// Untouched defaults survive partial config.
	assert.InDelta(t, 0.05, cfg.Preference.Decrement, 0.001)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	err := InitLogger(LogConfig{Level: "not-a-level"})
	assert.Error(t, err)
}
