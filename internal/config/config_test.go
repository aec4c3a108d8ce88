package config

import (
	"os"
	"path/filepath"
	"testing"

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

	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Claude.Model)
	assert.Equal(t, "distance", cfg.Search.Layout)
	assert.InDelta(t, 10.0, cfg.Search.DefaultRadiusKm, 0.001)
	assert.True(t, cfg.Search.EnforceRadius)
	assert.InDelta(t, 1.05, cfg.Search.RadiusTolerance, 0.001)
	assert.Equal(t, 1, cfg.Search.RankOffset)
	assert.InDelta(t, 0.1, cfg.Search.Temperature, 0.001)
	assert.Equal(t, 8192, cfg.Search.MaxOutputTokens)
	assert.Equal(t, 40, cfg.Search.MinResponseChars)
	assert.Equal(t, 10, cfg.Search.RequestsPerMinute)
	assert.Equal(t, 1, cfg.Search.Concurrency)
	assert.Equal(t, 60, cfg.Cooldown.FallbackSecs)
	assert.Equal(t, 3, cfg.Cooldown.MaxRetries)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "leadscout.db", cfg.Store.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
provider: claude
search:
  layout: full
  default_radius_km: 25
store:
  driver: postgres
  database_url: postgres://localhost/leadscout
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.Provider)
	assert.Equal(t, "full", cfg.Search.Layout)
	assert.InDelta(t, 25.0, cfg.Search.DefaultRadiusKm, 0.001)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.InDelta(t, 1.05, cfg.Search.RadiusTolerance, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
provider: claude
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEADSCOUT_PROVIDER", "gemini")
	t.Setenv("LEADSCOUT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("LEADSCOUT_GEMINI_KEY", "test-key")
	t.Setenv("LEADSCOUT_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.Gemini.Key)
	assert.Equal(t, 3000, cfg.Server.Port)
}

// Credentials and the database URL have no file or default value in a
// fresh environment; they must still be readable from env alone.
func TestLoadEnvOnlyKeys(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("LEADSCOUT_GEMINI_KEY", "gem-key")
	t.Setenv("LEADSCOUT_CLAUDE_KEY", "sk-ant-key")
	t.Setenv("LEADSCOUT_STORE_DATABASE_URL", "postgres://localhost/leadscout")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gem-key", cfg.Gemini.Key)
	assert.Equal(t, "sk-ant-key", cfg.Claude.Key)
	assert.Equal(t, "postgres://localhost/leadscout", cfg.Store.DatabaseURL)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{Provider: "gemini"}
	cfg.Gemini.Key = "test-key"
	cfg.Search.DefaultRadiusKm = 10
	cfg.Search.RadiusTolerance = 1.05
	cfg.Search.Concurrency = 1
	cfg.Cooldown.FallbackSecs = 60
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "leadscout.db"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateSearch_AllPresent(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("search"))
}

func TestValidateSearch_MissingKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Gemini.Key = ""

	err := cfg.Validate("search")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gemini.key is required")
}

func TestValidateSearch_ClaudeProvider(t *testing.T) {
	cfg := validDefaults()
	cfg.Provider = "claude"

	err := cfg.Validate("search")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "claude.key is required")

	cfg.Claude.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("search"))
}

func TestValidateSearch_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("search")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/leadscout"
	assert.NoError(t, cfg.Validate("search"))
}

func TestValidateSearch_Bounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Search.DefaultRadiusKm = 0
	err := cfg.Validate("search")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "default_radius_km must be > 0")

	cfg = validDefaults()
	cfg.Search.RadiusTolerance = 0.9
	err = cfg.Validate("search")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "radius_tolerance must be >= 1")

	cfg = validDefaults()
	cfg.Search.Concurrency = 11
	err = cfg.Validate("search")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency must be between 1 and 10")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	// Port is not checked in search mode
	assert.NoError(t, cfg.Validate("search"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
