package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 15, cfg.Server.RequestTimeoutSecs)
	assert.Equal(t, 5000, cfg.Collector.SourceTimeoutMs)
	assert.Equal(t, 2, cfg.Collector.RetryAttempts)
	assert.Equal(t, 100, cfg.Collector.RetryBackoffMs)
	assert.Equal(t, "store", cfg.Banking.Provider)
	assert.InDelta(t, 10, cfg.Banking.RateLimit, 0.001)
	assert.Equal(t, MissingNotFound, cfg.Conflicts.MissingApplication)
	assert.InDelta(t, 0.3, cfg.OCR.DefaultWeight, 0.001)
	assert.Empty(t, cfg.OCR.LabelWeights)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: reconcile.db
log:
  level: debug
  format: console
server:
  port: 9090
  cors_origins:
    - https://staff.example.com
conflicts:
  missing_application: empty
ocr:
  label_weights:
    sin: 1.0
    gst number: 0.7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "reconcile.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://staff.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, MissingEmpty, cfg.Conflicts.MissingApplication)
	assert.InDelta(t, 0.7, cfg.OCR.LabelWeights["gst number"], 0.001)
	// Defaults still apply for unset values
	assert.Equal(t, 5000, cfg.Collector.SourceTimeoutMs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RECONCILE_STORE_DRIVER", "postgres")
	t.Setenv("RECONCILE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("RECONCILE_SERVER_PORT", "3000")
	t.Setenv("RECONCILE_STORE_DATABASE_URL", "postgres://localhost/reconcile")
	t.Setenv("RECONCILE_BANKING_PROVIDER", "api")
	t.Setenv("RECONCILE_COLLECTOR_SOURCE_TIMEOUT_MS", "750")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/reconcile", cfg.Store.DatabaseURL)
	assert.Equal(t, "api", cfg.Banking.Provider)
	assert.Equal(t, 750, cfg.Collector.SourceTimeoutMs)
}

func TestLoadInvalidFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
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
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/test"
	cfg.Store.MaxConns = 10
	cfg.Store.MinConns = 2
	cfg.Server.Port = 8080
	cfg.Collector.SourceTimeoutMs = 5000
	cfg.Collector.RetryAttempts = 2
	cfg.Banking.Provider = "store"
	cfg.Conflicts.MissingApplication = MissingNotFound
	cfg.OCR.DefaultWeight = 0.3
	return cfg
}

func TestValidateServe_Valid(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateStore_MissingDatabaseURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("store")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateStore_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("store")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be postgres or sqlite")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validDefaults()
	cfg.Collector.SourceTimeoutMs = 0
	cfg.Collector.RetryAttempts = 9
	cfg.Conflicts.MissingApplication = "ignore"

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collector.source_timeout_ms must be > 0")
	assert.Contains(t, err.Error(), "collector.retry_attempts must be between 1 and 5")
	assert.Contains(t, err.Error(), "conflicts.missing_application must be not_found or empty")
}

func TestValidateBankingAPI(t *testing.T) {
	cfg := validDefaults()
	cfg.Banking.Provider = "api"

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "banking.base_url is required")

	cfg.Banking.BaseURL = "https://statements.internal"
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Banking.Provider = "ftp"
	assert.Error(t, cfg.Validate("serve"))
}

func TestValidateOffline_IgnoresStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""
	assert.NoError(t, cfg.Validate("offline"))

	cfg.OCR.LabelWeights = map[string]float64{"sin": 1.5}
	err := cfg.Validate("offline")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ocr.label_weights[sin]")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
