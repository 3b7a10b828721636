package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Test Biz", "trading_company")
	cfg.HomeCurrency = "EUR"
	cfg.Log.Development = true

	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default("My Company", "trading_company")

	assert.Equal(t, "My Company", cfg.Business.Name)
	assert.Equal(t, "trading_company", cfg.Business.EntityType)
	assert.Equal(t, "USD", cfg.HomeCurrency)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "ledger.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Development)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestYAMLFormat(t *testing.T) {
	cfg := Default("Test Biz", "trading_company")
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "business:")
	assert.Contains(t, content, "name: Test Biz")
	assert.Contains(t, content, "home_currency: USD")
	assert.Contains(t, content, "driver: sqlite")
	assert.Contains(t, content, "level: info")
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"TALLY_DB_DRIVER=postgres\nTALLY_DB_DSN=postgres://file\nTALLY_HOME_CURRENCY=eur\n"), 0o644))
	t.Setenv(EnvDBDSN, "postgres://env")
	t.Setenv(EnvLogLevel, "")

	cfg := Default("Biz", "")
	require.NoError(t, cfg.ApplyEnv(envFile))

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://env", cfg.Database.DSN, "process environment wins")
	assert.Equal(t, "EUR", cfg.HomeCurrency)
	assert.Equal(t, "info", cfg.Log.Level, "empty variables are ignored")
	assert.Equal(t, "postgres://env", cfg.DatabaseDSN(dir))
}

func TestApplyEnvMissingFile(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	cfg := Default("Biz", "")
	require.NoError(t, cfg.ApplyEnv(filepath.Join(t.TempDir(), ".env")))
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := Default("Biz", "")
	assert.Equal(t, filepath.Join("/proj", "ledger.db"), cfg.DatabaseDSN("/proj"))

	cfg.Database.DSN = "/var/lib/tally.db"
	assert.Equal(t, "/var/lib/tally.db", cfg.DatabaseDSN("/proj"))
}
