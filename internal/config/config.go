package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/tally/internal/money"
)

// FileName is the project configuration file.
const FileName = "tally.yaml"

// Environment variables that override the file.
const (
	EnvDBDriver     = "TALLY_DB_DRIVER"
	EnvDBDSN        = "TALLY_DB_DSN"
	EnvHomeCurrency = "TALLY_HOME_CURRENCY"
	EnvLogLevel     = "TALLY_LOG_LEVEL"
)

// Config represents the top-level tally.yaml configuration.
type Config struct {
	Business     BusinessConfig `yaml:"business"`
	HomeCurrency string         `yaml:"home_currency"`
	Database     DatabaseConfig `yaml:"database"`
	Log          LogConfig      `yaml:"log"`
}

// BusinessConfig identifies the business entity.
type BusinessConfig struct {
	Name       string `yaml:"name"`
	EntityType string `yaml:"entity_type"`
}

// DatabaseConfig selects the ledger database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`    // file path for sqlite, relative to the project root
}

// LogConfig controls logging.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads a tally.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(businessName, entityType string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name:       businessName,
			EntityType: entityType,
		},
		HomeCurrency: "USD",
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "ledger.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ApplyEnv overlays settings from envFile (a dotenv file, skipped when it
// does not exist) and then from the process environment, which wins.
func (c *Config) ApplyEnv(envFile string) error {
	vars := map[string]string{}
	if envFile != "" {
		fileVars, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			vars = fileVars
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("reading %s: %w", envFile, err)
		}
	}
	for _, key := range []string{EnvDBDriver, EnvDBDSN, EnvHomeCurrency, EnvLogLevel} {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			vars[key] = v
		}
	}

	if v := vars[EnvDBDriver]; v != "" {
		c.Database.Driver = v
	}
	if v := vars[EnvDBDSN]; v != "" {
		c.Database.DSN = v
	}
	if v := vars[EnvHomeCurrency]; v != "" {
		c.HomeCurrency = v
	}
	if v := vars[EnvLogLevel]; v != "" {
		c.Log.Level = v
	}
	c.HomeCurrency = money.Normalize(c.HomeCurrency)
	return nil
}

// DatabaseDSN returns the DSN to open. A relative SQLite path is resolved
// against the project root.
func (c *Config) DatabaseDSN(root string) string {
	dsn := c.Database.DSN
	if c.Database.Driver == "postgres" || dsn == "" || filepath.IsAbs(dsn) {
		return dsn
	}
	return filepath.Join(root, dsn)
}
