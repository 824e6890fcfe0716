// Package config loads service configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ledgerware/ledger-service/internal/app/policy"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePrefix string `yaml:"file_prefix"`
}

// LedgerConfig controls the engine and lock registry.
type LedgerConfig struct {
	LockWaitTimeout time.Duration `yaml:"lock_wait_timeout"`
	MonitorInterval time.Duration `yaml:"monitor_interval"`
}

// HTTPConfig controls transport middleware.
type HTTPConfig struct {
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
	AuditFile string  `yaml:"audit_file"`
}

// Config is the root configuration document.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	HTTP    HTTPConfig    `yaml:"http"`
	Policy  policy.Limits `yaml:"policy"`
}

// Default returns the configuration used when no file or overrides are set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Ledger: LedgerConfig{
			LockWaitTimeout: 5 * time.Second,
			MonitorInterval: 30 * time.Second,
		},
		Policy: policy.DefaultLimits(),
	}
}

// Load builds the configuration: defaults, then the YAML file at path (when
// non-empty), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Policy.MaxBalance <= 0 {
		return nil, fmt.Errorf("policy max_balance must be positive")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LEDGER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("LEDGER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LEDGER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LEDGER_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("LEDGER_LOCK_WAIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Ledger.LockWaitTimeout = d
		}
	}
	if v := os.Getenv("LEDGER_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.HTTP.RateLimit = f
		}
	}
	if v := os.Getenv("LEDGER_AUDIT_FILE"); v != "" {
		cfg.HTTP.AuditFile = v
	}
	if v := os.Getenv("LEDGER_MAX_BALANCE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Policy.MaxBalance = n
		}
	}
}
