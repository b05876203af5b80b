package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "roundtable.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "ROUNDTABLE_PORT")
	setString(&cfg.Server.CORSOrigin, "ROUNDTABLE_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "ROUNDTABLE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "ROUNDTABLE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "ROUNDTABLE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "ROUNDTABLE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "ROUNDTABLE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Selector.URL, "ROUNDTABLE_SELECTOR_URL")
	setDuration(&cfg.Selector.Timeout, "ROUNDTABLE_SELECTOR_TIMEOUT")
	setString(&cfg.Selector.SecretKey, "ROUNDTABLE_SECRET_KEY")
	setInt(&cfg.Selector.MaxConcurrent, "ROUNDTABLE_SELECTOR_MAX_CONCURRENT")
	setUint(&cfg.Conductor.MaxAutoReplies, "ROUNDTABLE_MAX_AUTO_REPLIES")
	setUint(&cfg.Conductor.TokenBudgetWarning, "ROUNDTABLE_TOKEN_BUDGET_WARNING")
	setUint(&cfg.Conductor.TokenBudgetLimit, "ROUNDTABLE_TOKEN_BUDGET_LIMIT")
	setInt(&cfg.Conductor.MessageWindow, "ROUNDTABLE_MESSAGE_WINDOW")
	setString(&cfg.Logging.Level, "ROUNDTABLE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ROUNDTABLE_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "ROUNDTABLE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Cooldown, "ROUNDTABLE_BREAKER_COOLDOWN")
	setInt64(&cfg.Cache.MaxCostBytes, "ROUNDTABLE_CACHE_MAX_COST_BYTES")
	setDuration(&cfg.Cache.SettingsTTL, "ROUNDTABLE_CACHE_SETTINGS_TTL")
	setBool(&cfg.Telemetry.Enabled, "ROUNDTABLE_TELEMETRY_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "ROUNDTABLE_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Conductor.TokenBudgetWarning > cfg.Conductor.TokenBudgetLimit {
		return errors.New("conductor.token_budget_warning must not exceed the limit")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint(dst *uint, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = uint(n)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
