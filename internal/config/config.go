// Package config loads master server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config is the process configuration
type Config struct {
	ListenAddr        string `env:"NSMS_LISTEN_ADDR"          envDefault:":8080"`
	TrustProxyHeaders bool   `env:"NSMS_TRUST_PROXY_HEADERS"  envDefault:"false"`

	RequireSessionToken bool          `env:"NSMS_REQUIRE_SESSION_TOKEN" envDefault:"true"`
	TokenTTL            time.Duration `env:"NSMS_TOKEN_TTL"             envDefault:"24h"`

	LivenessWindow  time.Duration `env:"NSMS_LIVENESS_WINDOW"  envDefault:"30s"`
	ServerRetention time.Duration `env:"NSMS_SERVER_RETENTION" envDefault:"5m"`
	SweepInterval   time.Duration `env:"NSMS_SWEEP_INTERVAL"   envDefault:"30s"`

	StorageType string `env:"NSMS_STORAGE_TYPE"  envDefault:"memory"`
	RedisURL    string `env:"NSMS_REDIS_URL"`
	DatabaseDSN string `env:"NSMS_DATABASE_DSN"`

	OracleURL           string        `env:"NSMS_ORACLE_URL"            envDefault:"https://r2-pc.stryder.respawn.com/nucleus-oauth.php"`
	OracleProductMarker string        `env:"NSMS_ORACLE_PRODUCT_MARKER" envDefault:"titanfall-2"`
	OracleTimeout       time.Duration `env:"NSMS_ORACLE_TIMEOUT"        envDefault:"10s"`
	OracleRate          float64       `env:"NSMS_ORACLE_RATE"           envDefault:"5"`
	OracleBurst         int           `env:"NSMS_ORACLE_BURST"          envDefault:"10"`

	RemoteAuthTimeout time.Duration `env:"NSMS_REMOTE_AUTH_TIMEOUT" envDefault:"5s"`

	PdataSize         int    `env:"NSMS_PDATA_SIZE"          envDefault:"56306"`
	PdataBaselinePath string `env:"NSMS_PDATA_BASELINE_PATH"`
}

// Load parses the environment and validates the result
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that have no usable fallback
func (c Config) Validate() error {
	var errs []error

	if c.ListenAddr == "" {
		errs = append(errs, errors.New("NSMS_LISTEN_ADDR is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("NSMS_TOKEN_TTL must be positive"))
	}
	if c.LivenessWindow <= 0 {
		errs = append(errs, errors.New("NSMS_LIVENESS_WINDOW must be positive"))
	}
	if c.ServerRetention < 0 {
		errs = append(errs, errors.New("NSMS_SERVER_RETENTION must not be negative"))
	}
	if c.SweepInterval < 0 {
		errs = append(errs, errors.New("NSMS_SWEEP_INTERVAL must not be negative"))
	}
	if c.RemoteAuthTimeout <= 0 {
		errs = append(errs, errors.New("NSMS_REMOTE_AUTH_TIMEOUT must be positive"))
	}
	if c.RequireSessionToken {
		if c.OracleURL == "" {
			errs = append(errs, errors.New("NSMS_ORACLE_URL is required when session tokens are enforced"))
		}
		if c.OracleTimeout <= 0 {
			errs = append(errs, errors.New("NSMS_ORACLE_TIMEOUT must be positive"))
		}
	}
	if c.PdataBaselinePath == "" && c.PdataSize <= 0 {
		errs = append(errs, errors.New("NSMS_PDATA_SIZE must be positive"))
	}

	switch c.StorageType {
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("NSMS_REDIS_URL is required for redis storage"))
		}
	case StorageSQLite, StoragePostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, fmt.Errorf("NSMS_DATABASE_DSN is required for %s storage", c.StorageType))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NSMS_STORAGE_TYPE %q", c.StorageType))
	}

	return errors.Join(errs...)
}

// Baseline returns the bytes of the configured baseline file, or nil when
// none is configured
func (c Config) Baseline() ([]byte, error) {
	if c.PdataBaselinePath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.PdataBaselinePath)
	if err != nil {
		return nil, fmt.Errorf("read pdata baseline: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("pdata baseline %s is empty", c.PdataBaselinePath)
	}
	return data, nil
}
