package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the compression advisor.
// Configuration can come from YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values. Secrets
// (passwords) must only come from environment variables.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8043"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Store is the advisor's own PostgreSQL system-of-record
	// (recommendations, execution audit, strategies, runs).
	Store StoreConfig `yaml:"store"`

	// Target is the managed database whose objects are analyzed and
	// compressed.
	Target TargetConfig `yaml:"target"`

	Scoring     ScoringConfig     `yaml:"scoring"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`

	// MigrationsPath is the directory holding advisor-store migrations.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// StrategiesPath optionally points at a YAML file of seed strategies
	// loaded into the store at startup. Empty disables seeding.
	StrategiesPath string `yaml:"strategies_path" env:"STRATEGIES_PATH" env-default:""`
}

// StoreConfig holds advisor-store (PostgreSQL) connection settings.
type StoreConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"compadvisor"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"compadvisor"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
}

// URL renders a pgx-compatible connection URL.
func (c StoreConfig) URL() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// TargetConfig holds connection settings for the managed Oracle database.
type TargetConfig struct {
	Host     string `yaml:"host" env:"TARGET_DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"TARGET_DB_PORT" env-default:"1521"`
	Service  string `yaml:"service" env:"TARGET_DB_SERVICE" env-default:"ORCLPDB1"`
	User     string `yaml:"user" env:"TARGET_DB_USER" env-default:"compadvisor"`
	Password string `yaml:"-" env:"TARGET_DB_PASSWORD"` // Secret - not in YAML
}

// DSN renders a go-ora connection string.
func (c TargetConfig) DSN() string {
	u := &url.URL{
		Scheme: "oracle",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Service,
	}
	return u.String()
}

// ScoringConfig holds the hotness score weights and shape parameters.
// The three weights must sum to 1.
type ScoringConfig struct {
	SizeWeight      float64 `yaml:"size_weight" env:"SCORE_SIZE_WEIGHT" env-default:"0.4"`
	StabilityWeight float64 `yaml:"stability_weight" env:"SCORE_STABILITY_WEIGHT" env-default:"0.4"`
	RecencyWeight   float64 `yaml:"recency_weight" env:"SCORE_RECENCY_WEIGHT" env-default:"0.2"`

	// HalfLifeDays controls the recency decay: objects unmodified for this
	// many days earn half of the full recency term.
	HalfLifeDays float64 `yaml:"half_life_days" env:"SCORE_HALF_LIFE_DAYS" env-default:"30"`

	// ReferenceSizeBytes is the size at which the logarithmic size term
	// saturates to 1.0.
	ReferenceSizeBytes int64 `yaml:"reference_size_bytes" env:"SCORE_REFERENCE_SIZE_BYTES" env-default:"1099511627776"`
}

// CoordinatorConfig holds batch execution limits.
type CoordinatorConfig struct {
	// MaxParallel is the number of units executed concurrently in a batch.
	MaxParallel int `yaml:"max_parallel" env:"EXEC_MAX_PARALLEL" env-default:"4"`

	// FreeSpaceHeadroomPct is the transient free space required in the
	// object's tablespace before execution, as a percentage of the object's
	// current size. A segment move needs room for both copies.
	FreeSpaceHeadroomPct int `yaml:"free_space_headroom_pct" env:"EXEC_FREE_SPACE_HEADROOM_PCT" env-default:"110"`
}

// Load reads configuration from config.yaml (if present) and the
// environment, then validates it.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	sum := c.Scoring.SizeWeight + c.Scoring.StabilityWeight + c.Scoring.RecencyWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1, got %g", sum)
	}
	if c.Scoring.HalfLifeDays <= 0 {
		return errors.New("scoring half_life_days must be positive")
	}
	if c.Scoring.ReferenceSizeBytes <= 0 {
		return errors.New("scoring reference_size_bytes must be positive")
	}
	if c.Coordinator.MaxParallel < 1 {
		return errors.New("coordinator max_parallel must be at least 1")
	}
	if c.Coordinator.FreeSpaceHeadroomPct < 100 {
		return errors.New("coordinator free_space_headroom_pct must be at least 100")
	}
	return nil
}
