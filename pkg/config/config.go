package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/nortia-io/ordersync/pkg/apperrors"
)

// Config holds all configuration for ordersync.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Env selects logger behavior ("local" gets the development encoder).
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	// Pipeline configuration
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Source database (operational store, read-only)
	Source SourceDBConfig `yaml:"source"`

	// Target database (analytical store, owned by the pipeline)
	Target TargetDBConfig `yaml:"target"`

	// Reports configuration (CSV export of analytical queries)
	Reports ReportsConfig `yaml:"reports"`

	// MetricsAddr is the listen address for the Prometheus endpoint in
	// continuous mode. Empty disables the listener.
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR" env-default:""`
}

// PipelineConfig holds the synchronization loop settings.
type PipelineConfig struct {
	// PollingIntervalSeconds is the sleep between pass completions in
	// continuous mode.
	PollingIntervalSeconds int `yaml:"polling_interval_seconds" env:"POLLING_INTERVAL" env-default:"30"`

	// BatchSize caps the number of rows sent per upsert batch.
	BatchSize int `yaml:"batch_size" env:"BATCH_SIZE" env-default:"1000"`

	// MigrationsPath is the directory containing analytics schema migrations.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// PollingInterval returns the polling interval as a duration.
func (p *PipelineConfig) PollingInterval() time.Duration {
	return time.Duration(p.PollingIntervalSeconds) * time.Second
}

// SourceDBConfig holds the operational PostgreSQL connection settings.
type SourceDBConfig struct {
	Host           string `yaml:"host" env:"SOURCE_PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"SOURCE_PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"SOURCE_PGUSER" env-default:"etl"`
	Password       string `yaml:"-" env:"SOURCE_PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"SOURCE_PGDATABASE" env-default:"orders"`
	SSLMode        string `yaml:"ssl_mode" env:"SOURCE_PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"SOURCE_PGMAX_CONNECTIONS" env-default:"5"`
}

// ConnectionString returns a PostgreSQL connection string for the source store.
func (c *SourceDBConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// TargetDBConfig holds the analytical PostgreSQL connection settings.
type TargetDBConfig struct {
	Host           string `yaml:"host" env:"TARGET_PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"TARGET_PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"TARGET_PGUSER" env-default:"etl"`
	Password       string `yaml:"-" env:"TARGET_PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"TARGET_PGDATABASE" env-default:"analytics"`
	SSLMode        string `yaml:"ssl_mode" env:"TARGET_PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"TARGET_PGMAX_CONNECTIONS" env-default:"5"`
}

// ConnectionString returns a PostgreSQL connection string for the target store.
func (c *TargetDBConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ReportsConfig holds settings for the CSV report exporter.
type ReportsConfig struct {
	OutputDirectory string `yaml:"output_directory" env:"OUTPUT_DIRECTORY" env-default:"output"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration can actually drive a pipeline.
// Violations wrap apperrors.ErrConfiguration and are fatal at startup.
func (c *Config) Validate() error {
	if c.Pipeline.PollingIntervalSeconds <= 0 {
		return fmt.Errorf("%w: polling_interval_seconds must be positive, got %d",
			apperrors.ErrConfiguration, c.Pipeline.PollingIntervalSeconds)
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d",
			apperrors.ErrConfiguration, c.Pipeline.BatchSize)
	}
	if c.Pipeline.MigrationsPath == "" {
		return fmt.Errorf("%w: migrations_path must not be empty", apperrors.ErrConfiguration)
	}
	if c.Source.Host == "" || c.Source.Database == "" {
		return fmt.Errorf("%w: source database host and name are required", apperrors.ErrConfiguration)
	}
	if c.Target.Host == "" || c.Target.Database == "" {
		return fmt.Errorf("%w: target database host and name are required", apperrors.ErrConfiguration)
	}
	return nil
}
