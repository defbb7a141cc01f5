package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"nflsrs/ratings/internal/bayes"
	"nflsrs/ratings/internal/repository"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Store drivers
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"nflsrs"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"nflsrs_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" default:""`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Storage backend
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"data/ratings.db"`

	// Redis
	RedisHost       string        `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort       int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB         int           `envconfig:"REDIS_DB" default:"0"`
	CacheEnabled    bool          `envconfig:"CACHE_ENABLED" default:"false"`
	CacheTTLRatings time.Duration `envconfig:"CACHE_TTL_RATINGS" default:"168h"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Fitted distributions
	MarginStdev       float64 `envconfig:"MARGIN_STDEV" default:"13.5"`
	RatingStdev       float64 `envconfig:"RATING_STDEV" default:"4.0"`
	DistributionsFile string  `envconfig:"DISTRIBUTIONS_FILE" default:""`

	// Engine
	QBValueScale  float64 `envconfig:"QB_VALUE_SCALE" default:"25"`
	FirstSeason   int     `envconfig:"FIRST_SEASON" default:"2003"`
	RoundDecimals int     `envconfig:"ROUND_DECIMALS" default:"2"`
	Workers       int     `envconfig:"WORKERS" default:"1"`
	CurrentSeason int     `envconfig:"CURRENT_SEASON" default:"0"`
	CurrentWeek   int     `envconfig:"CURRENT_WEEK" default:"-1"`

	// Scheduler
	EnableScheduler bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	RefreshCron     string `envconfig:"REFRESH_CRON" default:"0 6 * * 2"`
	RunOnStart      bool   `envconfig:"RUN_ON_START" default:"true"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case StorePostgres:
		if c.DatabasePassword == "" && c.IsProduction() {
			return fmt.Errorf("DATABASE_PASSWORD is required")
		}
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StorePostgres, StoreSQLite, c.StoreDriver)
	}

	if c.QBValueScale <= 0 {
		return fmt.Errorf("QB_VALUE_SCALE must be positive")
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1")
	}
	if c.RoundDecimals < 0 {
		return fmt.Errorf("ROUND_DECIMALS must not be negative")
	}
	if c.CurrentWeek >= 0 && c.CurrentSeason == 0 {
		return fmt.Errorf("CURRENT_WEEK requires CURRENT_SEASON")
	}

	return nil
}

// Distributions returns the fitted constants from the environment, overridden
// by DISTRIBUTIONS_FILE when it is set
func (c *Config) Distributions() (bayes.Distributions, error) {
	d := bayes.Distributions{Margins: c.MarginStdev, Rankings: c.RatingStdev}
	if c.DistributionsFile != "" {
		var err error
		if d, err = LoadDistributions(c.DistributionsFile, d); err != nil {
			return bayes.Distributions{}, err
		}
	}
	if err := d.Validate(); err != nil {
		return bayes.Distributions{}, err
	}
	return d, nil
}

// Database returns the pgx connection settings
func (c *Config) Database() repository.Config {
	return repository.Config{
		Host:     c.DatabaseHost,
		Port:     fmt.Sprintf("%d", c.DatabasePort),
		User:     c.DatabaseUser,
		Password: c.DatabasePassword,
		Database: c.DatabaseName,
		SSLMode:  c.DatabaseSSLMode,
	}
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Level parses LOG_LEVEL, falling back to info
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
