package repository

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"nflsrs/ratings/internal/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Database owns the pgx pool shared by the input and series repositories
type Database struct {
	Pool *pgxpool.Pool

	// Inputs
	Games  *GameRepository
	QBs    *QBRepository
	Priors *PriorRepository

	// Persisted series
	Ratings     *RatingRepository
	Evaluations *EvaluationRepository
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN renders the connection URL with user and password escaped
func (c Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// NewDatabase connects the pool and wires the repositories
func NewDatabase(ctx context.Context, cfg Config) (*Database, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 8
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to ratings database")

	db := &Database{Pool: pool}
	db.Games = &GameRepository{db: db}
	db.QBs = &QBRepository{db: db}
	db.Priors = &PriorRepository{db: db}
	db.Ratings = &RatingRepository{db: db}
	db.Evaluations = &EvaluationRepository{db: db}

	return db, nil
}

// Close closes the database connection pool
func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Info().Msg("Database connection pool closed")
	}
}

// Health checks if the database is healthy
func (db *Database) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}

// PoolStats is a snapshot of the connection pool
type PoolStats struct {
	Total    int32
	Acquired int32
	Idle     int32
	Max      int32
}

// RecordPoolStats exports the pool gauges and returns what it exported
func (db *Database) RecordPoolStats() PoolStats {
	stat := db.Pool.Stat()
	s := PoolStats{
		Total:    stat.TotalConns(),
		Acquired: stat.AcquiredConns(),
		Idle:     stat.IdleConns(),
		Max:      stat.MaxConns(),
	}
	metrics.UpdateDBConnectionStats(s.Acquired, s.Idle)
	return s
}

// Migrate creates the tables the service reads and writes if they are missing
func (db *Database) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Info().Msg("Database schema is up to date")
	return nil
}
