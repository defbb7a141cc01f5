package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"nflsrs/ratings/internal/backend"
	"nflsrs/ratings/internal/cache"
	"nflsrs/ratings/internal/config"
	"nflsrs/ratings/internal/metrics"
	"nflsrs/ratings/internal/pit"
	"nflsrs/ratings/internal/runner"
	"nflsrs/ratings/internal/scheduler"
	"nflsrs/ratings/internal/srs"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Setup logger
	setupLogger(cfg)

	log.Info().Msg("Starting NFL SRS Rating Worker")
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Str("store", cfg.StoreDriver).
		Msg("Configuration loaded")

	dist, err := cfg.Distributions()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid fitted distributions")
	}

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	// Initialize storage
	st, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()
	log.Info().Msg("Store ready")
	go backend.MonitorPool(ctx, st, 30*time.Second)

	// Initialize Redis client
	var publisher runner.Publisher
	if cfg.CacheEnabled {
		redisCache, err := cache.NewRedisCache(cache.Config{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTLRatings,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		} else {
			defer redisCache.Close()
			publisher = redisCache
			log.Info().Msg("Redis cache connected")
		}
	}

	// Start metrics HTTP server
	if cfg.EnableMetrics {
		go startMetricsServer(strconv.Itoa(cfg.MetricsPort))
	}

	// Update system uptime metric
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	r := runner.New(runner.Config{
		FirstSeason:   cfg.FirstSeason,
		Workers:       cfg.Workers,
		CurrentSeason: cfg.CurrentSeason,
		CurrentWeek:   cfg.CurrentWeek,
		Pit: pit.Config{
			Distributions: dist,
			QBValueScale:  cfg.QBValueScale,
		},
		Solver: srs.Config{RoundDecimals: cfg.RoundDecimals},
	}, st, st, publisher)

	// Create and start scheduler
	sched := scheduler.NewScheduler(cfg.RefreshCron, r)

	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	// Bring the series up to date before the first scheduled run
	if cfg.RunOnStart {
		log.Info().Msg("Running initial rating refresh...")
		if err := sched.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("Initial refresh failed, continuing anyway...")
		}
	}

	// Keep running until context is cancelled
	<-ctx.Done()

	// Graceful shutdown
	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger(cfg *config.Config) {
	// Pretty console logging in development
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := cfg.Level()
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

func startMetricsServer(port string) {
	http.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%s", port)
	log.Info().Str("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
