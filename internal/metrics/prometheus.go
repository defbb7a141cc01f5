package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the ratings service

var (
	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srs_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "srs_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "srs_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "srs_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CachePublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srs_cache_publishes_total",
			Help: "Total number of rating publications to the cache",
		},
		[]string{"status"},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "srs_cache_operation_duration_seconds",
			Help:    "Duration of cache operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// Run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srs_runs_total",
			Help: "Total number of series runs",
		},
		[]string{"mode", "status"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "srs_run_duration_seconds",
			Help:    "Duration of series runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"mode"},
	)

	SnapshotsComputed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "srs_snapshots_computed_total",
			Help: "Total number of point-in-time snapshots computed",
		},
	)

	SnapshotDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "srs_snapshot_duration_seconds",
			Help:    "Duration of one snapshot and solve in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// Solver metrics
	SolverFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srs_solver_fallbacks_total",
			Help: "Total number of least squares fallbacks",
		},
		[]string{"reason"},
	)

	NormalizationGuards = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "srs_normalization_guards_total",
			Help: "Total number of solves normalized with unit scale due to zero spread",
		},
	)

	// Series metrics
	SeriesRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "srs_series_rows",
			Help: "Number of rows in the persisted rating series",
		},
	)

	LatestSeason = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "srs_latest_season",
			Help: "Season of the newest persisted cut",
		},
	)

	LatestWeek = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "srs_latest_week",
			Help: "Week of the newest persisted cut",
		},
	)

	// Evaluation metrics
	RatingRSQ = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "srs_rating_rsq",
			Help: "R squared of a rating column against future margin, by games played",
		},
		[]string{"column", "gp"},
	)

	RatingRMSE = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "srs_rating_rmse",
			Help: "RMSE of next-week margins predicted by a rating column, by week",
		},
		[]string{"column", "week"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srs_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// Worker metrics
	WorkerLoopIterations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "srs_worker_loop_iterations_total",
			Help: "Total number of scheduled refreshes",
		},
	)

	WorkerLoopDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "srs_worker_loop_duration_seconds",
			Help:    "Duration of scheduled refreshes in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "srs_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "srs_last_successful_run_timestamp",
			Help: "Timestamp of last successful series run",
		},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string, duration float64) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordCachePublish records a publication of ratings to the cache
func RecordCachePublish(status string, duration float64) {
	CachePublishesTotal.WithLabelValues(status).Inc()
	CacheOperationDuration.WithLabelValues("publish").Observe(duration)
}

// RecordRun records a series run
func RecordRun(mode, status string, duration float64) {
	RunsTotal.WithLabelValues(mode, status).Inc()
	RunDuration.WithLabelValues(mode).Observe(duration)

	if status == "success" {
		LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordSnapshot records one computed snapshot
func RecordSnapshot(duration float64) {
	SnapshotsComputed.Inc()
	SnapshotDuration.Observe(duration)
}

// RecordSolverFallback records a least squares fallback
func RecordSolverFallback(reason string) {
	SolverFallbacks.WithLabelValues(reason).Inc()
}

// RecordNormalizationGuard records a unit-scale normalization
func RecordNormalizationGuard() {
	NormalizationGuards.Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}

// UpdateSeriesStats updates the persisted series statistics
func UpdateSeriesStats(rows int, season, week int) {
	SeriesRows.Set(float64(rows))
	LatestSeason.Set(float64(season))
	LatestWeek.Set(float64(week))
}

// SetRatingRSQ exports one R squared value
func SetRatingRSQ(column string, gp int, value float64) {
	RatingRSQ.WithLabelValues(column, strconv.Itoa(gp)).Set(value)
}

// SetRatingRMSE exports one RMSE value
func SetRatingRMSE(column string, week int, value float64) {
	RatingRMSE.WithLabelValues(column, strconv.Itoa(week)).Set(value)
}

// RecordWorkerIteration records a scheduled refresh
func RecordWorkerIteration(duration float64) {
	WorkerLoopIterations.Inc()
	WorkerLoopDuration.Observe(duration)
}
