package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nflsrs/ratings/internal/metrics"
	"nflsrs/ratings/internal/runner"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Runner is the work the scheduler triggers
type Runner interface {
	Run(ctx context.Context, rebuild bool) (*runner.Result, error)
}

// Scheduler runs the rating refresh on a cron schedule. Runs never overlap;
// a tick that fires while a run is in progress is skipped.
type Scheduler struct {
	spec   string
	runner Runner
	cron   *cron.Cron

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(spec string, r Runner) *Scheduler {
	return &Scheduler{
		spec:   spec,
		runner: r,
		cron:   cron.New(),
	}
}

// Start registers the refresh job and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.spec, func() {
		log.Info().Msg("Running scheduled rating refresh...")
		if err := s.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled rating refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule rating refresh: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.spec).
		Msg("Rating refresh scheduled")

	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	log.Info().Msg("Scheduler stopped")
}

// RunOnce runs one incremental refresh unless one is already running
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Warn().Msg("Rating refresh already running, skipping")
		return nil
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	res, err := s.runner.Run(ctx, false)
	metrics.RecordWorkerIteration(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	log.Info().
		Str("run_id", res.RunID).
		Int("cuts", len(res.Cuts)).
		Int("rows", res.Rows).
		Dur("duration", res.Duration).
		Msg("Rating refresh complete")
	return nil
}
