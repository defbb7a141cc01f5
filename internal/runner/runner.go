// Package runner keeps the persisted rating series current. It works out
// which (season, week) cuts are missing, computes them and appends the rows.
package runner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"nflsrs/ratings/internal/evaluation"
	"nflsrs/ratings/internal/metrics"
	"nflsrs/ratings/internal/models"
	"nflsrs/ratings/internal/pit"
	"nflsrs/ratings/internal/qbadj"
	"nflsrs/ratings/internal/srs"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Run modes
const (
	ModeAppend  = "append"
	ModeRebuild = "rebuild"
)

// ErrNoCuts is returned when no (season, week) falls inside the configured range
var ErrNoCuts = errors.New("no cuts to compute")

// InputSource loads the tables snapshots are built from
type InputSource interface {
	LoadGames(ctx context.Context) ([]*models.Game, error)
	LoadQBGames(ctx context.Context) ([]models.QBGame, error)
	LoadPriors(ctx context.Context) ([]models.MarketPrior, error)
}

// SeriesStore persists the rating series and its evaluation
type SeriesStore interface {
	LatestCut(ctx context.Context) (models.Cut, bool, error)
	AppendRatings(ctx context.Context, rows []models.RatingRow) (int64, error)
	ReplaceRatings(ctx context.Context, rows []models.RatingRow) error
	LoadRatings(ctx context.Context) ([]models.RatingRow, error)
	SaveEvaluation(ctx context.Context, runID string, scores []evaluation.Score) error
}

// Publisher receives the newest cut after a successful run
type Publisher interface {
	PublishRatings(ctx context.Context, runID string, cut models.Cut, rows []models.RatingRow) error
}

// Config holds runner settings
type Config struct {
	FirstSeason int
	Workers     int

	// Overrides of the detected season state. Zero season and negative week
	// mean detect.
	CurrentSeason int
	CurrentWeek   int

	Pit    pit.Config
	Solver srs.Config
}

// Result summarizes one run
type Result struct {
	RunID    string
	Mode     string
	Cuts     []models.Cut
	Rows     int
	Scores   []evaluation.Score
	Duration time.Duration
}

// Runner is the only writer of the rating series
type Runner struct {
	cfg    Config
	inputs InputSource
	store  SeriesStore
	pub    Publisher
	solver *srs.Solver
}

// New creates a runner. pub may be nil.
func New(cfg Config, inputs InputSource, store SeriesStore, pub Publisher) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.CurrentSeason == 0 {
		cfg.CurrentWeek = -1
	}
	return &Runner{
		cfg:    cfg,
		inputs: inputs,
		store:  store,
		pub:    pub,
		solver: srs.NewSolver(cfg.Solver),
	}
}

// Run computes the missing cuts, or every cut when rebuild is set
func (r *Runner) Run(ctx context.Context, rebuild bool) (*Result, error) {
	start := time.Now()
	mode := ModeAppend
	if rebuild {
		mode = ModeRebuild
	}

	res, err := r.run(ctx, mode)
	status := "success"
	if err != nil {
		status = "error"
		metrics.RecordError("runner", "run")
	}
	metrics.RecordRun(mode, status, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	return res, nil
}

func (r *Runner) run(ctx context.Context, mode string) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Mode: mode}

	in, err := r.loadInputs(ctx)
	if err != nil {
		return nil, err
	}

	state := r.seasonState(in.Games)
	first := r.firstSeason(in.Priors)
	cuts := Cuts(in.Games, first, state)
	if len(cuts) == 0 {
		return nil, fmt.Errorf("%w: seasons %d through %d week %d", ErrNoCuts, first, state.Season, state.Week)
	}

	latest, hasLatest, err := r.store.LatestCut(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest cut: %w", err)
	}
	if mode == ModeRebuild {
		hasLatest = false
	}
	pending := Pending(cuts, latest, hasLatest)

	logger := log.With().Str("run_id", res.RunID).Str("mode", mode).Logger()
	if len(pending) == 0 {
		logger.Info().
			Int("season", latest.Season).
			Int("week", latest.Week).
			Msg("Ratings are up to date")
		return res, nil
	}

	logger.Info().
		Int("cuts", len(pending)).
		Int("from_season", pending[0].Season).
		Int("from_week", pending[0].Week).
		Int("to_season", state.Season).
		Int("to_week", state.Week).
		Msg("Ratings are not up to date, updating")

	rows, err := r.compute(ctx, in, pending)
	if err != nil {
		return nil, err
	}
	res.Cuts = pending
	res.Rows = len(rows)

	if mode == ModeRebuild {
		err = r.store.ReplaceRatings(ctx, rows)
	} else {
		var inserted int64
		inserted, err = r.store.AppendRatings(ctx, rows)
		if err == nil && inserted != int64(len(rows)) {
			logger.Warn().
				Int("rows", len(rows)).
				Int64("inserted", inserted).
				Msg("Some rating rows already existed")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist ratings: %w", err)
	}

	series, err := r.store.LoadRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reload ratings: %w", err)
	}

	res.Scores = evaluation.Evaluate(series, in.Games)
	exportScores(res.Scores)
	if err := r.store.SaveEvaluation(ctx, res.RunID, res.Scores); err != nil {
		return nil, fmt.Errorf("failed to save evaluation: %w", err)
	}
	if best, ok := evaluation.Best(res.Scores, evaluation.MetricRSQ, 8); ok {
		logger.Info().
			Str("column", best.Column).
			Float64("rsq", best.Value).
			Int("gp", best.Group).
			Msg("Best rating column")
	}

	newest := pending[len(pending)-1]
	if r.pub != nil {
		if err := r.pub.PublishRatings(ctx, res.RunID, newest, rows); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish latest ratings")
		}
	}

	metrics.UpdateSeriesStats(len(series), newest.Season, newest.Week)
	logger.Info().
		Int("cuts", len(pending)).
		Int("rows", len(rows)).
		Int("series_rows", len(series)).
		Msg("Ratings updated")

	return res, nil
}

func (r *Runner) loadInputs(ctx context.Context) (pit.Inputs, error) {
	games, err := r.inputs.LoadGames(ctx)
	if err != nil {
		return pit.Inputs{}, fmt.Errorf("failed to load games: %w", err)
	}
	qbs, err := r.inputs.LoadQBGames(ctx)
	if err != nil {
		return pit.Inputs{}, fmt.Errorf("failed to load qb games: %w", err)
	}
	priors, err := r.inputs.LoadPriors(ctx)
	if err != nil {
		return pit.Inputs{}, fmt.Errorf("failed to load market priors: %w", err)
	}

	log.Debug().
		Int("games", len(games)).
		Int("qb_games", len(qbs)).
		Int("priors", len(priors)).
		Msg("Loaded inputs")

	return pit.Inputs{
		Games:  games,
		QBs:    qbadj.AssignWeeks(qbs),
		Priors: priors,
	}, nil
}

func (r *Runner) seasonState(games []*models.Game) SeasonState {
	if r.cfg.CurrentSeason == 0 {
		return DetectSeasonState(games)
	}
	if r.cfg.CurrentWeek >= 0 {
		return SeasonState{Season: r.cfg.CurrentSeason, Week: r.cfg.CurrentWeek}
	}

	var season []*models.Game
	for _, g := range games {
		if g.Season == r.cfg.CurrentSeason {
			season = append(season, g)
		}
	}
	state := DetectSeasonState(season)
	state.Season = r.cfg.CurrentSeason
	return state
}

// firstSeason is the later of the configured start and the first season with
// market priors
func (r *Runner) firstSeason(priors []models.MarketPrior) int {
	first := r.cfg.FirstSeason
	earliest := math.MaxInt
	for _, p := range priors {
		earliest = min(earliest, p.Season)
	}
	if earliest != math.MaxInt {
		first = max(first, earliest)
	}
	return first
}

// compute builds each cut's snapshot and rows. Cuts are independent and share
// only read-only inputs.
func (r *Runner) compute(ctx context.Context, in pit.Inputs, cuts []models.Cut) ([]models.RatingRow, error) {
	results := make([][]models.RatingRow, len(cuts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, cut := range cuts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := r.computeCut(in, cut)
			if err != nil {
				return fmt.Errorf("snapshot season=%d week=%d: %w", cut.Season, cut.Week, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rows []models.RatingRow
	for _, rs := range results {
		rows = append(rows, rs...)
	}
	SortRows(rows)
	return rows, nil
}

func (r *Runner) computeCut(in pit.Inputs, cut models.Cut) ([]models.RatingRow, error) {
	start := time.Now()

	snap, err := pit.Build(in, cut.Season, cut.Week, r.cfg.Pit)
	if err != nil {
		return nil, err
	}
	rows, err := r.solver.Solve(snap)
	if err != nil {
		return nil, err
	}

	metrics.RecordSnapshot(time.Since(start).Seconds())
	log.Debug().
		Int("season", cut.Season).
		Int("week", cut.Week).
		Int("teams", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("Computed snapshot")
	return rows, nil
}

// SortRows orders rows by season, team and week
func SortRows(rows []models.RatingRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		return a.Week < b.Week
	})
}

func exportScores(scores []evaluation.Score) {
	for _, s := range scores {
		if math.IsNaN(s.Value) {
			continue
		}
		switch s.Metric {
		case evaluation.MetricRSQ:
			metrics.SetRatingRSQ(s.Column, s.Group, s.Value)
		case evaluation.MetricRMSE:
			metrics.SetRatingRMSE(s.Column, s.Group, s.Value)
		}
	}
}
