// Package srs solves the Simple Rating System for a point-in-time snapshot and
// blends it with the Bayesian beliefs, market prior and quarterback adjustment
// into one rating row per team.
package srs

import (
	"database/sql"
	"fmt"
	"math"
	"sort"

	"nflsrs/ratings/internal/metrics"
	"nflsrs/ratings/internal/models"
	"nflsrs/ratings/internal/pit"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
)

// DefaultRoundDecimals is the precision rows are persisted with
const DefaultRoundDecimals = 2

// Spans narrower than this are treated as zero when normalizing
const minSpan = 1e-9

// Config holds solver settings
type Config struct {
	RoundDecimals int
}

// Solver produces rating rows from snapshots. It holds no state between
// solves, so one Solver may be shared by concurrent workers.
type Solver struct {
	cfg Config
}

// NewSolver creates a solver. A negative precision falls back to
// DefaultRoundDecimals.
func NewSolver(cfg Config) *Solver {
	if cfg.RoundDecimals < 0 {
		cfg.RoundDecimals = DefaultRoundDecimals
	}
	return &Solver{cfg: cfg}
}

// Solve returns one row per team appearing in the snapshot's schedule,
// ordered by team
func (s *Solver) Solve(snap *pit.Snapshot) ([]models.RatingRow, error) {
	names := make([]string, 0, 2*len(snap.Games))
	for _, g := range snap.Games {
		names = append(names, g.HomeTeam, g.AwayTeam)
	}
	teams := models.NewTeamIndex(names...)
	if teams.Len() == 0 {
		return nil, fmt.Errorf("no games in snapshot %d week %d", snap.Season, snap.Week)
	}

	unscored := 0
	for _, g := range snap.Games {
		if g.IsRegularSeason() && !g.ResultForRating.Valid {
			unscored++
		}
	}
	if unscored > 0 {
		log.Warn().
			Int("season", snap.Season).
			Int("week", snap.Week).
			Int("count", unscored).
			Msg("Games inside cut have no result, excluded from SRS")
	}

	sys, err := buildSystem(teams, snap.Games)
	if err != nil {
		return nil, fmt.Errorf("failed to build system: %w", err)
	}

	raw, reason, err := sys.solve()
	if err != nil {
		return nil, fmt.Errorf("failed to solve system: %w", err)
	}
	if reason != "" {
		log.WithLevel(fallbackLevel(reason)).
			Int("season", snap.Season).
			Int("week", snap.Week).
			Str("reason", reason).
			Msg("Exact SRS solve failed, using least squares")
	}

	centered := make([]float64, len(raw))
	copy(centered, raw)
	floats.AddConst(-median(raw), centered)

	bayesMeans := make([]float64, teams.Len())
	bayesStdevs := make([]float64, teams.Len())
	priors := make([]float64, teams.Len())
	for i := 0; i < teams.Len(); i++ {
		team := teams.Name(i)
		mean, stdev, err := snap.Beliefs.Lookup(team)
		if err != nil {
			return nil, err
		}
		prior, ok := snap.Priors[team]
		if !ok {
			return nil, fmt.Errorf("market prior lookup: %w: %s", models.ErrTeamNotFound, team)
		}
		bayesMeans[i], bayesStdevs[i], priors[i] = mean, stdev, prior
	}

	scale := s.scale(snap, centered, bayesMeans)
	normalized := make([]float64, len(centered))
	floats.ScaleTo(normalized, scale, centered)

	margins := averageMargins(snap.Games, snap.Week)

	rows := make([]models.RatingRow, teams.Len())
	for i := range rows {
		team := teams.Name(i)
		qb := snap.LatestQBAdj[team]
		m := margins[team]

		rows[i] = models.RatingRow{
			Season:                       snap.Season,
			Week:                         snap.Week,
			Team:                         team,
			GamesPlayed:                  m.gamesPlayed,
			AvgMOV:                       s.roundNull(m.avg),
			AvgMOVOfOpponents:            s.roundNull(m.oppAvg),
			SRSRating:                    s.round(centered[i]),
			SRSRatingNormalized:          s.round(normalized[i]),
			BayesianRating:               s.round(bayesMeans[i]),
			BayesianStdev:                s.round(bayesStdevs[i]),
			PreSeasonWTRating:            s.round(priors[i]),
			QBAdjustment:                 s.round(qb),
			SRSRatingWithQBAdj:           s.round(centered[i] + qb),
			SRSRatingNormalizedWithQBAdj: s.round(normalized[i] + qb),
			BayesianRatingWithQBAdj:      s.round(bayesMeans[i] + qb),
			PreSeasonWTRatingWithQBAdj:   s.round(priors[i] + qb),
		}
	}

	return rows, nil
}

// scale aligns the SRS span with the belief span. A degenerate span on
// either side uses unit scale.
func (s *Solver) scale(snap *pit.Snapshot, srs, bayes []float64) float64 {
	srsSpan := floats.Max(srs) - floats.Min(srs)
	bayesSpan := floats.Max(bayes) - floats.Min(bayes)
	if srsSpan < minSpan || bayesSpan < minSpan {
		metrics.RecordNormalizationGuard()
		log.Warn().
			Int("season", snap.Season).
			Int("week", snap.Week).
			Float64("srs_span", srsSpan).
			Float64("bayes_span", bayesSpan).
			Msg("Rating spread is degenerate, normalizing with unit scale")
		return 1
	}
	return bayesSpan / srsSpan
}

func (s *Solver) round(v float64) float64 {
	p := math.Pow(10, float64(s.cfg.RoundDecimals))
	r := math.Round(v*p) / p
	if r == 0 {
		// drop negative zero
		return 0
	}
	return r
}

func (s *Solver) roundNull(v sql.NullFloat64) sql.NullFloat64 {
	if !v.Valid {
		return v
	}
	return sql.NullFloat64{Float64: s.round(v.Float64), Valid: true}
}

// fallbackLevel keeps the expected singular Laplacian quiet. Only an
// unexpected LU failure is a warning.
func fallbackLevel(reason string) zerolog.Level {
	if reason == "error" {
		return zerolog.WarnLevel
	}
	return zerolog.DebugLevel
}

func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
