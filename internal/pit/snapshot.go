// Package pit builds point-in-time views of a season.
//
// A snapshot fixes the order the engine depends on: quarterback adjustments
// first, then the sequential belief update over played games, then the
// synthetic fill of future games from the resulting beliefs.
package pit

import (
	"fmt"

	"nflsrs/ratings/internal/bayes"
	"nflsrs/ratings/internal/models"
	"nflsrs/ratings/internal/qbadj"
)

// Inputs are the shared read-only tables every snapshot is built from.
// Snapshots copy what they mutate, so one Inputs may be used concurrently.
type Inputs struct {
	Games  []*models.Game
	QBs    []models.QBGame
	Priors []models.MarketPrior
}

// Config carries the constants a snapshot depends on
type Config struct {
	Distributions bayes.Distributions
	QBValueScale  float64
}

// Snapshot is a season as it looked after one week
type Snapshot struct {
	Season int
	Week   int

	// Games holds every game of the season with its result for rating
	Games []*models.SnapshotGame

	Beliefs       *bayes.Beliefs
	Trace         []models.BeliefStep
	QBAdjustments *qbadj.Adjustments

	// LatestQBAdj is each team's most recent starter adjustment
	LatestQBAdj map[string]float64

	// Priors maps team to its market prior rating for the season
	Priors map[string]float64
}

// Build computes the snapshot for season through week
func Build(in Inputs, season, week int, cfg Config) (*Snapshot, error) {
	adj := qbadj.NewAdjuster(cfg.QBValueScale).Compute(in.QBs, in.Games, season, week)

	beliefs, err := bayes.NewBeliefs(in.Priors, season, cfg.Distributions.Rankings)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize beliefs: %w", err)
	}

	builder := NewSyntheticBuilder(season, week)
	games := builder.Attach(in.Games, adj)

	trace, err := bayes.NewUpdater(cfg.Distributions).Run(beliefs, games, week)
	if err != nil {
		return nil, fmt.Errorf("failed to update beliefs: %w", err)
	}

	if err := builder.Fill(games, beliefs); err != nil {
		return nil, err
	}

	priors := make(map[string]float64)
	for _, p := range in.Priors {
		if p.Season == season {
			priors[p.Team] = p.WTRating
		}
	}

	return &Snapshot{
		Season:        season,
		Week:          week,
		Games:         games,
		Beliefs:       beliefs,
		Trace:         trace,
		QBAdjustments: adj,
		LatestQBAdj:   adj.LatestByTeam(),
		Priors:        priors,
	}, nil
}

// Cut returns the (season, week) the snapshot was taken at
func (s *Snapshot) Cut() models.Cut {
	return models.Cut{Season: s.Season, Week: s.Week}
}
