// Package bayes maintains point-in-time team strength beliefs.
//
// Beliefs start at the market prior and are updated game by game with the
// conjugate normal update for a mean with known observation variance. Each
// posterior becomes the next prior, so games must be applied in schedule
// order.
package bayes

import (
	"fmt"
	"math"
	"sort"

	"nflsrs/ratings/internal/models"

	"github.com/rs/zerolog/log"
)

// Distributions are the two externally fitted standard deviations
type Distributions struct {
	// Margins is the stdev of game margin against the closing spread
	Margins float64 `koanf:"margins"`
	// Rankings is the stdev of preseason rating error
	Rankings float64 `koanf:"rankings"`
}

// Validate checks both deviations are usable as variances
func (d Distributions) Validate() error {
	if !(d.Margins > 0) || math.IsInf(d.Margins, 0) {
		return fmt.Errorf("margin stdev must be positive, got %v", d.Margins)
	}
	if !(d.Rankings > 0) || math.IsInf(d.Rankings, 0) {
		return fmt.Errorf("ranking stdev must be positive, got %v", d.Rankings)
	}
	return nil
}

// Posterior applies one conjugate update to a normal prior
func Posterior(priorMean, priorStdev, obs, obsStdev float64) (mean, stdev float64) {
	priorPrec := 1 / (priorStdev * priorStdev)
	obsPrec := 1 / (obsStdev * obsStdev)
	mean = (priorMean*priorPrec + obs*obsPrec) / (priorPrec + obsPrec)
	stdev = math.Sqrt(1 / (priorPrec + obsPrec))
	return mean, stdev
}

// Updater runs the sequential update over a season's played games
type Updater struct {
	dist Distributions
}

// NewUpdater creates an updater with the given fitted deviations
func NewUpdater(dist Distributions) *Updater {
	return &Updater{dist: dist}
}

// Run updates beliefs in place with every game in weeks <= cutWeek and
// returns the per-team trace. Games inside the cut without a result are
// skipped.
func (u *Updater) Run(beliefs *Beliefs, games []*models.SnapshotGame, cutWeek int) ([]models.BeliefStep, error) {
	played := make([]*models.SnapshotGame, 0, len(games))
	for _, g := range games {
		if g.Week > cutWeek {
			continue
		}
		if !g.Result.Valid {
			log.Warn().
				Str("game_id", g.GameID).
				Int("season", g.Season).
				Int("week", g.Week).
				Msg("Game inside cut has no result, skipping belief update")
			continue
		}
		played = append(played, g)
	}

	sort.SliceStable(played, func(i, j int) bool {
		if played[i].Week != played[j].Week {
			return played[i].Week < played[j].Week
		}
		return played[i].GameDate.Before(played[j].GameDate)
	})

	trace := make([]models.BeliefStep, 0, 2*len(played))
	for _, g := range played {
		steps, err := u.apply(beliefs, g)
		if err != nil {
			return nil, err
		}
		trace = append(trace, steps[0], steps[1])
	}

	return trace, nil
}

// apply updates both sides of one game from their pre-game beliefs
func (u *Updater) apply(b *Beliefs, g *models.SnapshotGame) ([2]models.BeliefStep, error) {
	var steps [2]models.BeliefStep

	home, err := b.teams.ID(g.HomeTeam)
	if err != nil {
		return steps, fmt.Errorf("game %s: %w", g.GameID, err)
	}
	away, err := b.teams.ID(g.AwayTeam)
	if err != nil {
		return steps, fmt.Errorf("game %s: %w", g.GameID, err)
	}

	result := g.Result.Float64
	homeMean, homeStdev := b.Mean[home], b.Stdev[home]
	awayMean, awayStdev := b.Mean[away], b.Stdev[away]

	// Each side's margin is restated as a performance against an average,
	// full strength opponent on a neutral field
	homeObs := result + (awayMean + g.AwayQBAdj) - g.HomeQBAdj - g.ModeledHFA
	awayObs := -result + (homeMean + g.HomeQBAdj) - g.AwayQBAdj + g.ModeledHFA

	homeMeanPost, homeStdevPost := Posterior(homeMean, homeStdev, homeObs, u.dist.Margins)
	awayMeanPost, awayStdevPost := Posterior(awayMean, awayStdev, awayObs, u.dist.Margins)

	b.Mean[home], b.Stdev[home] = homeMeanPost, homeStdevPost
	b.Mean[away], b.Stdev[away] = awayMeanPost, awayStdevPost

	steps[0] = models.BeliefStep{
		GameID:    g.GameID,
		Season:    g.Season,
		Week:      g.Week,
		Team:      g.HomeTeam,
		Opponent:  g.AwayTeam,
		Result:    result,
		QBAdj:     g.HomeQBAdj,
		MeanPre:   homeMean,
		StdevPre:  homeStdev,
		MeanPost:  homeMeanPost,
		StdevPost: homeStdevPost,
	}
	steps[1] = models.BeliefStep{
		GameID:    g.GameID,
		Season:    g.Season,
		Week:      g.Week,
		Team:      g.AwayTeam,
		Opponent:  g.HomeTeam,
		Result:    -result,
		QBAdj:     g.AwayQBAdj,
		MeanPre:   awayMean,
		StdevPre:  awayStdev,
		MeanPost:  awayMeanPost,
		StdevPost: awayStdevPost,
	}

	return steps, nil
}
