package bayes

import (
	"fmt"

	"nflsrs/ratings/internal/models"
)

// Beliefs holds a Gaussian belief over every team's strength. Means and
// standard deviations are indexed by the dense ids of Teams.
type Beliefs struct {
	teams *models.TeamIndex
	Mean  []float64
	Stdev []float64
}

// NewBeliefs initializes one belief per team from the season's market priors,
// all sharing the same prior standard deviation
func NewBeliefs(priors []models.MarketPrior, season int, priorStdev float64) (*Beliefs, error) {
	var names []string
	ratings := make(map[string]float64)
	for _, p := range priors {
		if p.Season != season {
			continue
		}
		if _, dup := ratings[p.Team]; dup {
			return nil, fmt.Errorf("duplicate market prior: team=%s season=%d", p.Team, season)
		}
		ratings[p.Team] = p.WTRating
		names = append(names, p.Team)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no market priors for season %d", season)
	}

	teams := models.NewTeamIndex(names...)
	b := &Beliefs{
		teams: teams,
		Mean:  make([]float64, teams.Len()),
		Stdev: make([]float64, teams.Len()),
	}
	for i := 0; i < teams.Len(); i++ {
		b.Mean[i] = ratings[teams.Name(i)]
		b.Stdev[i] = priorStdev
	}
	return b, nil
}

// Teams returns the index the belief arrays are laid out by
func (b *Beliefs) Teams() *models.TeamIndex {
	return b.teams
}

// Lookup returns the current belief for a team. A team with no belief is an
// error, never a zero rating.
func (b *Beliefs) Lookup(team string) (mean, stdev float64, err error) {
	id, err := b.teams.ID(team)
	if err != nil {
		return 0, 0, fmt.Errorf("belief lookup: %w", err)
	}
	return b.Mean[id], b.Stdev[id], nil
}
