package pit

import (
	"database/sql"
	"fmt"

	"nflsrs/ratings/internal/bayes"
	"nflsrs/ratings/internal/models"
	"nflsrs/ratings/internal/qbadj"
)

// SyntheticBuilder turns a season's schedule into the game list seen from a
// cut: real results through the cut and belief-implied margins after it.
type SyntheticBuilder struct {
	season  int
	cutWeek int
}

// NewSyntheticBuilder creates a builder for one cut
func NewSyntheticBuilder(season, cutWeek int) *SyntheticBuilder {
	return &SyntheticBuilder{season: season, cutWeek: cutWeek}
}

// Attach copies the season's games and joins both starters' QB adjustments.
// Games with no adjustment, including every future game, get 0.
func (b *SyntheticBuilder) Attach(games []*models.Game, adj *qbadj.Adjustments) []*models.SnapshotGame {
	out := make([]*models.SnapshotGame, 0, 272)
	for _, g := range games {
		if g.Season != b.season {
			continue
		}
		sg := &models.SnapshotGame{Game: *g}
		if adj != nil {
			sg.HomeQBAdj = adj.ForGame(g.GameID, g.HomeTeam)
			sg.AwayQBAdj = adj.ForGame(g.GameID, g.AwayTeam)
		}
		if g.Week <= b.cutWeek {
			sg.ResultForRating = g.Result
		}
		out = append(out, sg)
	}
	return out
}

// Fill sets the result for rating of every game after the cut to the spread
// implied by current beliefs. No QB adjustment is applied to the filled
// margin.
func (b *SyntheticBuilder) Fill(games []*models.SnapshotGame, beliefs *bayes.Beliefs) error {
	for _, g := range games {
		if g.Week <= b.cutWeek {
			continue
		}
		home, _, err := beliefs.Lookup(g.HomeTeam)
		if err != nil {
			return fmt.Errorf("synthetic result for %s: %w", g.GameID, err)
		}
		away, _, err := beliefs.Lookup(g.AwayTeam)
		if err != nil {
			return fmt.Errorf("synthetic result for %s: %w", g.GameID, err)
		}
		g.ResultForRating = sql.NullFloat64{Float64: home + g.ModeledHFA - away, Valid: true}
		g.Synthetic = true
	}
	return nil
}
