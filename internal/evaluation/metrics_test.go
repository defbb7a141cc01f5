package evaluation

import (
	"database/sql"
	"math"
	"testing"

	"nflsrs/ratings/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsTable(t *testing.T) {
	assert.Equal(t, []string{"rmse", "rsq"}, MetricNames())
	for _, name := range MetricNames() {
		assert.NotNil(t, Metrics[name])
	}
}

func TestRSquared(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 1.0, RSquared(x, []float64{3, 5, 7, 9, 11}), 1e-12)
	assert.InDelta(t, 0.0, RSquared([]float64{2, 2, 2}, []float64{1, 5, 3}), 1e-12)
	assert.True(t, math.IsNaN(RSquared(x[:1], x[:1])))

	// y = x + noise of mean 0
	noisy := RSquared(x, []float64{1.5, 1.5, 3.5, 3.5, 5})
	assert.Greater(t, noisy, 0.5)
	assert.Less(t, noisy, 1.0)
}

func TestRMSE(t *testing.T) {
	assert.InDelta(t, 0.0, RMSE([]float64{1, 2}, []float64{1, 2}), 1e-12)
	assert.InDelta(t, math.Sqrt(12.5), RMSE([]float64{0, 0}, []float64{3, 4}), 1e-12)
	assert.True(t, math.IsNaN(RMSE(nil, nil)))
}

func row(season, week int, team string, gp int, avg float64, rating float64) models.RatingRow {
	return models.RatingRow{
		Season:         season,
		Week:           week,
		Team:           team,
		GamesPlayed:    gp,
		AvgMOV:         sql.NullFloat64{Float64: avg, Valid: gp > 0},
		SRSRating:      rating,
		BayesianRating: rating,
	}
}

func TestFutureMargin(t *testing.T) {
	rows := []models.RatingRow{
		row(2023, 0, "KC", 0, 0, 1),
		row(2023, 1, "KC", 1, 10, 1),
		row(2023, 2, "KC", 2, 4, 1),   // lost week 2 by 2
		row(2023, 3, "KC", 3, 5, 1),   // won week 3 by 7
		row(2023, 17, "KC", 16, 9, 1), // excluded
	}

	future, ok := FutureMargin(rows)

	assert.False(t, ok[0], "No average margin yet")
	require.True(t, ok[1])
	// (3*5 - 1*10) / 2
	assert.InDelta(t, 2.5, future[1], 1e-12)
	assert.InDelta(t, 7.0, future[2], 1e-12)
	assert.False(t, ok[3], "Last row has no future")
	assert.False(t, ok[4])
}

func TestRSQByGamesPlayed(t *testing.T) {
	var rows []models.RatingRow
	// The rating is exactly the future margin of each team
	for i, team := range []string{"A", "B", "C", "D"} {
		strength := float64(i*3 - 4)
		rows = append(rows,
			row(2023, 1, team, 1, 0, strength),
			row(2023, 2, team, 2, strength/2, strength),
		)
	}

	scores := RSQByGamesPlayed(rows)
	require.NotEmpty(t, scores)

	best, found := Best(scores, MetricRSQ, 1)
	require.True(t, found)
	assert.InDelta(t, 1.0, best.Value, 1e-9)
	assert.Equal(t, 4, best.N)

	for _, s := range scores {
		assert.Equal(t, MetricRSQ, s.Metric)
		assert.Equal(t, 1, s.Group)
	}
}

func TestRMSEByWeek(t *testing.T) {
	rows := []models.RatingRow{
		row(2023, 1, "A", 1, 3, 5),
		row(2023, 1, "B", 1, -3, 1),
	}
	games := []*models.Game{
		{Season: 2023, Week: 2, HomeTeam: "A", AwayTeam: "B", ModeledHFA: 2, Result: sql.NullFloat64{Float64: 10, Valid: true}},
		{Season: 2023, Week: 1, HomeTeam: "A", AwayTeam: "B", Result: sql.NullFloat64{Float64: 3, Valid: true}},
		{Season: 2023, Week: 3, HomeTeam: "B", AwayTeam: "A"},
	}

	scores := RMSEByWeek(rows, games)
	require.NotEmpty(t, scores)

	for _, s := range scores {
		assert.Equal(t, 2, s.Group)
		assert.Equal(t, 1, s.N)
		if s.Column == "srs_rating" {
			// predicted 5 + 2 - 1 = 6, actual 10
			assert.InDelta(t, 4.0, s.Value, 1e-12)
		}
		if s.Column == "avg_mov" {
			// predicted 3 + 2 + 3 = 8
			assert.InDelta(t, 2.0, s.Value, 1e-12)
		}
	}

	best, found := Best(scores, MetricRMSE, 2)
	require.True(t, found)
	assert.Equal(t, "avg_mov", best.Column)
	assert.InDelta(t, 2.0, best.Value, 1e-12)
}
