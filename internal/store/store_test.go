package store

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	"nflsrs/ratings/internal/evaluation"
	"nflsrs/ratings/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "ratings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func game(id string, season, week int, home, away string, result float64, played bool) *models.Game {
	return &models.Game{
		GameID:   id,
		Season:   season,
		Week:     week,
		GameType: models.GameTypeRegular,
		GameDate: time.Date(season, time.September, 3+7*week, 0, 0, 0, 0, time.UTC),
		HomeTeam: home,
		AwayTeam: away,
		Result:   sql.NullFloat64{Float64: result, Valid: played},
	}
}

func row(season, week int, team string, rating float64) models.RatingRow {
	return models.RatingRow{
		Season:      season,
		Week:        week,
		Team:        team,
		GamesPlayed: week,
		AvgMOV:      sql.NullFloat64{Float64: rating, Valid: week > 0},
		SRSRating:   rating,
	}
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestOpenTwiceKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertPriors(ctx, []models.MarketPrior{{Team: "KC", Season: 2023, WTRating: 6}}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	priors, err := s.LoadPriors(ctx)
	require.NoError(t, err)
	assert.Len(t, priors, 1)
}

func TestGamesRoundTrip(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	g := game("2023_01_DET_KC", 2023, 1, "KC", "DET", 0, false)
	g.ModeledHFA = 1.25
	require.NoError(t, s.UpsertGames(ctx, []*models.Game{g}))

	g.Result = sql.NullFloat64{Float64: -1, Valid: true}
	require.NoError(t, s.UpsertGames(ctx, []*models.Game{g}))

	games, err := s.LoadGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, g.GameDate, games[0].GameDate)
	assert.Equal(t, -1.0, games[0].Result.Float64)
	assert.Equal(t, 1.25, games[0].ModeledHFA)
	assert.False(t, games[0].SpreadLine.Valid)
}

func TestQBGamesKeepFeedOrder(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	day := time.Date(2023, time.September, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.InsertQBGames(ctx, []models.QBGame{
		{Date: day.AddDate(0, 0, 7), Season: 2023, HomeTeam: "KC", AwayTeam: "JAX", HomeQB: "a", AwayQB: "b"},
		{Date: day, Season: 2023, HomeTeam: "KC", AwayTeam: "DET", HomeQB: "a", AwayQB: "c", HomeQBValue: 150},
	}))

	qbs, err := s.LoadQBGames(ctx)
	require.NoError(t, err)
	require.Len(t, qbs, 2)
	assert.Equal(t, "DET", qbs[0].AwayTeam)
	assert.Equal(t, 150.0, qbs[0].HomeQBValue)
}

func TestAppendRatingsIsIdempotent(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	_, ok, err := s.LatestCut(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	rows := []models.RatingRow{row(2023, 0, "KC", 0), row(2023, 1, "KC", 2.5)}
	n, err := s.AppendRatings(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.AppendRatings(ctx, append(rows, row(2023, 2, "KC", 3)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	cut, ok, err := s.LatestCut(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.Cut{Season: 2023, Week: 2}, cut)

	loaded, err := s.LoadRatings(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.False(t, loaded[0].AvgMOV.Valid)
	assert.Equal(t, 2.5, loaded[1].AvgMOV.Float64)
}

func TestReplaceRatings(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	_, err := s.AppendRatings(ctx, []models.RatingRow{row(2021, 4, "KC", 1)})
	require.NoError(t, err)
	require.NoError(t, s.ReplaceRatings(ctx, []models.RatingRow{row(2022, 0, "DET", 0)}))

	loaded, err := s.LoadRatings(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "DET", loaded[0].Team)
}

func TestSaveEvaluationStoresNaNAsNull(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	scores := []evaluation.Score{
		{Metric: evaluation.MetricRSQ, Column: "srs_rating", Group: 3, Value: 0.4, N: 32},
		{Metric: evaluation.MetricRSQ, Column: "avg_mov", Group: 3, Value: math.NaN(), N: 1},
	}
	require.NoError(t, s.SaveEvaluation(ctx, "run-1", scores))
	require.NoError(t, s.SaveEvaluation(ctx, "run-1", scores))

	var total, nulls int
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(value IS NULL) FROM rating_evaluations`).Scan(&total, &nulls))
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, nulls)
}

func TestExtractUp(t *testing.T) {
	assert.Equal(t, "\nA;\n", extractUp("-- +migrate Up\nA;\n-- +migrate Down\nB;"))
	assert.Equal(t, "A;", extractUp("A;"))
}
