//go:build integration

package repository

import (
	"database/sql"
	"testing"
	"time"

	"nflsrs/ratings/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGame(id string, season, week int, home, away string, result *float64) *models.Game {
	g := &models.Game{
		GameID:     id,
		Season:     season,
		Week:       week,
		GameType:   models.GameTypeRegular,
		GameDate:   time.Date(season, time.September, 7+7*week, 0, 0, 0, 0, time.UTC),
		HomeTeam:   home,
		AwayTeam:   away,
		ModeledHFA: 1.5,
	}
	if result != nil {
		g.Result = sql.NullFloat64{Float64: *result, Valid: true}
	}
	return g
}

func f(v float64) *float64 { return &v }

func TestGameRepository_Upsert(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := testGame("2023_01_DET_KC", 2023, 1, "KC", "DET", nil)
	require.NoError(t, db.Games.Upsert(ctx, []*models.Game{game}))

	games, err := db.Games.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "KC", games[0].HomeTeam)
	assert.False(t, games[0].Result.Valid)

	// Score the game
	game.Result = sql.NullFloat64{Float64: -1, Valid: true}
	require.NoError(t, db.Games.Upsert(ctx, []*models.Game{game}))

	games, err = db.Games.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.True(t, games[0].Result.Valid)
	assert.Equal(t, -1.0, games[0].Result.Float64)
	assert.Equal(t, 1.5, games[0].ModeledHFA)

	count, err := db.Games.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGameRepository_LoadAllFillsMissingHFA(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	unmodeled := testGame("2023_01_A_B", 2023, 1, "B", "A", nil)
	unmodeled.HFAMissing = true
	require.NoError(t, db.Games.Upsert(ctx, []*models.Game{
		testGame("2022_01_A_B", 2022, 1, "B", "A", f(4)),
		testGame("2022_02_B_A", 2022, 2, "A", "B", f(2)),
		unmodeled,
	}))

	var stored sql.NullFloat64
	err := db.Pool.QueryRow(ctx, `SELECT modeled_hfa FROM games WHERE game_id = '2023_01_A_B'`).Scan(&stored)
	require.NoError(t, err)
	assert.False(t, stored.Valid, "Missing modeled HFA is stored as NULL")

	games, err := db.Games.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, games, 3)

	// 2023 trails 2022's mean home margin
	assert.InDelta(t, 3.0, games[2].ModeledHFA, 1e-9)
	assert.True(t, games[2].HFAMissing)
}

func TestQBAndPriorRepositories(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	day := time.Date(2023, time.September, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.QBs.Insert(ctx, []models.QBGame{{
		Date: day, Season: 2023, HomeTeam: "KC", AwayTeam: "DET",
		HomeQB: "mahomes", AwayQB: "goff", HomeQBValue: 150, AwayQBValue: 110,
	}}))
	require.NoError(t, db.Priors.Upsert(ctx, []models.MarketPrior{
		{Team: "KC", Season: 2023, WTRating: 6},
		{Team: "DET", Season: 2023, WTRating: 3},
	}))

	qbs, err := db.LoadQBGames(ctx)
	require.NoError(t, err)
	require.Len(t, qbs, 1)
	assert.Equal(t, "mahomes", qbs[0].HomeQB)
	assert.Equal(t, 0, qbs[0].Week)

	priors, err := db.LoadPriors(ctx)
	require.NoError(t, err)
	require.Len(t, priors, 2)
	assert.Equal(t, "DET", priors[0].Team)

	// Upsert overwrites
	require.NoError(t, db.Priors.Upsert(ctx, []models.MarketPrior{{Team: "KC", Season: 2023, WTRating: 7}}))
	priors, err = db.LoadPriors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7.0, priors[1].WTRating)
}
