package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nflsrs/ratings/internal/models"
	"nflsrs/ratings/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	games  []*models.Game
	qbs    []models.QBGame
	priors []models.MarketPrior
}

func (r *recorder) UpsertGames(ctx context.Context, games []*models.Game) error {
	r.games = append(r.games, games...)
	return nil
}

func (r *recorder) InsertQBGames(ctx context.Context, qbs []models.QBGame) error {
	r.qbs = append(r.qbs, qbs...)
	return nil
}

func (r *recorder) UpsertPriors(ctx context.Context, priors []models.MarketPrior) error {
	r.priors = append(r.priors, priors...)
	return nil
}

func write(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadAndApply(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, GamesFile, `[
		{"game_id": "2023_01_DET_KC", "season": 2023, "week": 1, "game_type": "REG",
		 "gameday": "2023-09-07", "home_team": "KC", "away_team": "DET",
		 "result": -1, "spread_line": 4.5, "modeled_hfa": 1.6},
		{"game_id": "2023_02_KC_JAX", "season": 2023, "week": 2, "game_type": "REG",
		 "gameday": "2023-09-17", "home_team": "JAX", "away_team": "KC"}
	]`)
	write(t, dir, QBsFile, `[
		{"date": "2023-09-07", "season": 2023, "team1": "KC", "team2": "DET",
		 "qb1": "mahomes", "qb2": "goff", "qb1_value_pre": 160, "qb2_value_pre": 110,
		 "qbelo1_pre": 1650, "qbelo2_pre": 1540, "qbelo1_post": 1640, "qbelo2_post": 1550}
	]`)
	write(t, dir, PriorsFile, `[{"team": "KC", "season": 2023, "wt_rating": 6.1, "line_rating": 0}]`)

	data, err := Load(dir)
	require.NoError(t, err)

	require.Len(t, data.Games, 2)
	assert.Equal(t, time.Date(2023, time.September, 7, 0, 0, 0, 0, time.UTC), data.Games[0].GameDate)
	assert.Equal(t, -1.0, data.Games[0].Result.Float64)
	assert.True(t, data.Games[0].SpreadLine.Valid)
	assert.False(t, data.Games[1].Result.Valid)

	require.Len(t, data.QBs, 1)
	assert.Equal(t, "KC", data.QBs[0].HomeTeam)
	assert.Equal(t, 160.0, data.QBs[0].HomeQBValue)
	assert.Equal(t, 1640.0, data.QBs[0].HomeEloPost.Float64)
	assert.Equal(t, 0, data.QBs[0].Week, "Weeks are assigned at run time")

	rec := &recorder{}
	require.NoError(t, data.Apply(context.Background(), rec))
	assert.Len(t, rec.games, 2)
	assert.Len(t, rec.qbs, 1)
	assert.Len(t, rec.priors, 1)
}

func TestLoad_MissingFilesAreSkipped(t *testing.T) {
	data, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, data.Games)
	assert.NoError(t, data.Apply(context.Background(), &recorder{}))
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, GamesFile, `{not json`)
	_, err := Load(dir)
	assert.Error(t, err)

	dir = t.TempDir()
	write(t, dir, GamesFile, `[{"season": 2023}]`)
	_, err = Load(dir)
	assert.ErrorContains(t, err, "no game_id")

	dir = t.TempDir()
	write(t, dir, QBsFile, `[{"date": "09/07/2023"}]`)
	_, err = Load(dir)
	assert.ErrorContains(t, err, "invalid qb game date")
}

func TestApply_EstimatesMissingHFAOnLoad(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, GamesFile, `[
		{"game_id": "2021_01_A_B", "season": 2021, "week": 1, "game_type": "REG",
		 "gameday": "2021-09-12", "home_team": "B", "away_team": "A", "result": 10},
		{"game_id": "2021_02_B_A", "season": 2021, "week": 2, "game_type": "REG",
		 "gameday": "2021-09-19", "home_team": "A", "away_team": "B", "result": 6},
		{"game_id": "2022_01_A_B", "season": 2022, "week": 1, "game_type": "REG",
		 "gameday": "2022-09-11", "home_team": "B", "away_team": "A"}
	]`)

	data, err := Load(dir)
	require.NoError(t, err)

	ctx := context.Background()
	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "series.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, data.Apply(ctx, s))

	games, err := s.LoadGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 3)

	// 2022 trails 2021's mean home margin
	assert.Equal(t, "2022_01_A_B", games[2].GameID)
	assert.InDelta(t, 8.0, games[2].ModeledHFA, 1e-9)
	assert.True(t, games[2].HFAMissing)
	assert.Equal(t, 0.0, games[0].ModeledHFA, "First season has no history")
}
