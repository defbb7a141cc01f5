package cache

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"nflsrs/ratings/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCutKey(t *testing.T) {
	assert.Equal(t, "srs:ratings:2023:7", CutKey(models.Cut{Season: 2023, Week: 7}))
}

func TestNewPayload_FiltersToCut(t *testing.T) {
	now := time.Date(2023, time.October, 24, 6, 0, 0, 0, time.UTC)
	rows := []models.RatingRow{
		{Season: 2023, Week: 6, Team: "KC", SRSRating: 5},
		{Season: 2023, Week: 7, Team: "KC", GamesPlayed: 7, AvgMOV: sql.NullFloat64{Float64: 8.5, Valid: true}, SRSRating: 6},
		{Season: 2023, Week: 7, Team: "NYG", SRSRating: -9},
	}

	p := NewPayload("run-1", models.Cut{Season: 2023, Week: 7}, rows, now)

	assert.Equal(t, "run-1", p.RunID)
	assert.Equal(t, now, p.PublishedAt)
	require.Len(t, p.Ratings, 2)
	assert.Equal(t, "KC", p.Ratings[0].Team)
	require.NotNil(t, p.Ratings[0].AvgMOV)
	assert.Equal(t, 8.5, *p.Ratings[0].AvgMOV)
	assert.Nil(t, p.Ratings[1].AvgMOV)
}

func TestPayload_MissingMarginsEncodeAsNull(t *testing.T) {
	p := NewPayload("run-1", models.Cut{Season: 2023, Week: 0},
		[]models.RatingRow{{Season: 2023, Week: 0, Team: "DET"}}, time.Now())

	body, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	ratings := decoded["ratings"].([]any)
	first := ratings[0].(map[string]any)
	assert.Nil(t, first["avg_mov"])
	assert.Contains(t, first, "avg_mov")
}
