package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameInput_ToGame(t *testing.T) {
	result, spread, hfa := 7.0, -3.5, 1.6
	in := GameInput{
		GameID:     "2022_01_BUF_LA",
		Season:     2022,
		Week:       1,
		GameType:   GameTypeRegular,
		GameDay:    "2022-09-08",
		HomeTeam:   "LA",
		AwayTeam:   "BUF",
		Result:     &result,
		SpreadLine: &spread,
		ModeledHFA: &hfa,
	}

	g := in.ToGame()
	assert.Equal(t, time.Date(2022, time.September, 8, 0, 0, 0, 0, time.UTC), g.GameDate)
	assert.True(t, g.IsPlayed())
	assert.True(t, g.IsRegularSeason())
	assert.Equal(t, 7.0, g.Result.Float64)
	assert.Equal(t, -3.5, g.SpreadLine.Float64)
	assert.Equal(t, 1.6, g.StoredHFA().Float64)
	assert.True(t, g.StoredHFA().Valid)

	in.Result, in.SpreadLine, in.ModeledHFA = nil, nil, nil
	g = in.ToGame()
	assert.False(t, g.IsPlayed())
	assert.False(t, g.SpreadLine.Valid)
	assert.True(t, g.HFAMissing)
	assert.False(t, g.StoredHFA().Valid)
}

func TestQBGameInput_ToQBGame(t *testing.T) {
	post := 1530.0
	in := QBGameInput{
		Date:        "2022-09-11",
		Season:      2022,
		Team1:       "KC",
		Team2:       "ARI",
		QB1:         "Patrick Mahomes",
		QB2:         "Kyler Murray",
		QB1ValuePre: 210,
		QB2ValuePre: 150,
		QBElo1Pre:   1600,
		QBElo2Pre:   1450,
		QBElo1Post:  &post,
		QB1Adj:      30,
	}

	q, err := in.ToQBGame()
	require.NoError(t, err)
	assert.Equal(t, "KC", q.HomeTeam)
	assert.Equal(t, 0, q.Week, "Week is assigned later")
	assert.True(t, q.HomeEloPost.Valid)
	assert.False(t, q.AwayEloPost.Valid)

	in.Date = "09/11/2022"
	_, err = in.ToQBGame()
	assert.Error(t, err)
}

func TestCutBefore(t *testing.T) {
	assert.True(t, Cut{2021, 18}.Before(Cut{2022, 1}))
	assert.True(t, Cut{2022, 1}.Before(Cut{2022, 2}))
	assert.False(t, Cut{2022, 2}.Before(Cut{2022, 2}))
}

func TestTeamIndex(t *testing.T) {
	idx := NewTeamIndex("NYJ", "BUF", "MIA", "BUF")
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, []string{"BUF", "MIA", "NYJ"}, idx.Names())

	id, err := idx.ID("MIA")
	require.NoError(t, err)
	assert.Equal(t, "MIA", idx.Name(id))

	_, err = idx.ID("NE")
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestRatingRowColumn(t *testing.T) {
	row := RatingRow{SRSRating: 3.2}
	v, ok := row.Column("srs_rating")
	assert.True(t, ok)
	assert.Equal(t, 3.2, v)

	_, ok = row.Column("avg_mov")
	assert.False(t, ok, "Missing average margin")

	_, ok = row.Column("elo")
	assert.False(t, ok)
}
