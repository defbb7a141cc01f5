package srs

import (
	"bytes"
	"database/sql"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"nflsrs/ratings/internal/bayes"
	"nflsrs/ratings/internal/models"
	"nflsrs/ratings/internal/pit"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testGame(id string, week int, home, away string, result *float64, hfa float64) *models.Game {
	g := &models.Game{
		GameID:     id,
		Season:     2023,
		Week:       week,
		GameType:   models.GameTypeRegular,
		GameDate:   time.Date(2023, 9, 1+7*week, 13, 0, 0, 0, time.UTC),
		HomeTeam:   home,
		AwayTeam:   away,
		ModeledHFA: hfa,
	}
	if result != nil {
		g.Result = sql.NullFloat64{Float64: *result, Valid: true}
	}
	return g
}

func ptr(v float64) *float64 { return &v }

func testConfig() pit.Config {
	return pit.Config{
		Distributions: bayes.Distributions{Margins: 13.5, Rankings: 4},
		QBValueScale:  25,
	}
}

// league builds a 32 team round robin season with the circle method
func league(weeks int, seed int64) pit.Inputs {
	const n = 32
	rng := rand.New(rand.NewSource(seed))

	teams := make([]string, n)
	var priors []models.MarketPrior
	for i := range teams {
		teams[i] = fmt.Sprintf("T%02d", i)
		priors = append(priors, models.MarketPrior{Team: teams[i], Season: 2023, WTRating: rng.NormFloat64() * 5})
	}

	var games []*models.Game
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for w := 1; w <= weeks; w++ {
		for i := 0; i < n/2; i++ {
			h, a := teams[order[i]], teams[order[n-1-i]]
			if w%2 == 0 {
				h, a = a, h
			}
			games = append(games, testGame(fmt.Sprintf("%d_%s_%s", w, h, a), w, h, a, ptr(math.Round(rng.NormFloat64()*13)), 1.5))
		}
		// rotate everything but the first slot
		last := order[n-1]
		copy(order[2:], order[1:n-1])
		order[1] = last
	}

	return pit.Inputs{Games: games, Priors: priors}
}

func TestSolve_TwoTeamScenario(t *testing.T) {
	in := pit.Inputs{
		Games: []*models.Game{testGame("g1", 1, "HOM", "AWY", ptr(10), 2)},
		Priors: []models.MarketPrior{
			{Team: "HOM", Season: 2023, WTRating: 1},
			{Team: "AWY", Season: 2023, WTRating: -1},
		},
	}
	snap, err := pit.Build(in, 2023, 1, testConfig())
	require.NoError(t, err)

	rows, err := NewSolver(Config{RoundDecimals: 2}).Solve(snap)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byTeam := map[string]models.RatingRow{rows[0].Team: rows[0], rows[1].Team: rows[1]}
	assert.Equal(t, 4.0, byTeam["HOM"].SRSRating)
	assert.Equal(t, -4.0, byTeam["AWY"].SRSRating)

	assert.Equal(t, 1, byTeam["HOM"].GamesPlayed)
	assert.Equal(t, sql.NullFloat64{Float64: 10, Valid: true}, byTeam["HOM"].AvgMOV)
	assert.Equal(t, sql.NullFloat64{Float64: -10, Valid: true}, byTeam["AWY"].AvgMOV)
	assert.False(t, byTeam["HOM"].AvgMOVOfOpponents.Valid, "Only opponent game was against the team")

	// Normalized span matches the belief span
	bayesSpan := byTeam["HOM"].BayesianRating - byTeam["AWY"].BayesianRating
	assert.InDelta(t, bayesSpan, byTeam["HOM"].SRSRatingNormalized-byTeam["AWY"].SRSRatingNormalized, 0.02)
	assert.Equal(t, 1.0, byTeam["HOM"].PreSeasonWTRating)
}

func TestBuildSystem_RowsSumToZero(t *testing.T) {
	// five teams meeting four times each: 16 games per team
	teams := []string{"A", "B", "C", "D", "E"}
	var games []*models.SnapshotGame
	rng := rand.New(rand.NewSource(7))
	for rep := 0; rep < 4; rep++ {
		for i := range teams {
			for j := i + 1; j < len(teams); j++ {
				h, a := teams[i], teams[j]
				if rep%2 == 1 {
					h, a = a, h
				}
				g := testGame("", 1+rep, h, a, ptr(rng.NormFloat64()*10), 2)
				games = append(games, &models.SnapshotGame{Game: *g, ResultForRating: g.Result})
			}
		}
	}

	idx := models.NewTeamIndex(teams...)
	sys, err := buildSystem(idx, games)
	require.NoError(t, err)

	for i := 0; i < idx.Len(); i++ {
		assert.Equal(t, 16.0, sys.games[i])
		assert.InDelta(t, 1.0, sys.coef.At(i, i), 1e-12)

		off := 0.0
		for j := 0; j < idx.Len(); j++ {
			if j != i {
				off += sys.coef.At(i, j)
			}
		}
		assert.InDelta(t, -1.0, off, 1e-12, "team %s", idx.Name(i))
	}
}

func TestSolve_Deterministic(t *testing.T) {
	snap, err := pit.Build(league(17, 3), 2023, 9, testConfig())
	require.NoError(t, err)

	solver := NewSolver(Config{RoundDecimals: 2})
	first, err := solver.Solve(snap)
	require.NoError(t, err)
	second, err := solver.Solve(snap)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSolve_LaplacianFallbackIsNotAWarning(t *testing.T) {
	snap, err := pit.Build(league(17, 5), 2023, 9, testConfig())
	require.NoError(t, err)

	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.WarnLevel)
	defer func() { log.Logger = prev }()

	_, err = NewSolver(Config{RoundDecimals: 2}).Solve(snap)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "Exact SRS solve failed")

	assert.Equal(t, zerolog.DebugLevel, fallbackLevel("singular"))
	assert.Equal(t, zerolog.DebugLevel, fallbackLevel("ill_conditioned"))
	assert.Equal(t, zerolog.WarnLevel, fallbackLevel("error"))
}

func TestSolve_OneRowPerTeam(t *testing.T) {
	in := league(17, 11)
	solver := NewSolver(Config{RoundDecimals: 2})

	for _, week := range []int{0, 1, 8, 17} {
		snap, err := pit.Build(in, 2023, week, testConfig())
		require.NoError(t, err)

		rows, err := solver.Solve(snap)
		require.NoError(t, err)
		assert.Len(t, rows, 32)

		seen := make(map[string]bool)
		for _, r := range rows {
			assert.False(t, seen[r.Team], "duplicate %s", r.Team)
			seen[r.Team] = true
			assert.Equal(t, week, r.Week)
			assert.False(t, math.IsNaN(r.SRSRatingNormalized))

			if week == 0 {
				assert.False(t, r.AvgMOV.Valid)
				assert.Equal(t, 0, r.GamesPlayed)
			} else {
				assert.True(t, r.AvgMOV.Valid)
				assert.Equal(t, week, r.GamesPlayed)
			}
		}
	}
}

func TestSolve_RecoversStrengthOrder(t *testing.T) {
	// Deterministic margins from known strengths are recovered exactly
	strength := map[string]float64{"A": 6, "B": 2, "C": -1, "D": -7}
	names := []string{"A", "B", "C", "D"}
	var games []*models.Game
	week := 0
	for i := range names {
		for j := range names {
			if i == j {
				continue
			}
			week++
			h, a := names[i], names[j]
			games = append(games, testGame(fmt.Sprintf("g%d", week), week, h, a, ptr(strength[h]-strength[a]+2), 2))
		}
	}
	var priors []models.MarketPrior
	for _, n := range names {
		priors = append(priors, models.MarketPrior{Team: n, Season: 2023})
	}

	snap, err := pit.Build(pit.Inputs{Games: games, Priors: priors}, 2023, week, testConfig())
	require.NoError(t, err)
	rows, err := NewSolver(Config{RoundDecimals: 2}).Solve(snap)
	require.NoError(t, err)

	// median of 6, 2, -1, -7 is 0.5
	for _, r := range rows {
		assert.InDelta(t, strength[r.Team]-0.5, r.SRSRating, 0.011, r.Team)
	}
}

func TestSolve_ZeroSpreadGuard(t *testing.T) {
	in := league(4, 5)
	for i := range in.Priors {
		in.Priors[i].WTRating = 0
	}
	for _, g := range in.Games {
		g.ModeledHFA = 0
	}

	// Week 0: every margin is synthetic and every belief is identical
	snap, err := pit.Build(in, 2023, 0, testConfig())
	require.NoError(t, err)

	rows, err := NewSolver(Config{RoundDecimals: 2}).Solve(snap)
	require.NoError(t, err)
	for _, r := range rows {
		assert.Equal(t, 0.0, r.SRSRating)
		assert.Equal(t, 0.0, r.SRSRatingNormalized)
		assert.False(t, math.IsNaN(r.SRSRatingNormalized) || math.IsInf(r.SRSRatingNormalized, 0))
	}
}

func TestSolve_MissingBelief(t *testing.T) {
	in := pit.Inputs{
		Games: []*models.Game{
			testGame("g1", 1, "A", "B", ptr(3), 0),
			testGame("g2", 2, "A", "C", nil, 0),
		},
		Priors: []models.MarketPrior{
			{Team: "A", Season: 2023},
			{Team: "B", Season: 2023},
			{Team: "C", Season: 2023},
		},
	}
	snap, err := pit.Build(in, 2023, 1, testConfig())
	require.NoError(t, err)

	beliefs, err := bayes.NewBeliefs(in.Priors[:2], 2023, 4)
	require.NoError(t, err)
	snap.Beliefs = beliefs

	_, err = NewSolver(Config{}).Solve(snap)
	assert.ErrorIs(t, err, models.ErrTeamNotFound)
}

func TestSolve_QBAdjustedColumns(t *testing.T) {
	in := league(3, 9)
	in.QBs = []models.QBGame{
		{Season: 2023, Week: 1, HomeTeam: in.Games[0].HomeTeam, AwayTeam: in.Games[0].AwayTeam, HomeQB: "starter", AwayQB: "x", HomeQBValue: 200, AwayQBValue: 100},
		{Season: 2023, Week: 2, HomeTeam: in.Games[16].HomeTeam, AwayTeam: in.Games[16].AwayTeam, HomeQB: "y", AwayQB: "z", HomeQBValue: 100, AwayQBValue: 100},
	}
	snap, err := pit.Build(in, 2023, 2, testConfig())
	require.NoError(t, err)

	rows, err := NewSolver(Config{RoundDecimals: 2}).Solve(snap)
	require.NoError(t, err)

	for _, r := range rows {
		assert.InDelta(t, r.BayesianRating+r.QBAdjustment, r.BayesianRatingWithQBAdj, 0.011)
		assert.InDelta(t, r.PreSeasonWTRating+r.QBAdjustment, r.PreSeasonWTRatingWithQBAdj, 0.011)
		assert.InDelta(t, r.SRSRating+r.QBAdjustment, r.SRSRatingWithQBAdj, 0.011)
		assert.LessOrEqual(t, r.QBAdjustment, 0.0)
	}
}

func TestAverageMargins(t *testing.T) {
	played := func(week int, home, away string, result float64) *models.SnapshotGame {
		return &models.SnapshotGame{Game: *testGame("", week, home, away, ptr(result), 0)}
	}
	games := []*models.SnapshotGame{
		played(1, "A", "B", 10),
		played(1, "B", "C", 4),
		played(2, "A", "C", 2),
		played(2, "D", "B", 3),
		played(3, "E", "A", 99),
		{Game: *testGame("", 2, "E", "F", nil, 0)},
	}

	m := averageMargins(games, 2)

	assert.Equal(t, 2, m["A"].gamesPlayed)
	assert.InDelta(t, 6.0, m["A"].avg.Float64, 1e-12)
	// B without A: +4, -3 -> 0.5; C without A: -4
	assert.InDelta(t, -1.75, m["A"].oppAvg.Float64, 1e-12)

	// B without D: -10, +4
	assert.InDelta(t, 3.0, m["D"].avg.Float64, 1e-12)
	assert.InDelta(t, -3.0, m["D"].oppAvg.Float64, 1e-12)

	_, ok := m["E"]
	assert.False(t, ok, "Week 3 and unscored games are not counted")
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
}

func TestSystemSolve(t *testing.T) {
	exact := &system{
		coef:   mat.NewDense(2, 2, []float64{2, 0, 0, 4}),
		consts: mat.NewVecDense(2, []float64{2, 8}),
	}
	x, reason, err := exact.solve()
	require.NoError(t, err)
	assert.Empty(t, reason)
	assert.InDeltaSlice(t, []float64{1, 2}, x, 1e-12)

	laplacian := &system{
		coef:   mat.NewDense(2, 2, []float64{1, -1, -1, 1}),
		consts: mat.NewVecDense(2, []float64{8, -8}),
	}
	x, reason, err = laplacian.solve()
	require.NoError(t, err)
	assert.NotEmpty(t, reason)
	assert.InDeltaSlice(t, []float64{4, -4}, x, 1e-9)

	empty := &system{
		coef:   mat.NewDense(2, 2, nil),
		consts: mat.NewVecDense(2, nil),
	}
	x, _, err = empty.solve()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, x)
}
