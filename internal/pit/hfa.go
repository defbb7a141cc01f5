package pit

import (
	"math"
	"sort"

	"nflsrs/ratings/internal/models"
)

const (
	hfaSpan = 5

	// Played without crowds; its home margin says nothing about other years
	noCrowdSeason = 2020
)

// ModeledHFA estimates each season's home field advantage from prior seasons
// only. Each season gets an exponentially weighted mean of the previous
// seasons' average regular season home margin. The no-crowd season is
// excluded from the average and fixed at zero. A season with no history is
// zero.
func ModeledHFA(games []*models.Game) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	seasonSet := make(map[int]struct{})
	for _, g := range games {
		seasonSet[g.Season] = struct{}{}
		if !g.IsRegularSeason() || !g.Result.Valid {
			continue
		}
		sums[g.Season] += g.Result.Float64
		counts[g.Season]++
	}

	seasons := make([]int, 0, len(seasonSet))
	for s := range seasonSet {
		seasons = append(seasons, s)
	}
	sort.Ints(seasons)

	// lastMargin[i] is the average margin of the season before seasons[i]
	lastMargin := make([]float64, len(seasons))
	for i := range seasons {
		lastMargin[i] = math.NaN()
		if i == 0 {
			continue
		}
		prev := seasons[i-1]
		if counts[prev] > 0 {
			lastMargin[i] = sums[prev] / float64(counts[prev])
		}
	}

	alpha := 2.0 / (hfaSpan + 1)
	decay := 1 - alpha

	out := make(map[int]float64, len(seasons))
	var num, den float64
	for i, s := range seasons {
		if s == noCrowdSeason {
			out[s] = 0
			continue
		}
		num *= decay
		den *= decay
		if !math.IsNaN(lastMargin[i]) {
			num += lastMargin[i]
			den++
		}
		if den == 0 {
			out[s] = 0
			continue
		}
		out[s] = num / den
	}
	return out
}

// ApplyModeledHFA sets ModeledHFA on every game from the per-season estimate
func ApplyModeledHFA(games []*models.Game, hfa map[int]float64) {
	for _, g := range games {
		g.ModeledHFA = hfa[g.Season]
	}
}
