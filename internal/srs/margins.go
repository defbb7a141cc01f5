package srs

import (
	"database/sql"

	"nflsrs/ratings/internal/models"
)

type teamMargin struct {
	gamesPlayed int
	avg         sql.NullFloat64
	oppAvg      sql.NullFloat64
}

type pair struct {
	team     string
	opponent string
}

// averageMargins computes each team's average margin and the average margin
// of its opponents over played games through the cut. An opponent's margin
// excludes the games it played against the team being rated. Teams with no
// played games are absent from the result.
func averageMargins(games []*models.SnapshotGame, cutWeek int) map[string]teamMargin {
	type record struct {
		pair
		mov float64
	}

	records := make([]record, 0, 2*len(games))
	total := make(map[string]float64)
	count := make(map[string]int)
	pairTotal := make(map[pair]float64)
	pairCount := make(map[pair]int)

	add := func(team, opp string, mov float64) {
		p := pair{team, opp}
		records = append(records, record{p, mov})
		total[team] += mov
		count[team]++
		pairTotal[p] += mov
		pairCount[p]++
	}

	for _, g := range games {
		if g.Week > cutWeek || !g.Result.Valid {
			continue
		}
		add(g.HomeTeam, g.AwayTeam, g.Result.Float64)
		add(g.AwayTeam, g.HomeTeam, -g.Result.Float64)
	}

	oppSum := make(map[string]float64)
	oppN := make(map[string]int)
	for _, r := range records {
		reverse := pair{r.opponent, r.team}
		n := count[r.opponent] - pairCount[reverse]
		if n == 0 {
			continue
		}
		oppSum[r.team] += (total[r.opponent] - pairTotal[reverse]) / float64(n)
		oppN[r.team]++
	}

	out := make(map[string]teamMargin, len(count))
	for team, n := range count {
		m := teamMargin{
			gamesPlayed: n,
			avg:         sql.NullFloat64{Float64: total[team] / float64(n), Valid: true},
		}
		if oppN[team] > 0 {
			m.oppAvg = sql.NullFloat64{Float64: oppSum[team] / float64(oppN[team]), Valid: true}
		}
		out[team] = m
	}
	return out
}
