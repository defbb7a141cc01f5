package evaluation

import (
	"math"
	"sort"

	"nflsrs/ratings/internal/models"
)

// Rows with this many games played or more have no meaningful future margin
const maxGamesPlayed = 16

// Weeks whose games are predicted from the previous week's ratings
const (
	firstPredictedWeek = 2
	lastPredictedWeek  = 18
)

// Score is one metric value for one rating column and group. Group is games
// played for R squared and week for RMSE.
type Score struct {
	Metric string  `db:"metric" json:"metric"`
	Column string  `db:"column_name" json:"column"`
	Group  int     `db:"grp" json:"group"`
	Value  float64 `db:"value" json:"value"`
	N      int     `db:"n" json:"n"`
}

type sample struct {
	ratings  []float64
	outcomes []float64
}

type seasonTeam struct {
	season int
	team   string
}

// FutureMargin returns each row's average margin over the rest of the season
// with fewer than 16 games played. The season's last such row is the end
// point. The bool is false when it is undefined.
func FutureMargin(rows []models.RatingRow) ([]float64, []bool) {
	last := make(map[seasonTeam]models.RatingRow)
	for _, r := range rows {
		if r.GamesPlayed >= maxGamesPlayed {
			continue
		}
		key := seasonTeam{r.Season, r.Team}
		if prev, ok := last[key]; !ok || prev.Week <= r.Week {
			last[key] = r
		}
	}

	future := make([]float64, len(rows))
	ok := make([]bool, len(rows))
	for i, r := range rows {
		if r.GamesPlayed >= maxGamesPlayed || !r.AvgMOV.Valid {
			continue
		}
		end := last[seasonTeam{r.Season, r.Team}]
		if !end.AvgMOV.Valid || end.GamesPlayed == r.GamesPlayed {
			continue
		}
		total := float64(end.GamesPlayed)*end.AvgMOV.Float64 - float64(r.GamesPlayed)*r.AvgMOV.Float64
		future[i] = total / float64(end.GamesPlayed-r.GamesPlayed)
		ok[i] = true
	}
	return future, ok
}

// RSQByGamesPlayed scores how well each rating column explains future margin,
// grouped by games played
func RSQByGamesPlayed(rows []models.RatingRow) []Score {
	future, ok := FutureMargin(rows)

	groups := make(map[int]map[string]*sample)
	for i, r := range rows {
		if !ok[i] {
			continue
		}
		byColumn, exists := groups[r.GamesPlayed]
		if !exists {
			byColumn = make(map[string]*sample)
			groups[r.GamesPlayed] = byColumn
		}
		for _, col := range models.RatingColumns {
			v, valid := r.Column(col)
			if !valid {
				continue
			}
			s := byColumn[col]
			if s == nil {
				s = &sample{}
				byColumn[col] = s
			}
			s.ratings = append(s.ratings, v)
			s.outcomes = append(s.outcomes, future[i])
		}
	}

	return score(MetricRSQ, groups)
}

type seasonWeekTeam struct {
	season int
	week   int
	team   string
}

// RMSEByWeek scores each column's prediction of every game from the ratings
// of the week before, as home + home field - away
func RMSEByWeek(rows []models.RatingRow, games []*models.Game) []Score {
	index := make(map[seasonWeekTeam]*models.RatingRow, len(rows))
	for i := range rows {
		r := &rows[i]
		index[seasonWeekTeam{r.Season, r.Week, r.Team}] = r
	}

	groups := make(map[int]map[string]*sample)
	for _, g := range games {
		if g.Week < firstPredictedWeek || g.Week > lastPredictedWeek || !g.Result.Valid {
			continue
		}
		home := index[seasonWeekTeam{g.Season, g.Week - 1, g.HomeTeam}]
		away := index[seasonWeekTeam{g.Season, g.Week - 1, g.AwayTeam}]
		if home == nil || away == nil {
			continue
		}

		byColumn, exists := groups[g.Week]
		if !exists {
			byColumn = make(map[string]*sample)
			groups[g.Week] = byColumn
		}
		for _, col := range models.RatingColumns {
			h, hok := home.Column(col)
			a, aok := away.Column(col)
			if !hok || !aok {
				continue
			}
			s := byColumn[col]
			if s == nil {
				s = &sample{}
				byColumn[col] = s
			}
			s.ratings = append(s.ratings, h+g.ModeledHFA-a)
			s.outcomes = append(s.outcomes, g.Result.Float64)
		}
	}

	return score(MetricRMSE, groups)
}

// Evaluate runs both reports
func Evaluate(rows []models.RatingRow, games []*models.Game) []Score {
	return append(RSQByGamesPlayed(rows), RMSEByWeek(rows, games)...)
}

func score(metric string, groups map[int]map[string]*sample) []Score {
	fn := Metrics[metric]

	keys := make([]int, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var out []Score
	for _, k := range keys {
		for _, col := range models.RatingColumns {
			s, ok := groups[k][col]
			if !ok {
				continue
			}
			out = append(out, Score{
				Metric: metric,
				Column: col,
				Group:  k,
				Value:  fn(s.ratings, s.outcomes),
				N:      len(s.ratings),
			})
		}
	}
	return out
}

// Best returns the column with the highest R squared or lowest RMSE among
// scores of one metric and group
func Best(scores []Score, metric string, group int) (Score, bool) {
	var best Score
	found := false
	for _, s := range scores {
		if s.Metric != metric || s.Group != group || math.IsNaN(s.Value) {
			continue
		}
		better := s.Value > best.Value
		if metric == MetricRMSE {
			better = s.Value < best.Value
		}
		if !found || better {
			best = s
			found = true
		}
	}
	return best, found
}
