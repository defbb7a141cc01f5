package qbadj

import (
	"sort"

	"nflsrs/ratings/internal/models"
)

type isoWeek struct {
	season int
	year   int
	week   int
}

// AssignWeeks returns a copy of rows with Week set to the ordinal week of the
// season. Games are bucketed by ISO calendar week after shifting back one day,
// so a Monday night game belongs to the preceding weekend. Rows come back in
// date order.
func AssignWeeks(rows []models.QBGame) []models.QBGame {
	out := make([]models.QBGame, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	ordinal := make(map[isoWeek]int)
	perSeason := make(map[int]int)
	for i := range out {
		year, week := out[i].Date.AddDate(0, 0, -1).ISOWeek()
		key := isoWeek{season: out[i].Season, year: year, week: week}
		n, ok := ordinal[key]
		if !ok {
			perSeason[out[i].Season]++
			n = perSeason[out[i].Season]
			ordinal[key] = n
		}
		out[i].Week = n
	}

	return out
}
