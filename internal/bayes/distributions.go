package bayes

import (
	"sort"

	"nflsrs/ratings/internal/models"

	"gonum.org/v1/gonum/stat"
)

// Elo scale used by the historical quarterback-adjusted team ratings
const (
	EloCenter        = 1505.0
	EloPointsDivisor = 25.0

	// minFullSeasonGames drops seasons cut short from the rating fit
	minFullSeasonGames = 14
)

// TeamSeason is one team's rating at the start and end of a season
type TeamSeason struct {
	Team        string
	Season      int
	GamesPlayed int
	PreSeason   float64
	EndOfSeason float64
}

// EloToPoints converts a quarterback-adjusted Elo rating to points over an
// average team
func EloToPoints(elo, qbAdj float64) float64 {
	return (elo + qbAdj - EloCenter) / EloPointsDivisor
}

// TeamSeasonsFromElo flattens the quarterback feed into team seasons. The
// preseason rating is the first game's pre-game Elo and the end of season
// rating the last played game's post-game Elo, both net of the quarterback
// adjustment. Unplayed games are ignored.
func TeamSeasonsFromElo(qbs []models.QBGame) []TeamSeason {
	type side struct {
		key       TeamSeason
		pre, post float64
		date      int64
	}

	var sides []side
	for _, q := range qbs {
		if q.HomeEloPost.Valid {
			sides = append(sides, side{
				key:  TeamSeason{Team: q.HomeTeam, Season: q.Season},
				pre:  EloToPoints(q.HomeEloPre, q.HomeEloQBAdj),
				post: EloToPoints(q.HomeEloPost.Float64, q.HomeEloQBAdj),
				date: q.Date.Unix(),
			})
		}
		if q.AwayEloPost.Valid {
			sides = append(sides, side{
				key:  TeamSeason{Team: q.AwayTeam, Season: q.Season},
				pre:  EloToPoints(q.AwayEloPre, q.AwayEloQBAdj),
				post: EloToPoints(q.AwayEloPost.Float64, q.AwayEloQBAdj),
				date: q.Date.Unix(),
			})
		}
	}
	sort.SliceStable(sides, func(i, j int) bool { return sides[i].date < sides[j].date })

	index := make(map[TeamSeason]int)
	var out []TeamSeason
	for _, s := range sides {
		i, ok := index[s.key]
		if !ok {
			i = len(out)
			index[s.key] = i
			out = append(out, TeamSeason{Team: s.key.Team, Season: s.key.Season, PreSeason: s.pre})
		}
		out[i].GamesPlayed++
		out[i].EndOfSeason = s.post
	}
	return out
}

// FitMarginStdev returns the sample stdev of game margin against the spread
// over played games with a line
func FitMarginStdev(games []*models.Game) float64 {
	errs := make([]float64, 0, len(games))
	for _, g := range games {
		if !g.Result.Valid || !g.SpreadLine.Valid {
			continue
		}
		errs = append(errs, g.Result.Float64-g.SpreadLine.Float64)
	}
	if len(errs) < 2 {
		return 0
	}
	return stat.StdDev(errs, nil)
}

// FitRatingStdev returns the sample stdev of the change from preseason to
// end of season rating across complete team seasons
func FitRatingStdev(seasons []TeamSeason) float64 {
	deltas := make([]float64, 0, len(seasons))
	for _, s := range seasons {
		if s.GamesPlayed <= minFullSeasonGames {
			continue
		}
		deltas = append(deltas, s.EndOfSeason-s.PreSeason)
	}
	if len(deltas) < 2 {
		return 0
	}
	return stat.StdDev(deltas, nil)
}

// Fit estimates both distributions from history
func Fit(games []*models.Game, seasons []TeamSeason) Distributions {
	return Distributions{
		Margins:  FitMarginStdev(games),
		Rankings: FitRatingStdev(seasons),
	}
}
