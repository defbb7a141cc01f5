package runner

import (
	"sort"

	"nflsrs/ratings/internal/models"
)

// SeasonState is the newest (season, week) with complete results
type SeasonState struct {
	Season int
	Week   int
}

// DetectSeasonState returns the latest season in games and the last week of
// that season through which every game has a result. Week is 0 when the
// season's first week is incomplete.
func DetectSeasonState(games []*models.Game) SeasonState {
	var state SeasonState
	for _, g := range games {
		if g.Season > state.Season {
			state.Season = g.Season
		}
	}

	complete := make(map[int]bool)
	for _, g := range games {
		if g.Season != state.Season {
			continue
		}
		done, seen := complete[g.Week]
		complete[g.Week] = g.IsPlayed() && (done || !seen)
	}

	weeks := make([]int, 0, len(complete))
	for w := range complete {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)

	for _, w := range weeks {
		if !complete[w] {
			break
		}
		state.Week = w
	}
	return state
}

// Cuts lists the distinct (season, week) pairs in games from firstSeason
// through the season state, in order
func Cuts(games []*models.Game, firstSeason int, state SeasonState) []models.Cut {
	seen := make(map[models.Cut]struct{})
	var cuts []models.Cut
	for _, g := range games {
		if g.Season < firstSeason || g.Season > state.Season {
			continue
		}
		if g.Season == state.Season && g.Week > state.Week {
			continue
		}
		c := models.Cut{Season: g.Season, Week: g.Week}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		cuts = append(cuts, c)
	}

	sort.Slice(cuts, func(i, j int) bool {
		return cuts[i].Before(cuts[j])
	})
	return cuts
}

// Pending returns the cuts after latest. With no persisted history every cut
// is pending.
func Pending(cuts []models.Cut, latest models.Cut, hasLatest bool) []models.Cut {
	if !hasLatest {
		return cuts
	}
	for i, c := range cuts {
		if latest.Before(c) {
			return cuts[i:]
		}
	}
	return nil
}
