// Package qbadj computes point-in-time quarterback adjustments.
//
// A team's baseline is the best quarterback it has started through the cut,
// valued at that quarterback's most recent rating. Every other starter is a
// negative adjustment for the weeks they started. When the best quarterback was
// not the week 1 starter, earlier weeks become non-zero retroactively; this is
// an accepted approximation since the preseason market prior is assumed to
// price in the best quarterback.
package qbadj

import (
	"sort"

	"nflsrs/ratings/internal/models"

	"github.com/rs/zerolog/log"
)

// DefaultValueScale converts quarterback value to points
const DefaultValueScale = 25.0

type gameTeam struct {
	gameID string
	team   string
}

type teamWeek struct {
	team string
	week int
}

type teamQB struct {
	team string
	qb   string
}

type matchKey struct {
	season   int
	week     int
	homeTeam string
	awayTeam string
}

// Adjuster builds Adjustments for a season/week cut
type Adjuster struct {
	scale float64
}

// NewAdjuster creates an adjuster; a non-positive scale falls back to
// DefaultValueScale
func NewAdjuster(scale float64) *Adjuster {
	if scale <= 0 {
		scale = DefaultValueScale
	}
	return &Adjuster{scale: scale}
}

// Adjustments holds the quarterback adjustments visible at one cut
type Adjustments struct {
	Season int
	Week   int

	weekly     []models.QBAdjustment
	byGame     map[gameTeam]float64
	byTeamWeek map[teamWeek]float64
	latest     map[string]float64
}

// Compute derives adjustments for season through week. qbs must already carry
// ordinal weeks (see AssignWeeks).
func (a *Adjuster) Compute(qbs []models.QBGame, games []*models.Game, season, week int) *Adjustments {
	gameIDs := make(map[matchKey]string, len(games))
	for _, g := range games {
		if g.Season != season {
			continue
		}
		gameIDs[matchKey{g.Season, g.Week, g.HomeTeam, g.AwayTeam}] = g.GameID
	}

	records := flatten(qbs, gameIDs, season, week)

	unmatched := 0
	for _, r := range records {
		if r.GameID == "" {
			unmatched++
		}
	}
	if unmatched > 0 {
		log.Debug().
			Int("season", season).
			Int("week", week).
			Int("count", unmatched).
			Msg("QB rows matched no scheduled game")
	}

	// Most recent value per quarterback; records are in week order per team
	recent := make(map[teamQB]float64)
	for _, r := range records {
		recent[teamQB{r.Team, r.QuarterbackID}] = r.Value / a.scale
	}

	teamMax := make(map[string]float64)
	for k, points := range recent {
		if best, ok := teamMax[k.team]; !ok || points > best {
			teamMax[k.team] = points
		}
	}

	adj := &Adjustments{
		Season:     season,
		Week:       week,
		weekly:     make([]models.QBAdjustment, 0, len(records)),
		byGame:     make(map[gameTeam]float64, len(records)),
		byTeamWeek: make(map[teamWeek]float64, len(records)),
		latest:     make(map[string]float64),
	}

	for _, r := range records {
		value := recent[teamQB{r.Team, r.QuarterbackID}] - teamMax[r.Team]
		adj.weekly = append(adj.weekly, models.QBAdjustment{
			GameID:        r.GameID,
			Team:          r.Team,
			Season:        r.Season,
			Week:          r.Week,
			QuarterbackID: r.QuarterbackID,
			Adj:           value,
		})
		if r.GameID != "" {
			adj.byGame[gameTeam{r.GameID, r.Team}] = value
		}
		adj.byTeamWeek[teamWeek{r.Team, r.Week}] = value
		adj.latest[r.Team] = value
	}

	return adj
}

// flatten turns per-game rows into per-team rows for the cut, sorted by team
// then week
func flatten(qbs []models.QBGame, gameIDs map[matchKey]string, season, week int) []models.QBValueRecord {
	records := make([]models.QBValueRecord, 0, 2*len(qbs))
	for _, q := range qbs {
		if q.Season != season || q.Week > week {
			continue
		}
		gameID := gameIDs[matchKey{q.Season, q.Week, q.HomeTeam, q.AwayTeam}]
		records = append(records,
			models.QBValueRecord{
				GameID:        gameID,
				Team:          q.HomeTeam,
				Season:        q.Season,
				Week:          q.Week,
				QuarterbackID: q.HomeQB,
				Value:         q.HomeQBValue,
			},
			models.QBValueRecord{
				GameID:        gameID,
				Team:          q.AwayTeam,
				Season:        q.Season,
				Week:          q.Week,
				QuarterbackID: q.AwayQB,
				Value:         q.AwayQBValue,
			},
		)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Team != records[j].Team {
			return records[i].Team < records[j].Team
		}
		return records[i].Week < records[j].Week
	})
	return records
}

// ForGame returns the adjustment for team's starter in a game, 0 when unknown
func (a *Adjustments) ForGame(gameID, team string) float64 {
	return a.byGame[gameTeam{gameID, team}]
}

// ForTeamWeek returns the adjustment for team in week, 0 when unknown
func (a *Adjustments) ForTeamWeek(team string, week int) float64 {
	return a.byTeamWeek[teamWeek{team, week}]
}

// Latest returns the adjustment for the team's most recent starter
func (a *Adjustments) Latest(team string) float64 {
	return a.latest[team]
}

// LatestByTeam returns the most recent adjustment for every team seen
func (a *Adjustments) LatestByTeam() map[string]float64 {
	out := make(map[string]float64, len(a.latest))
	for k, v := range a.latest {
		out[k] = v
	}
	return out
}

// Weekly returns every team/week adjustment through the cut
func (a *Adjustments) Weekly() []models.QBAdjustment {
	out := make([]models.QBAdjustment, len(a.weekly))
	copy(out, a.weekly)
	return out
}
