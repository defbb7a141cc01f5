package models

import (
	"database/sql"
	"time"
)

// Game types as they appear in the schedule feed
const (
	GameTypeRegular = "REG"
)

// Game represents one scheduled NFL game
type Game struct {
	GameID   string    `db:"game_id"`
	Season   int       `db:"season"`
	Week     int       `db:"week"`
	GameType string    `db:"game_type"`
	GameDate time.Time `db:"gameday"`
	HomeTeam string    `db:"home_team"`
	AwayTeam string    `db:"away_team"`

	// Home margin; invalid until the game has been played
	Result     sql.NullFloat64 `db:"result"`
	SpreadLine sql.NullFloat64 `db:"spread_line"`
	ModeledHFA float64         `db:"modeled_hfa"`

	// HFAMissing marks a game whose feed carried no modeled_hfa. It is stored
	// as NULL and estimated on load.
	HFAMissing bool `db:"-"`
}

// GameInput is used for loading games from flat files and fixtures
type GameInput struct {
	GameID     string   `json:"game_id"`
	Season     int      `json:"season"`
	Week       int      `json:"week"`
	GameType   string   `json:"game_type"`
	GameDay    string   `json:"gameday"` // YYYY-MM-DD
	HomeTeam   string   `json:"home_team"`
	AwayTeam   string   `json:"away_team"`
	Result     *float64 `json:"result,omitempty"`
	SpreadLine *float64 `json:"spread_line,omitempty"`
	ModeledHFA *float64 `json:"modeled_hfa,omitempty"`
}

// ToGame converts GameInput to Game model
func (gi *GameInput) ToGame() *Game {
	game := &Game{
		GameID:     gi.GameID,
		Season:     gi.Season,
		Week:       gi.Week,
		GameType:   gi.GameType,
		HomeTeam:   gi.HomeTeam,
		AwayTeam:   gi.AwayTeam,
		HFAMissing: gi.ModeledHFA == nil,
	}

	if day, err := time.Parse(time.DateOnly, gi.GameDay); err == nil {
		game.GameDate = day
	}
	if gi.Result != nil {
		game.Result = sql.NullFloat64{Float64: *gi.Result, Valid: true}
	}
	if gi.SpreadLine != nil {
		game.SpreadLine = sql.NullFloat64{Float64: *gi.SpreadLine, Valid: true}
	}
	if gi.ModeledHFA != nil {
		game.ModeledHFA = *gi.ModeledHFA
	}

	return game
}

// StoredHFA is the modeled_hfa column value, NULL when the feed had none
func (g *Game) StoredHFA() sql.NullFloat64 {
	return sql.NullFloat64{Float64: g.ModeledHFA, Valid: !g.HFAMissing}
}

// IsRegularSeason returns true for regular season games
func (g *Game) IsRegularSeason() bool {
	return g.GameType == GameTypeRegular
}

// IsPlayed returns true if the game has an observed result
func (g *Game) IsPlayed() bool {
	return g.Result.Valid
}

// SnapshotGame is a game as seen from a point-in-time cut, carrying the QB
// adjustments of both starters and the margin used for rating.
type SnapshotGame struct {
	Game

	HomeQBAdj float64
	AwayQBAdj float64

	// Synthetic is true when the game falls after the cut and its margin was
	// filled from current beliefs.
	Synthetic bool

	// ResultForRating is the observed result for played games and the
	// belief-implied margin for synthetic ones. Invalid for games inside the
	// cut that were never scored.
	ResultForRating sql.NullFloat64
}

// AdjustedMargin returns the home margin net of home field and quarterback
// adjustments.
func (g *SnapshotGame) AdjustedMargin() float64 {
	return g.ResultForRating.Float64 - g.ModeledHFA - g.HomeQBAdj + g.AwayQBAdj
}
