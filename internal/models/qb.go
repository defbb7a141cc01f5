package models

import (
	"database/sql"
	"fmt"
	"time"
)

// QBGame is one row of the quarterback value feed. Rows are per game with the
// home starter in the first slot, mirroring the schedule.
type QBGame struct {
	Date        time.Time `db:"date"`
	Season      int       `db:"season"`
	Week        int       `db:"week"` // 0 until assigned from Date
	HomeTeam    string    `db:"team1"`
	AwayTeam    string    `db:"team2"`
	HomeQB      string    `db:"qb1"`
	AwayQB      string    `db:"qb2"`
	HomeQBValue float64   `db:"qb1_value_pre"`
	AwayQBValue float64   `db:"qb2_value_pre"`

	// Team Elo around the game, used to fit preseason rating uncertainty.
	// Post-game values are null until the game is played.
	HomeEloPre   float64         `db:"qbelo1_pre"`
	AwayEloPre   float64         `db:"qbelo2_pre"`
	HomeEloPost  sql.NullFloat64 `db:"qbelo1_post"`
	AwayEloPost  sql.NullFloat64 `db:"qbelo2_post"`
	HomeEloQBAdj float64         `db:"qb1_adj"`
	AwayEloQBAdj float64         `db:"qb2_adj"`
}

// QBGameInput is used for loading the quarterback feed from flat files
type QBGameInput struct {
	Date        string   `json:"date"` // YYYY-MM-DD
	Season      int      `json:"season"`
	Team1       string   `json:"team1"`
	Team2       string   `json:"team2"`
	QB1         string   `json:"qb1"`
	QB2         string   `json:"qb2"`
	QB1ValuePre float64  `json:"qb1_value_pre"`
	QB2ValuePre float64  `json:"qb2_value_pre"`
	QBElo1Pre   float64  `json:"qbelo1_pre"`
	QBElo2Pre   float64  `json:"qbelo2_pre"`
	QBElo1Post  *float64 `json:"qbelo1_post,omitempty"`
	QBElo2Post  *float64 `json:"qbelo2_post,omitempty"`
	QB1Adj      float64  `json:"qb1_adj"`
	QB2Adj      float64  `json:"qb2_adj"`
}

// ToQBGame converts the input row. The week is left for AssignWeeks.
func (in *QBGameInput) ToQBGame() (QBGame, error) {
	day, err := time.Parse(time.DateOnly, in.Date)
	if err != nil {
		return QBGame{}, fmt.Errorf("invalid qb game date %q: %w", in.Date, err)
	}

	q := QBGame{
		Date:         day,
		Season:       in.Season,
		HomeTeam:     in.Team1,
		AwayTeam:     in.Team2,
		HomeQB:       in.QB1,
		AwayQB:       in.QB2,
		HomeQBValue:  in.QB1ValuePre,
		AwayQBValue:  in.QB2ValuePre,
		HomeEloPre:   in.QBElo1Pre,
		AwayEloPre:   in.QBElo2Pre,
		HomeEloQBAdj: in.QB1Adj,
		AwayEloQBAdj: in.QB2Adj,
	}
	if in.QBElo1Post != nil {
		q.HomeEloPost = sql.NullFloat64{Float64: *in.QBElo1Post, Valid: true}
	}
	if in.QBElo2Post != nil {
		q.AwayEloPost = sql.NullFloat64{Float64: *in.QBElo2Post, Valid: true}
	}
	return q, nil
}

// QBValueRecord is a single team/week/quarterback observation
type QBValueRecord struct {
	GameID        string // empty when no scheduled game matched
	Team          string
	Season        int
	Week          int
	QuarterbackID string
	Value         float64
}

// QBAdjustment is the point penalty for the quarterback that started a game,
// relative to the best quarterback the team has used so far. Always <= 0.
type QBAdjustment struct {
	GameID        string
	Team          string
	Season        int
	Week          int
	QuarterbackID string
	Adj           float64
}
