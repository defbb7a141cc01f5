package models

import "database/sql"

// RatingRow is one team's point-in-time rating after a (season, week) cut.
// Rows are keyed by (season, team, week).
type RatingRow struct {
	Season      int    `db:"season" json:"season"`
	Week        int    `db:"week" json:"week"`
	Team        string `db:"team" json:"team"`
	GamesPlayed int    `db:"gp" json:"gp"`

	// Missing when the team has no played games through the cut
	AvgMOV            sql.NullFloat64 `db:"avg_mov" json:"-"`
	AvgMOVOfOpponents sql.NullFloat64 `db:"avg_mov_of_opponents" json:"-"`

	SRSRating           float64 `db:"srs_rating" json:"srs_rating"`
	SRSRatingNormalized float64 `db:"srs_rating_normalized" json:"srs_rating_normalized"`
	BayesianRating      float64 `db:"bayesian_rating" json:"bayesian_rating"`
	BayesianStdev       float64 `db:"bayesian_stdev" json:"bayesian_stdev"`
	PreSeasonWTRating   float64 `db:"pre_season_wt_rating" json:"pre_season_wt_rating"`

	QBAdjustment                 float64 `db:"qb_adjustment" json:"qb_adjustment"`
	SRSRatingWithQBAdj           float64 `db:"srs_rating_w_qb_adj" json:"srs_rating_w_qb_adj"`
	SRSRatingNormalizedWithQBAdj float64 `db:"srs_rating_normalized_w_qb_adj" json:"srs_rating_normalized_w_qb_adj"`
	BayesianRatingWithQBAdj      float64 `db:"bayesian_rating_w_qb_adj" json:"bayesian_rating_w_qb_adj"`
	PreSeasonWTRatingWithQBAdj   float64 `db:"pre_season_wt_rating_w_qb_adj" json:"pre_season_wt_rating_w_qb_adj"`
}

// Cut identifies a point-in-time snapshot
type Cut struct {
	Season int `json:"season"`
	Week   int `json:"week"`
}

// Before reports whether c sorts strictly before o
func (c Cut) Before(o Cut) bool {
	if c.Season != o.Season {
		return c.Season < o.Season
	}
	return c.Week < o.Week
}

// Cut returns the (season, week) the row belongs to
func (r *RatingRow) Cut() Cut {
	return Cut{Season: r.Season, Week: r.Week}
}

// RatingColumns lists the rating columns that evaluation reports score
var RatingColumns = []string{
	"avg_mov",
	"srs_rating",
	"srs_rating_normalized",
	"bayesian_rating",
	"pre_season_wt_rating",
	"srs_rating_w_qb_adj",
	"srs_rating_normalized_w_qb_adj",
	"bayesian_rating_w_qb_adj",
	"pre_season_wt_rating_w_qb_adj",
}

// Column returns the value of a named rating column. The bool is false for an
// unknown column or a missing average margin.
func (r *RatingRow) Column(name string) (float64, bool) {
	switch name {
	case "avg_mov":
		return r.AvgMOV.Float64, r.AvgMOV.Valid
	case "avg_mov_of_opponents":
		return r.AvgMOVOfOpponents.Float64, r.AvgMOVOfOpponents.Valid
	case "srs_rating":
		return r.SRSRating, true
	case "srs_rating_normalized":
		return r.SRSRatingNormalized, true
	case "bayesian_rating":
		return r.BayesianRating, true
	case "pre_season_wt_rating":
		return r.PreSeasonWTRating, true
	case "srs_rating_w_qb_adj":
		return r.SRSRatingWithQBAdj, true
	case "srs_rating_normalized_w_qb_adj":
		return r.SRSRatingNormalizedWithQBAdj, true
	case "bayesian_rating_w_qb_adj":
		return r.BayesianRatingWithQBAdj, true
	case "pre_season_wt_rating_w_qb_adj":
		return r.PreSeasonWTRatingWithQBAdj, true
	}
	return 0, false
}

// BeliefStep is one team's side of one game in the sequential belief trace
type BeliefStep struct {
	GameID    string  `json:"game_id"`
	Season    int     `json:"season"`
	Week      int     `json:"week"`
	Team      string  `json:"team"`
	Opponent  string  `json:"opponent"`
	Result    float64 `json:"result"`
	QBAdj     float64 `json:"qb_adj"`
	MeanPre   float64 `json:"bayesian_ranking_pre"`
	StdevPre  float64 `json:"bayesian_stdev_pre"`
	MeanPost  float64 `json:"bayesian_ranking_post"`
	StdevPost float64 `json:"bayesian_stdev_post"`
}
