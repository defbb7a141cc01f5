package repository

import (
	"context"

	"nflsrs/ratings/internal/evaluation"
	"nflsrs/ratings/internal/models"
)

// LoadGames returns the schedule and results
func (db *Database) LoadGames(ctx context.Context) ([]*models.Game, error) {
	return db.Games.LoadAll(ctx)
}

// LoadQBGames returns the quarterback value feed
func (db *Database) LoadQBGames(ctx context.Context) ([]models.QBGame, error) {
	return db.QBs.LoadAll(ctx)
}

// LoadPriors returns the preseason market priors
func (db *Database) LoadPriors(ctx context.Context) ([]models.MarketPrior, error) {
	return db.Priors.LoadAll(ctx)
}

func (db *Database) LatestCut(ctx context.Context) (models.Cut, bool, error) {
	return db.Ratings.LatestCut(ctx)
}

func (db *Database) AppendRatings(ctx context.Context, rows []models.RatingRow) (int64, error) {
	return db.Ratings.Append(ctx, rows)
}

func (db *Database) ReplaceRatings(ctx context.Context, rows []models.RatingRow) error {
	return db.Ratings.Replace(ctx, rows)
}

func (db *Database) LoadRatings(ctx context.Context) ([]models.RatingRow, error) {
	return db.Ratings.LoadAll(ctx)
}

func (db *Database) SaveEvaluation(ctx context.Context, runID string, scores []evaluation.Score) error {
	return db.Evaluations.Save(ctx, runID, scores)
}

// UpsertGames stores schedule and result rows
func (db *Database) UpsertGames(ctx context.Context, games []*models.Game) error {
	return db.Games.Upsert(ctx, games)
}

// InsertQBGames appends quarterback feed rows
func (db *Database) InsertQBGames(ctx context.Context, qbs []models.QBGame) error {
	return db.QBs.Insert(ctx, qbs)
}

// UpsertPriors stores market priors
func (db *Database) UpsertPriors(ctx context.Context, priors []models.MarketPrior) error {
	return db.Priors.Upsert(ctx, priors)
}
