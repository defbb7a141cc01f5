package repository

import (
	"context"
	"fmt"

	"nflsrs/ratings/internal/models"

	"github.com/jackc/pgx/v5"
)

// PriorRepository handles market prior operations
type PriorRepository struct {
	db *Database
}

// Upsert inserts or updates market priors
func (r *PriorRepository) Upsert(ctx context.Context, priors []models.MarketPrior) error {
	query := `
		INSERT INTO market_priors (team, season, wt_rating, line_rating)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (season, team) DO UPDATE SET
			wt_rating = EXCLUDED.wt_rating,
			line_rating = EXCLUDED.line_rating
	`

	batch := &pgx.Batch{}
	for _, p := range priors {
		batch.Queue(query, p.Team, p.Season, p.WTRating, p.LineRating)
	}

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	for range priors {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert market prior: %w", err)
		}
	}

	return nil
}

// LoadAll retrieves every market prior
func (r *PriorRepository) LoadAll(ctx context.Context) ([]models.MarketPrior, error) {
	query := `
		SELECT team, season, wt_rating, line_rating
		FROM market_priors
		ORDER BY season, team
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load market priors: %w", err)
	}
	defer rows.Close()

	var priors []models.MarketPrior
	for rows.Next() {
		var p models.MarketPrior
		if err := rows.Scan(&p.Team, &p.Season, &p.WTRating, &p.LineRating); err != nil {
			return nil, fmt.Errorf("failed to scan market prior: %w", err)
		}
		priors = append(priors, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating market priors: %w", err)
	}

	return priors, nil
}
