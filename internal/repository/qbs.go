package repository

import (
	"context"
	"fmt"

	"nflsrs/ratings/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// QBRepository handles quarterback value feed operations
type QBRepository struct {
	db *Database
}

// Insert appends quarterback feed rows
func (r *QBRepository) Insert(ctx context.Context, qbs []models.QBGame) error {
	query := `
		INSERT INTO qb_games (
			date, season, team1, team2, qb1, qb2, qb1_value_pre, qb2_value_pre,
			qbelo1_pre, qbelo2_pre, qbelo1_post, qbelo2_post, qb1_adj, qb2_adj
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	batch := &pgx.Batch{}
	for _, q := range qbs {
		batch.Queue(query,
			q.Date, q.Season, q.HomeTeam, q.AwayTeam,
			q.HomeQB, q.AwayQB, q.HomeQBValue, q.AwayQBValue,
			q.HomeEloPre, q.AwayEloPre, q.HomeEloPost, q.AwayEloPost,
			q.HomeEloQBAdj, q.AwayEloQBAdj,
		)
	}

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	for range qbs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert qb game: %w", err)
		}
	}

	return nil
}

// LoadAll retrieves the full feed in date order. Weeks are not stored; they
// are assigned from dates by the caller.
func (r *QBRepository) LoadAll(ctx context.Context) ([]models.QBGame, error) {
	query := `
		SELECT date, season, team1, team2, qb1, qb2, qb1_value_pre, qb2_value_pre,
		       qbelo1_pre, qbelo2_pre, qbelo1_post, qbelo2_post, qb1_adj, qb2_adj
		FROM qb_games
		ORDER BY date, id
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load qb games: %w", err)
	}
	defer rows.Close()

	var qbs []models.QBGame
	for rows.Next() {
		var q models.QBGame
		err := rows.Scan(
			&q.Date, &q.Season, &q.HomeTeam, &q.AwayTeam,
			&q.HomeQB, &q.AwayQB, &q.HomeQBValue, &q.AwayQBValue,
			&q.HomeEloPre, &q.AwayEloPre, &q.HomeEloPost, &q.AwayEloPost,
			&q.HomeEloQBAdj, &q.AwayEloQBAdj,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan qb game: %w", err)
		}
		qbs = append(qbs, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating qb games: %w", err)
	}

	log.Debug().Int("count", len(qbs)).Msg("Loaded qb games")
	return qbs, nil
}
