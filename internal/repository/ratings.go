package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nflsrs/ratings/internal/metrics"
	"nflsrs/ratings/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// RatingRepository handles the persisted rating series
type RatingRepository struct {
	db *Database
}

var ratingColumns = []string{
	"season", "week", "team", "gp",
	"avg_mov", "avg_mov_of_opponents",
	"srs_rating", "srs_rating_normalized",
	"bayesian_rating", "bayesian_stdev", "pre_season_wt_rating",
	"qb_adjustment",
	"srs_rating_w_qb_adj", "srs_rating_normalized_w_qb_adj",
	"bayesian_rating_w_qb_adj", "pre_season_wt_rating_w_qb_adj",
}

func ratingValues(r *models.RatingRow) []any {
	return []any{
		r.Season, r.Week, r.Team, r.GamesPlayed,
		r.AvgMOV, r.AvgMOVOfOpponents,
		r.SRSRating, r.SRSRatingNormalized,
		r.BayesianRating, r.BayesianStdev, r.PreSeasonWTRating,
		r.QBAdjustment,
		r.SRSRatingWithQBAdj, r.SRSRatingNormalizedWithQBAdj,
		r.BayesianRatingWithQBAdj, r.PreSeasonWTRatingWithQBAdj,
	}
}

func ratingTargets(r *models.RatingRow) []any {
	return []any{
		&r.Season, &r.Week, &r.Team, &r.GamesPlayed,
		&r.AvgMOV, &r.AvgMOVOfOpponents,
		&r.SRSRating, &r.SRSRatingNormalized,
		&r.BayesianRating, &r.BayesianStdev, &r.PreSeasonWTRating,
		&r.QBAdjustment,
		&r.SRSRatingWithQBAdj, &r.SRSRatingNormalizedWithQBAdj,
		&r.BayesianRatingWithQBAdj, &r.PreSeasonWTRatingWithQBAdj,
	}
}

func insertRatingSQL() string {
	placeholders := make([]string, len(ratingColumns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO srs_ratings (%s) VALUES (%s) ON CONFLICT (season, team, week) DO NOTHING",
		strings.Join(ratingColumns, ", "),
		strings.Join(placeholders, ", "),
	)
}

// Append inserts rows that are not already persisted and returns how many
// were new. Re-appending an existing (season, team, week) is a no-op.
func (r *RatingRepository) Append(ctx context.Context, rows []models.RatingRow) (int64, error) {
	start := time.Now()
	query := insertRatingSQL()

	batch := &pgx.Batch{}
	for i := range rows {
		batch.Queue(query, ratingValues(&rows[i])...)
	}

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	var inserted int64
	for range rows {
		tag, err := br.Exec()
		if err != nil {
			metrics.RecordDBQuery("insert", "srs_ratings", "error", time.Since(start).Seconds())
			return inserted, fmt.Errorf("failed to append rating: %w", err)
		}
		inserted += tag.RowsAffected()
	}

	metrics.RecordDBQuery("insert", "srs_ratings", "success", time.Since(start).Seconds())
	log.Debug().
		Int("rows", len(rows)).
		Int64("inserted", inserted).
		Msg("Appended ratings")

	return inserted, nil
}

// Replace truncates the series and writes rows in one transaction
func (r *RatingRepository) Replace(ctx context.Context, rows []models.RatingRow) error {
	start := time.Now()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE srs_ratings"); err != nil {
		return fmt.Errorf("failed to truncate ratings: %w", err)
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"srs_ratings"},
		ratingColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return ratingValues(&rows[i]), nil
		}),
	)
	if err != nil {
		metrics.RecordDBQuery("copy", "srs_ratings", "error", time.Since(start).Seconds())
		return fmt.Errorf("failed to copy ratings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit ratings: %w", err)
	}

	metrics.RecordDBQuery("copy", "srs_ratings", "success", time.Since(start).Seconds())
	log.Info().Int64("rows", copied).Msg("Replaced rating series")
	return nil
}

// LatestCut returns the newest persisted (season, week). ok is false when the
// series is empty.
func (r *RatingRepository) LatestCut(ctx context.Context) (cut models.Cut, ok bool, err error) {
	query := `
		SELECT season, week
		FROM srs_ratings
		ORDER BY season DESC, week DESC
		LIMIT 1
	`

	err = r.db.Pool.QueryRow(ctx, query).Scan(&cut.Season, &cut.Week)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Cut{}, false, nil
	}
	if err != nil {
		return models.Cut{}, false, fmt.Errorf("failed to get latest cut: %w", err)
	}

	return cut, true, nil
}

// LoadAll retrieves the series ordered by season, team and week
func (r *RatingRepository) LoadAll(ctx context.Context) ([]models.RatingRow, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM srs_ratings ORDER BY season, team, week",
		strings.Join(ratingColumns, ", "),
	)
	return r.query(ctx, query)
}

// LoadCut retrieves one cut's rows ordered by team
func (r *RatingRepository) LoadCut(ctx context.Context, cut models.Cut) ([]models.RatingRow, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM srs_ratings WHERE season = $1 AND week = $2 ORDER BY team",
		strings.Join(ratingColumns, ", "),
	)
	return r.query(ctx, query, cut.Season, cut.Week)
}

func (r *RatingRepository) query(ctx context.Context, query string, args ...any) ([]models.RatingRow, error) {
	start := time.Now()

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		metrics.RecordDBQuery("select", "srs_ratings", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}
	defer rows.Close()

	var out []models.RatingRow
	for rows.Next() {
		var row models.RatingRow
		if err := rows.Scan(ratingTargets(&row)...); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ratings: %w", err)
	}

	metrics.RecordDBQuery("select", "srs_ratings", "success", time.Since(start).Seconds())
	return out, nil
}

// Count returns the number of persisted rows
func (r *RatingRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM srs_ratings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ratings: %w", err)
	}
	return count, nil
}
