package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"nflsrs/ratings/internal/evaluation"
	"nflsrs/ratings/internal/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EvaluationRepository stores the evaluation tables produced by each run
type EvaluationRepository struct {
	db *Database
}

// Save writes one run's scores. NaN values are stored as NULL.
func (r *EvaluationRepository) Save(ctx context.Context, runID string, scores []evaluation.Score) error {
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}

	query := `
		INSERT INTO rating_evaluations (run_id, metric, column_name, grp, value, n)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, metric, column_name, grp) DO UPDATE SET
			value = EXCLUDED.value,
			n = EXCLUDED.n
	`

	start := time.Now()
	batch := &pgx.Batch{}
	for _, s := range scores {
		value := sql.NullFloat64{Float64: s.Value, Valid: !math.IsNaN(s.Value)}
		batch.Queue(query, id, s.Metric, s.Column, s.Group, value, s.N)
	}

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	for range scores {
		if _, err := br.Exec(); err != nil {
			metrics.RecordDBQuery("insert", "rating_evaluations", "error", time.Since(start).Seconds())
			return fmt.Errorf("failed to save evaluation: %w", err)
		}
	}

	metrics.RecordDBQuery("insert", "rating_evaluations", "success", time.Since(start).Seconds())
	return nil
}
