package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nflsrs/ratings/internal/metrics"
	"nflsrs/ratings/internal/models"
	"nflsrs/ratings/internal/pit"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// GameRepository handles game database operations
type GameRepository struct {
	db *Database
}

// Upsert inserts or updates a batch of games
func (r *GameRepository) Upsert(ctx context.Context, games []*models.Game) error {
	query := `
		INSERT INTO games (
			game_id, season, week, game_type, gameday,
			home_team, away_team, result, spread_line, modeled_hfa
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (game_id) DO UPDATE SET
			season = EXCLUDED.season,
			week = EXCLUDED.week,
			game_type = EXCLUDED.game_type,
			gameday = EXCLUDED.gameday,
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			result = EXCLUDED.result,
			spread_line = EXCLUDED.spread_line,
			modeled_hfa = EXCLUDED.modeled_hfa
	`

	batch := &pgx.Batch{}
	for _, g := range games {
		batch.Queue(query,
			g.GameID, g.Season, g.Week, g.GameType, g.GameDate,
			g.HomeTeam, g.AwayTeam, g.Result, g.SpreadLine, g.StoredHFA(),
		)
	}

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	for range games {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert game: %w", err)
		}
	}

	return nil
}

// LoadAll retrieves every game ordered by season, week and date. Games stored
// without a modeled home field advantage get the trailing estimate.
func (r *GameRepository) LoadAll(ctx context.Context) ([]*models.Game, error) {
	query := `
		SELECT game_id, season, week, game_type, gameday,
		       home_team, away_team, result, spread_line, modeled_hfa
		FROM games
		ORDER BY season, week, gameday, game_id
	`

	start := time.Now()
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		metrics.RecordDBQuery("select", "games", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to load games: %w", err)
	}
	defer rows.Close()

	var games []*models.Game
	var missingHFA []*models.Game
	for rows.Next() {
		var game models.Game
		var hfa sql.NullFloat64
		err := rows.Scan(
			&game.GameID, &game.Season, &game.Week, &game.GameType, &game.GameDate,
			&game.HomeTeam, &game.AwayTeam, &game.Result, &game.SpreadLine, &hfa,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		game.ModeledHFA = hfa.Float64
		game.HFAMissing = !hfa.Valid
		if game.HFAMissing {
			missingHFA = append(missingHFA, &game)
		}
		games = append(games, &game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}
	metrics.RecordDBQuery("select", "games", "success", time.Since(start).Seconds())

	if len(missingHFA) > 0 {
		pit.ApplyModeledHFA(missingHFA, pit.ModeledHFA(games))
		log.Debug().Int("count", len(missingHFA)).Msg("Filled modeled home field advantage")
	}

	log.Debug().Int("count", len(games)).Msg("Loaded games")
	return games, nil
}

// Count returns the total number of games
func (r *GameRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM games`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}

	return count, nil
}
