// Package store is a single-file SQLite backend for the rating series and its
// inputs. It serves the same reads and writes as the Postgres repository.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"nflsrs/ratings/internal/evaluation"
	"nflsrs/ratings/internal/metrics"
	"nflsrs/ratings/internal/models"
	"nflsrs/ratings/internal/pit"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence
type Store struct {
	db *sql.DB
}

// Open opens the database at path and applies migrations
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	log.Info().Str("path", path).Msg("Opened sqlite store")
	return &Store{db: db}, nil
}

// Close releases the connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertGames inserts or updates games by id
func (s *Store) UpsertGames(ctx context.Context, games []*models.Game) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO games (
	game_id, season, week, game_type, gameday,
	home_team, away_team, result, spread_line, modeled_hfa
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (game_id) DO UPDATE SET
	season = excluded.season,
	week = excluded.week,
	game_type = excluded.game_type,
	gameday = excluded.gameday,
	home_team = excluded.home_team,
	away_team = excluded.away_team,
	result = excluded.result,
	spread_line = excluded.spread_line,
	modeled_hfa = excluded.modeled_hfa
`)
	if err != nil {
		return fmt.Errorf("prepare game upsert: %w", err)
	}
	defer stmt.Close()

	for _, g := range games {
		_, err := stmt.ExecContext(ctx,
			g.GameID, g.Season, g.Week, g.GameType, g.GameDate.Format(time.DateOnly),
			g.HomeTeam, g.AwayTeam, g.Result, g.SpreadLine, g.StoredHFA(),
		)
		if err != nil {
			return fmt.Errorf("upsert game %s: %w", g.GameID, err)
		}
	}
	return tx.Commit()
}

// InsertQBGames appends quarterback feed rows
func (s *Store) InsertQBGames(ctx context.Context, qbs []models.QBGame) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range qbs {
		_, err := tx.ExecContext(ctx, `
INSERT INTO qb_games (
	date, season, team1, team2, qb1, qb2, qb1_value_pre, qb2_value_pre,
	qbelo1_pre, qbelo2_pre, qbelo1_post, qbelo2_post, qb1_adj, qb2_adj
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
			q.Date.Format(time.DateOnly), q.Season, q.HomeTeam, q.AwayTeam,
			q.HomeQB, q.AwayQB, q.HomeQBValue, q.AwayQBValue,
			q.HomeEloPre, q.AwayEloPre, q.HomeEloPost, q.AwayEloPost,
			q.HomeEloQBAdj, q.AwayEloQBAdj,
		)
		if err != nil {
			return fmt.Errorf("insert qb game: %w", err)
		}
	}
	return tx.Commit()
}

// UpsertPriors inserts or updates market priors
func (s *Store) UpsertPriors(ctx context.Context, priors []models.MarketPrior) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, p := range priors {
		_, err := tx.ExecContext(ctx, `
INSERT INTO market_priors (team, season, wt_rating, line_rating) VALUES (?, ?, ?, ?)
ON CONFLICT (season, team) DO UPDATE SET
	wt_rating = excluded.wt_rating,
	line_rating = excluded.line_rating
`, p.Team, p.Season, p.WTRating, p.LineRating)
		if err != nil {
			return fmt.Errorf("upsert prior %s %d: %w", p.Team, p.Season, err)
		}
	}
	return tx.Commit()
}

// LoadGames returns every game ordered by season, week and date
func (s *Store) LoadGames(ctx context.Context) ([]*models.Game, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
SELECT game_id, season, week, game_type, gameday,
	home_team, away_team, result, spread_line, modeled_hfa
FROM games
ORDER BY season, week, gameday, game_id
`)
	if err != nil {
		metrics.RecordDBQuery("select", "games", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("load games: %w", err)
	}
	defer rows.Close()

	var games, missingHFA []*models.Game
	for rows.Next() {
		var (
			g   models.Game
			day string
			hfa sql.NullFloat64
		)
		if err := rows.Scan(
			&g.GameID, &g.Season, &g.Week, &g.GameType, &day,
			&g.HomeTeam, &g.AwayTeam, &g.Result, &g.SpreadLine, &hfa,
		); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		if g.GameDate, err = time.Parse(time.DateOnly, day); err != nil {
			return nil, fmt.Errorf("game %s: bad gameday %q: %w", g.GameID, day, err)
		}
		g.ModeledHFA = hfa.Float64
		g.HFAMissing = !hfa.Valid
		if g.HFAMissing {
			missingHFA = append(missingHFA, &g)
		}
		games = append(games, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	metrics.RecordDBQuery("select", "games", "success", time.Since(start).Seconds())

	if len(missingHFA) > 0 {
		pit.ApplyModeledHFA(missingHFA, pit.ModeledHFA(games))
	}
	return games, nil
}

// LoadQBGames returns the quarterback feed in date order
func (s *Store) LoadQBGames(ctx context.Context) ([]models.QBGame, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT date, season, team1, team2, qb1, qb2, qb1_value_pre, qb2_value_pre,
	qbelo1_pre, qbelo2_pre, qbelo1_post, qbelo2_post, qb1_adj, qb2_adj
FROM qb_games
ORDER BY date, id
`)
	if err != nil {
		return nil, fmt.Errorf("load qb games: %w", err)
	}
	defer rows.Close()

	var qbs []models.QBGame
	for rows.Next() {
		var (
			q   models.QBGame
			day string
		)
		if err := rows.Scan(
			&day, &q.Season, &q.HomeTeam, &q.AwayTeam,
			&q.HomeQB, &q.AwayQB, &q.HomeQBValue, &q.AwayQBValue,
			&q.HomeEloPre, &q.AwayEloPre, &q.HomeEloPost, &q.AwayEloPost,
			&q.HomeEloQBAdj, &q.AwayEloQBAdj,
		); err != nil {
			return nil, fmt.Errorf("scan qb game: %w", err)
		}
		if q.Date, err = time.Parse(time.DateOnly, day); err != nil {
			return nil, fmt.Errorf("qb game: bad date %q: %w", day, err)
		}
		qbs = append(qbs, q)
	}
	return qbs, rows.Err()
}

// LoadPriors returns every market prior
func (s *Store) LoadPriors(ctx context.Context) ([]models.MarketPrior, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT team, season, wt_rating, line_rating FROM market_priors ORDER BY season, team
`)
	if err != nil {
		return nil, fmt.Errorf("load priors: %w", err)
	}
	defer rows.Close()

	var priors []models.MarketPrior
	for rows.Next() {
		var p models.MarketPrior
		if err := rows.Scan(&p.Team, &p.Season, &p.WTRating, &p.LineRating); err != nil {
			return nil, fmt.Errorf("scan prior: %w", err)
		}
		priors = append(priors, p)
	}
	return priors, rows.Err()
}

const ratingColumns = `season, week, team, gp, avg_mov, avg_mov_of_opponents,
	srs_rating, srs_rating_normalized, bayesian_rating, bayesian_stdev,
	pre_season_wt_rating, qb_adjustment, srs_rating_w_qb_adj,
	srs_rating_normalized_w_qb_adj, bayesian_rating_w_qb_adj,
	pre_season_wt_rating_w_qb_adj`

const ratingPlaceholders = `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`

func ratingArgs(r *models.RatingRow) []any {
	return []any{
		r.Season, r.Week, r.Team, r.GamesPlayed, r.AvgMOV, r.AvgMOVOfOpponents,
		r.SRSRating, r.SRSRatingNormalized, r.BayesianRating, r.BayesianStdev,
		r.PreSeasonWTRating, r.QBAdjustment, r.SRSRatingWithQBAdj,
		r.SRSRatingNormalizedWithQBAdj, r.BayesianRatingWithQBAdj,
		r.PreSeasonWTRatingWithQBAdj,
	}
}

// LatestCut returns the newest persisted (season, week)
func (s *Store) LatestCut(ctx context.Context) (models.Cut, bool, error) {
	var cut models.Cut
	err := s.db.QueryRowContext(ctx, `
SELECT season, week FROM srs_ratings ORDER BY season DESC, week DESC LIMIT 1
`).Scan(&cut.Season, &cut.Week)
	if err == sql.ErrNoRows {
		return models.Cut{}, false, nil
	}
	if err != nil {
		return models.Cut{}, false, fmt.Errorf("latest cut: %w", err)
	}
	return cut, true, nil
}

// AppendRatings inserts rows not already present and returns how many were new
func (s *Store) AppendRatings(ctx context.Context, rows []models.RatingRow) (int64, error) {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	n, err := insertRatings(ctx, tx, "INSERT OR IGNORE", rows)
	if err != nil {
		metrics.RecordDBQuery("insert", "srs_ratings", "error", time.Since(start).Seconds())
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit ratings: %w", err)
	}

	metrics.RecordDBQuery("insert", "srs_ratings", "success", time.Since(start).Seconds())
	return n, nil
}

// ReplaceRatings swaps the whole series in one transaction
func (s *Store) ReplaceRatings(ctx context.Context, rows []models.RatingRow) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM srs_ratings`); err != nil {
		return fmt.Errorf("clear ratings: %w", err)
	}
	if _, err := insertRatings(ctx, tx, "INSERT", rows); err != nil {
		metrics.RecordDBQuery("insert", "srs_ratings", "error", time.Since(start).Seconds())
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ratings: %w", err)
	}

	metrics.RecordDBQuery("insert", "srs_ratings", "success", time.Since(start).Seconds())
	return nil
}

func insertRatings(ctx context.Context, tx *sql.Tx, verb string, rows []models.RatingRow) (int64, error) {
	stmt, err := tx.PrepareContext(ctx,
		verb+" INTO srs_ratings ("+ratingColumns+") VALUES ("+ratingPlaceholders+")")
	if err != nil {
		return 0, fmt.Errorf("prepare rating insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for i := range rows {
		res, err := stmt.ExecContext(ctx, ratingArgs(&rows[i])...)
		if err != nil {
			return 0, fmt.Errorf("insert rating %s %d/%d: %w", rows[i].Team, rows[i].Season, rows[i].Week, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += n
	}
	return inserted, nil
}

// LoadRatings returns the series ordered by season, team and week
func (s *Store) LoadRatings(ctx context.Context) ([]models.RatingRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+ratingColumns+" FROM srs_ratings ORDER BY season, team, week")
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	defer rows.Close()

	var out []models.RatingRow
	for rows.Next() {
		var r models.RatingRow
		if err := rows.Scan(
			&r.Season, &r.Week, &r.Team, &r.GamesPlayed, &r.AvgMOV, &r.AvgMOVOfOpponents,
			&r.SRSRating, &r.SRSRatingNormalized, &r.BayesianRating, &r.BayesianStdev,
			&r.PreSeasonWTRating, &r.QBAdjustment, &r.SRSRatingWithQBAdj,
			&r.SRSRatingNormalizedWithQBAdj, &r.BayesianRatingWithQBAdj,
			&r.PreSeasonWTRatingWithQBAdj,
		); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveEvaluation writes one run's scores, NaN as NULL
func (s *Store) SaveEvaluation(ctx context.Context, runID string, scores []evaluation.Score) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().UnixMilli()
	for _, sc := range scores {
		value := sql.NullFloat64{Float64: sc.Value, Valid: !math.IsNaN(sc.Value)}
		_, err := tx.ExecContext(ctx, `
INSERT OR REPLACE INTO rating_evaluations (run_id, metric, column_name, grp, value, n, computed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, runID, sc.Metric, sc.Column, sc.Group, value, sc.N, now)
		if err != nil {
			return fmt.Errorf("save evaluation: %w", err)
		}
	}
	return tx.Commit()
}
