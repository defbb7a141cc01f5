// Package backend opens the configured storage driver.
package backend

import (
	"context"
	"fmt"
	"time"

	"nflsrs/ratings/internal/config"
	"nflsrs/ratings/internal/evaluation"
	"nflsrs/ratings/internal/models"
	"nflsrs/ratings/internal/repository"
	"nflsrs/ratings/internal/store"

	"github.com/rs/zerolog/log"
)

// Store is everything the commands need from storage
type Store interface {
	LoadGames(ctx context.Context) ([]*models.Game, error)
	LoadQBGames(ctx context.Context) ([]models.QBGame, error)
	LoadPriors(ctx context.Context) ([]models.MarketPrior, error)

	LatestCut(ctx context.Context) (models.Cut, bool, error)
	AppendRatings(ctx context.Context, rows []models.RatingRow) (int64, error)
	ReplaceRatings(ctx context.Context, rows []models.RatingRow) error
	LoadRatings(ctx context.Context) ([]models.RatingRow, error)
	SaveEvaluation(ctx context.Context, runID string, scores []evaluation.Score) error

	UpsertGames(ctx context.Context, games []*models.Game) error
	InsertQBGames(ctx context.Context, qbs []models.QBGame) error
	UpsertPriors(ctx context.Context, priors []models.MarketPrior) error

	Close() error
}

// Open connects to the store named by cfg.StoreDriver and makes sure its
// schema exists
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		s, err := store.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorePostgres:
		db, err := repository.NewDatabase(ctx, cfg.Database())
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &postgres{db}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

type postgres struct {
	*repository.Database
}

func (p *postgres) Close() error {
	p.Database.Close()
	return nil
}

// MonitorPool exports connection pool gauges until ctx is done. It does
// nothing for stores without a pool.
func MonitorPool(ctx context.Context, s Store, every time.Duration) {
	pg, ok := s.(*postgres)
	if !ok {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pg.RecordPoolStats()
			if err := pg.Health(ctx); err != nil {
				log.Warn().Err(err).Msg("Database health check failed")
			}
		case <-ctx.Done():
			return
		}
	}
}
