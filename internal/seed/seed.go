// Package seed loads the input tables from JSON files into a store.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"nflsrs/ratings/internal/models"

	"github.com/rs/zerolog/log"
)

// File names read from a seed directory. Missing files are skipped.
const (
	GamesFile  = "games.json"
	QBsFile    = "qbs.json"
	PriorsFile = "priors.json"
)

// Writer stores input tables
type Writer interface {
	UpsertGames(ctx context.Context, games []*models.Game) error
	InsertQBGames(ctx context.Context, qbs []models.QBGame) error
	UpsertPriors(ctx context.Context, priors []models.MarketPrior) error
}

// Data is the content of a seed directory
type Data struct {
	Games  []*models.Game
	QBs    []models.QBGame
	Priors []models.MarketPrior
}

// Load reads every seed file present in dir
func Load(dir string) (*Data, error) {
	var data Data

	var games []models.GameInput
	if err := readJSON(filepath.Join(dir, GamesFile), &games); err != nil {
		return nil, err
	}
	for i := range games {
		if games[i].GameID == "" {
			return nil, fmt.Errorf("%s: row %d has no game_id", GamesFile, i)
		}
		data.Games = append(data.Games, games[i].ToGame())
	}

	var qbs []models.QBGameInput
	if err := readJSON(filepath.Join(dir, QBsFile), &qbs); err != nil {
		return nil, err
	}
	for i := range qbs {
		q, err := qbs[i].ToQBGame()
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", QBsFile, i, err)
		}
		data.QBs = append(data.QBs, q)
	}

	if err := readJSON(filepath.Join(dir, PriorsFile), &data.Priors); err != nil {
		return nil, err
	}

	return &data, nil
}

// Apply writes the data through w
func (d *Data) Apply(ctx context.Context, w Writer) error {
	if len(d.Games) > 0 {
		if err := w.UpsertGames(ctx, d.Games); err != nil {
			return fmt.Errorf("failed to seed games: %w", err)
		}
	}
	if len(d.QBs) > 0 {
		if err := w.InsertQBGames(ctx, d.QBs); err != nil {
			return fmt.Errorf("failed to seed qb games: %w", err)
		}
	}
	if len(d.Priors) > 0 {
		if err := w.UpsertPriors(ctx, d.Priors); err != nil {
			return fmt.Errorf("failed to seed market priors: %w", err)
		}
	}

	log.Info().
		Int("games", len(d.Games)).
		Int("qb_games", len(d.QBs)).
		Int("priors", len(d.Priors)).
		Msg("Seeded input tables")
	return nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", path).Msg("Seed file not found, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
