// Command manualrun brings the rating series up to date once and exits. It can
// also seed the input tables from JSON files and refit the two distributions
// the belief update depends on.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"nflsrs/ratings/internal/backend"
	"nflsrs/ratings/internal/bayes"
	"nflsrs/ratings/internal/config"
	"nflsrs/ratings/internal/evaluation"
	"nflsrs/ratings/internal/pit"
	"nflsrs/ratings/internal/runner"
	"nflsrs/ratings/internal/seed"
	"nflsrs/ratings/internal/srs"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	rebuild := flag.Bool("rebuild", false, "recompute every cut instead of only the missing ones")
	seedDir := flag.String("seed", "", "directory with games.json, qbs.json and priors.json to load first")
	fit := flag.Bool("fit-distributions", false, "refit the margin and rating deviations from history")
	fitOut := flag.String("fit-out", "distributions.yaml", "where -fit-distributions writes when DISTRIBUTIONS_FILE is unset")
	skipRun := flag.Bool("skip-run", false, "only seed or fit, do not compute ratings")
	flag.Parse()

	cfg := config.MustLoad()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()

	// 1. Seed input tables
	if *seedDir != "" {
		data, err := seed.Load(*seedDir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", *seedDir).Msg("Failed to read seed files")
		}
		if err := data.Apply(ctx, st); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed store")
		}
	}

	// 2. Refit distributions
	if *fit {
		path := cfg.DistributionsFile
		if path == "" {
			path = *fitOut
			cfg.DistributionsFile = path
		}
		if err := fitDistributions(ctx, st, path); err != nil {
			log.Fatal().Err(err).Msg("Failed to fit distributions")
		}
	}

	if *skipRun {
		return
	}

	dist, err := cfg.Distributions()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid fitted distributions")
	}

	// 3. Bring the series up to date
	r := runner.New(runner.Config{
		FirstSeason:   cfg.FirstSeason,
		Workers:       cfg.Workers,
		CurrentSeason: cfg.CurrentSeason,
		CurrentWeek:   cfg.CurrentWeek,
		Pit: pit.Config{
			Distributions: dist,
			QBValueScale:  cfg.QBValueScale,
		},
		Solver: srs.Config{RoundDecimals: cfg.RoundDecimals},
	}, st, st, nil)

	res, err := r.Run(ctx, *rebuild)
	if err != nil {
		log.Fatal().Err(err).Msg("Rating run failed")
	}

	log.Info().
		Str("run_id", res.RunID).
		Str("mode", res.Mode).
		Int("cuts", len(res.Cuts)).
		Int("rows", res.Rows).
		Dur("duration", res.Duration).
		Msg("Manual run complete")

	for _, gp := range []int{4, 8, 12} {
		if best, ok := evaluation.Best(res.Scores, evaluation.MetricRSQ, gp); ok {
			log.Info().
				Int("gp", gp).
				Str("column", best.Column).
				Float64("rsq", best.Value).
				Msg("Best rating column by R squared")
		}
	}
}

func fitDistributions(ctx context.Context, st backend.Store, path string) error {
	games, err := st.LoadGames(ctx)
	if err != nil {
		return err
	}
	qbs, err := st.LoadQBGames(ctx)
	if err != nil {
		return err
	}

	d := bayes.Fit(games, bayes.TeamSeasonsFromElo(qbs))
	if err := config.WriteDistributions(path, d); err != nil {
		return err
	}

	log.Info().
		Float64("margins", d.Margins).
		Float64("rankings", d.Rankings).
		Str("path", path).
		Msg("Wrote fitted distributions")
	return nil
}
