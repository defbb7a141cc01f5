package repository

const schemaSQL = `
CREATE TABLE IF NOT EXISTS games (
    game_id     TEXT PRIMARY KEY,
    season      INTEGER NOT NULL,
    week        INTEGER NOT NULL,
    game_type   TEXT NOT NULL,
    gameday     DATE NOT NULL,
    home_team   TEXT NOT NULL,
    away_team   TEXT NOT NULL,
    result      DOUBLE PRECISION,
    spread_line DOUBLE PRECISION,
    modeled_hfa DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS idx_games_season_week ON games(season, week);

CREATE TABLE IF NOT EXISTS qb_games (
    id            BIGSERIAL PRIMARY KEY,
    date          DATE NOT NULL,
    season        INTEGER NOT NULL,
    team1         TEXT NOT NULL,
    team2         TEXT NOT NULL,
    qb1           TEXT NOT NULL,
    qb2           TEXT NOT NULL,
    qb1_value_pre DOUBLE PRECISION NOT NULL,
    qb2_value_pre DOUBLE PRECISION NOT NULL,
    qbelo1_pre    DOUBLE PRECISION NOT NULL DEFAULT 0,
    qbelo2_pre    DOUBLE PRECISION NOT NULL DEFAULT 0,
    qbelo1_post   DOUBLE PRECISION,
    qbelo2_post   DOUBLE PRECISION,
    qb1_adj       DOUBLE PRECISION NOT NULL DEFAULT 0,
    qb2_adj       DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_qb_games_season ON qb_games(season, date);

CREATE TABLE IF NOT EXISTS market_priors (
    team        TEXT NOT NULL,
    season      INTEGER NOT NULL,
    wt_rating   DOUBLE PRECISION NOT NULL,
    line_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
    PRIMARY KEY (season, team)
);

CREATE TABLE IF NOT EXISTS srs_ratings (
    season                         INTEGER NOT NULL,
    week                           INTEGER NOT NULL,
    team                           TEXT NOT NULL,
    gp                             INTEGER NOT NULL,
    avg_mov                        DOUBLE PRECISION,
    avg_mov_of_opponents           DOUBLE PRECISION,
    srs_rating                     DOUBLE PRECISION NOT NULL,
    srs_rating_normalized          DOUBLE PRECISION NOT NULL,
    bayesian_rating                DOUBLE PRECISION NOT NULL,
    bayesian_stdev                 DOUBLE PRECISION NOT NULL,
    pre_season_wt_rating           DOUBLE PRECISION NOT NULL,
    qb_adjustment                  DOUBLE PRECISION NOT NULL,
    srs_rating_w_qb_adj            DOUBLE PRECISION NOT NULL,
    srs_rating_normalized_w_qb_adj DOUBLE PRECISION NOT NULL,
    bayesian_rating_w_qb_adj       DOUBLE PRECISION NOT NULL,
    pre_season_wt_rating_w_qb_adj  DOUBLE PRECISION NOT NULL,
    created_at                     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (season, team, week)
);
CREATE INDEX IF NOT EXISTS idx_srs_ratings_cut ON srs_ratings(season, week);

CREATE TABLE IF NOT EXISTS rating_evaluations (
    run_id      UUID NOT NULL,
    metric      TEXT NOT NULL,
    column_name TEXT NOT NULL,
    grp         INTEGER NOT NULL,
    value       DOUBLE PRECISION,
    n           INTEGER NOT NULL,
    computed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (run_id, metric, column_name, grp)
);
`
