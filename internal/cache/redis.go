// Package cache publishes the newest rating cut to Redis for downstream
// forecasting consumers.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nflsrs/ratings/internal/metrics"
	"nflsrs/ratings/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix  = "srs:ratings"
	latestKey  = keyPrefix + ":latest"
	defaultTTL = 7 * 24 * time.Hour
)

// Config holds Redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache writes rating payloads to Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Rating is the published form of one team's row
type Rating struct {
	Team                         string   `json:"team"`
	GamesPlayed                  int      `json:"gp"`
	AvgMOV                       *float64 `json:"avg_mov"`
	AvgMOVOfOpponents            *float64 `json:"avg_mov_of_opponents"`
	SRSRating                    float64  `json:"srs_rating"`
	SRSRatingNormalized          float64  `json:"srs_rating_normalized"`
	BayesianRating               float64  `json:"bayesian_rating"`
	BayesianStdev                float64  `json:"bayesian_stdev"`
	PreSeasonWTRating            float64  `json:"pre_season_wt_rating"`
	QBAdjustment                 float64  `json:"qb_adjustment"`
	SRSRatingWithQBAdj           float64  `json:"srs_rating_w_qb_adj"`
	SRSRatingNormalizedWithQBAdj float64  `json:"srs_rating_normalized_w_qb_adj"`
	BayesianRatingWithQBAdj      float64  `json:"bayesian_rating_w_qb_adj"`
	PreSeasonWTRatingWithQBAdj   float64  `json:"pre_season_wt_rating_w_qb_adj"`
}

// Payload is the document stored under each key
type Payload struct {
	RunID       string    `json:"run_id"`
	Season      int       `json:"season"`
	Week        int       `json:"week"`
	PublishedAt time.Time `json:"published_at"`
	Ratings     []Rating  `json:"ratings"`
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// CutKey returns the key holding one cut's ratings
func CutKey(cut models.Cut) string {
	return fmt.Sprintf("%s:%d:%d", keyPrefix, cut.Season, cut.Week)
}

// NewPayload converts a cut's rows for publication
func NewPayload(runID string, cut models.Cut, rows []models.RatingRow, now time.Time) Payload {
	p := Payload{
		RunID:       runID,
		Season:      cut.Season,
		Week:        cut.Week,
		PublishedAt: now.UTC(),
		Ratings:     make([]Rating, 0, len(rows)),
	}
	for _, r := range rows {
		if r.Season != cut.Season || r.Week != cut.Week {
			continue
		}
		p.Ratings = append(p.Ratings, Rating{
			Team:                         r.Team,
			GamesPlayed:                  r.GamesPlayed,
			AvgMOV:                       nullable(r.AvgMOV.Float64, r.AvgMOV.Valid),
			AvgMOVOfOpponents:            nullable(r.AvgMOVOfOpponents.Float64, r.AvgMOVOfOpponents.Valid),
			SRSRating:                    r.SRSRating,
			SRSRatingNormalized:          r.SRSRatingNormalized,
			BayesianRating:               r.BayesianRating,
			BayesianStdev:                r.BayesianStdev,
			PreSeasonWTRating:            r.PreSeasonWTRating,
			QBAdjustment:                 r.QBAdjustment,
			SRSRatingWithQBAdj:           r.SRSRatingWithQBAdj,
			SRSRatingNormalizedWithQBAdj: r.SRSRatingNormalizedWithQBAdj,
			BayesianRatingWithQBAdj:      r.BayesianRatingWithQBAdj,
			PreSeasonWTRatingWithQBAdj:   r.PreSeasonWTRatingWithQBAdj,
		})
	}
	return p
}

func nullable(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

// PublishRatings stores the cut under its own key and as the latest ratings
func (c *RedisCache) PublishRatings(ctx context.Context, runID string, cut models.Cut, rows []models.RatingRow) error {
	start := time.Now()

	body, err := json.Marshal(NewPayload(runID, cut, rows, start))
	if err != nil {
		return fmt.Errorf("failed to encode ratings: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, CutKey(cut), body, c.ttl)
	pipe.Set(ctx, latestKey, body, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.RecordCachePublish("error", time.Since(start).Seconds())
		return fmt.Errorf("failed to publish ratings: %w", err)
	}

	metrics.RecordCachePublish("success", time.Since(start).Seconds())
	log.Info().
		Int("season", cut.Season).
		Int("week", cut.Week).
		Int("teams", len(rows)).
		Msg("Published latest ratings")
	return nil
}

// Latest reads back the latest published payload
func (c *RedisCache) Latest(ctx context.Context) (*Payload, error) {
	body, err := c.client.Get(ctx, latestKey).Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read latest ratings: %w", err)
	}
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to decode latest ratings: %w", err)
	}
	return &p, nil
}

// Ping checks the connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
