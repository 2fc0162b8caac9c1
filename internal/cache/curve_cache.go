package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/domain"
)

const curveKey = "gemscan:curve:candidates"

// CurveCache stores the last successful on-chain curve scan in redis so a
// timed-out detector can fall back to slightly stale pool data instead of
// contributing nothing to the cycle.
type CurveCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCurveCache creates a cache with the given TTL; zero means 15 minutes.
func NewCurveCache(client *redis.Client, ttl time.Duration) *CurveCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CurveCache{client: client, ttl: ttl}
}

// Store replaces the cached scan with the given candidates.
func (c *CurveCache) Store(ctx context.Context, candidates []domain.Candidate) error {
	payload, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("marshal curve candidates: %w", err)
	}
	if err := c.client.Set(ctx, curveKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("store curve candidates: %w", err)
	}
	log.Debug().Int("candidates", len(candidates)).Msg("curve scan cached")
	return nil
}

// Load returns the cached scan, retagged as cached-curve so downstream stages
// know the data's provenance. A cache miss returns an empty slice, not an
// error.
func (c *CurveCache) Load(ctx context.Context) ([]domain.Candidate, error) {
	payload, err := c.client.Get(ctx, curveKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load curve candidates: %w", err)
	}

	var candidates []domain.Candidate
	if err := json.Unmarshal(payload, &candidates); err != nil {
		return nil, fmt.Errorf("unmarshal curve candidates: %w", err)
	}
	for i := range candidates {
		candidates[i].Source = domain.SourceCachedCurve
		candidates[i].SeenOn = []domain.Source{domain.SourceCachedCurve}
	}
	return candidates, nil
}
