// Package cache stores finished evaluations in redis so identical Director
// batches are not re-scored. Cache failures never fail an evaluation; a
// broken cache behaves like an empty one.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"action-critic/internal/model"
)

const keyPrefix = "action-critic:eval:"

// EvaluationCache is a read-through cache of scored batches.
type EvaluationCache interface {
	Get(ctx context.Context, key string) ([]model.ScoredAction, bool)
	Set(ctx context.Context, key string, actions []model.ScoredAction)
}

// Key derives a stable cache key from everything that influences a score.
func Key(rawActions, scene, location string) string {
	h := sha256.New()
	h.Write([]byte(rawActions))
	h.Write([]byte{0})
	h.Write([]byte(scene))
	h.Write([]byte{0})
	h.Write([]byte(location))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		log:    log.With().Str("component", "evaluation_cache").Logger(),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]model.ScoredAction, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug().Err(err).Msg("cache get failed, treating as miss")
		}
		return nil, false
	}
	var actions []model.ScoredAction
	if err := json.Unmarshal(data, &actions); err != nil {
		c.log.Debug().Err(err).Str("key", key).Msg("cache entry undecodable, treating as miss")
		return nil, false
	}
	return actions, true
}

func (c *RedisCache) Set(ctx context.Context, key string, actions []model.ScoredAction) {
	data, err := json.Marshal(actions)
	if err != nil {
		c.log.Debug().Err(err).Msg("cache marshal failed, skipping set")
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Debug().Err(err).Msg("cache set failed")
	}
}

var _ EvaluationCache = (*RedisCache)(nil)
