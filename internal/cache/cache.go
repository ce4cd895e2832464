// Package cache keeps recent rankings in Redis.
//
// Rankings are keyed by a generation counter, the strategy, and the local
// date. Every task write bumps the generation, which orphans all cached
// rankings at once; orphans expire through their TTL. Redis is optional:
// every call goes through a circuit breaker and any failure reads as a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/MikeSquared-Agency/Taskboard/internal/metrics"
	"github.com/MikeSquared-Agency/Taskboard/internal/scoring"
)

const (
	keyPrefix     = "taskboard:ranking"
	generationKey = keyPrefix + ":gen"
)

// Lookup results, as reported to metrics and the X-Cache header.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// BreakerConfig controls when the cache stops talking to Redis.
type BreakerConfig struct {
	// Consecutive failures before the breaker opens. Default 5.
	FailureThreshold uint32
	// How long the breaker stays open before probing again. Default 30s.
	Timeout time.Duration
}

type RankingCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker[any]
	ttl     time.Duration
	logger  *slog.Logger
}

// New wraps an existing client.
func New(client *redis.Client, ttl time.Duration, bc BreakerConfig, logger *slog.Logger) *RankingCache {
	if bc.FailureThreshold == 0 {
		bc.FailureThreshold = 5
	}
	if bc.Timeout <= 0 {
		bc.Timeout = 30 * time.Second
	}
	c := &RankingCache{client: client, ttl: ttl, logger: logger}
	c.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "ranking-cache",
		MaxRequests: 1,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bc.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return c
}

// Dial parses a redis:// URL and returns a cache over a new client.
func Dial(url string, ttl time.Duration, bc BreakerConfig, logger *slog.Logger) (*RankingCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.DialTimeout = 2 * time.Second
	opt.ReadTimeout = time.Second
	opt.WriteTimeout = time.Second
	return New(redis.NewClient(opt), ttl, bc, logger), nil
}

// Ping checks connectivity, bypassing the breaker.
func (c *RankingCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RankingCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// State reports the breaker state, e.g. "closed" or "open".
func (c *RankingCache) State() string {
	return c.breaker.State().String()
}

func rankingKey(generation int64, strategy scoring.Strategy, day string) string {
	return fmt.Sprintf("%s:%d:%s:%s", keyPrefix, generation, strategy.Slug(), day)
}

func (c *RankingCache) generation(ctx context.Context) (int64, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		return c.client.Get(ctx, generationKey).Int64()
	})
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

// Lookup is what Get saw. Put stores under the generation recorded here, so
// a ranking built from rows read before a concurrent write lands under a
// generation that write has already retired.
type Lookup struct {
	Result     string
	generation int64
}

// Get returns the cached ranking for strategy on day. Lookup.Result is one of
// ResultHit, ResultMiss, ResultError. A nil cache always misses.
func (c *RankingCache) Get(ctx context.Context, strategy scoring.Strategy, day string) ([]scoring.ScoredTask, Lookup) {
	if c == nil {
		return nil, Lookup{Result: ResultMiss}
	}
	ranked, lk := c.get(ctx, strategy, day)
	metrics.RankingCache.WithLabelValues(lk.Result).Inc()
	return ranked, lk
}

func (c *RankingCache) get(ctx context.Context, strategy scoring.Strategy, day string) ([]scoring.ScoredTask, Lookup) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("ranking cache unavailable", "error", err)
		return nil, Lookup{Result: ResultError}
	}

	key := rankingKey(gen, strategy, day)
	res, err := c.breaker.Execute(func() (any, error) {
		return c.client.Get(ctx, key).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		return nil, Lookup{Result: ResultMiss, generation: gen}
	}
	if err != nil {
		c.logger.Warn("ranking cache get failed", "key", key, "error", err)
		return nil, Lookup{Result: ResultError}
	}

	var ranked []scoring.ScoredTask
	if err := json.Unmarshal(res.([]byte), &ranked); err != nil {
		c.logger.Warn("ranking cache entry corrupt", "key", key, "error", err)
		return nil, Lookup{Result: ResultError}
	}
	return ranked, Lookup{Result: ResultHit, generation: gen}
}

// Put stores a ranking computed after lk missed. Other lookups are ignored,
// as are Redis failures beyond a log line.
func (c *RankingCache) Put(ctx context.Context, lk Lookup, strategy scoring.Strategy, day string, ranked []scoring.ScoredTask) {
	if c == nil || lk.Result != ResultMiss {
		return
	}
	payload, err := json.Marshal(ranked)
	if err != nil {
		c.logger.Warn("ranking cache encode failed", "error", err)
		return
	}
	key := rankingKey(lk.generation, strategy, day)
	_, err = c.breaker.Execute(func() (any, error) {
		return nil, c.client.Set(ctx, key, payload, c.ttl).Err()
	})
	if err != nil {
		c.logger.Warn("ranking cache put failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached ranking by advancing the generation.
func (c *RankingCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	_, err := c.breaker.Execute(func() (any, error) {
		return c.client.Incr(ctx, generationKey).Result()
	})
	if err != nil {
		c.logger.Warn("ranking cache invalidate failed", "error", err)
	}
}
