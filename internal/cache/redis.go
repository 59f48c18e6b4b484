package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/TJerry3s/SCI-90test/internal/domain"
)

const (
	keyPrefix         = "sci90:result:"
	DefaultRedisTTL   = 24 * time.Hour
	breakerMinRequest = 3
)

// RedisCache stores result records in Redis behind a circuit breaker. While
// the breaker is open every lookup is a miss and every write is dropped.
type RedisCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	log     *logrus.Logger
}

// NewRedisCache connects to the Redis instance named by config.RedisURL.
func NewRedisCache(config domain.CacheConfig, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries != 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, config.DefaultTTL, logger), nil
}

// NewRedisCacheFromClient wraps an existing client without pinging it.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-result-cache",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= breakerMinRequest && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Cache circuit breaker changed state")
		},
	})

	return &RedisCache{
		client:  client,
		breaker: breaker,
		ttl:     ttl,
		log:     logger,
	}
}

func cacheKey(token string) string {
	return keyPrefix + token
}

func breakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Get returns the cached result for token. A Redis miss is not a failure.
func (c *RedisCache) Get(ctx context.Context, token string) (*domain.ResultRecord, bool, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		val, err := c.client.Get(ctx, cacheKey(token)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return val, err
	})
	if breakerOpen(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached result: %w", err)
	}

	data, _ := out.([]byte)
	if data == nil {
		return nil, false, nil
	}

	var result domain.ResultRecord
	if err := json.Unmarshal(data, &result); err != nil {
		c.log.WithField("token", token).Warn("Dropping corrupted cache entry")
		c.client.Del(ctx, cacheKey(token))
		return nil, false, nil
	}
	return &result, true, nil
}

// Set stores result under token with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, token string, result *domain.ResultRecord) error {
	if result == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, cacheKey(token), data, c.ttl).Err()
	})
	if breakerOpen(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}
	return nil
}

// Delete removes token from the cache.
func (c *RedisCache) Delete(ctx context.Context, token string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Del(ctx, cacheKey(token)).Err()
	})
	if breakerOpen(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete cached result: %w", err)
	}
	return nil
}

// State reports the breaker state.
func (c *RedisCache) State() gobreaker.State {
	return c.breaker.State()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ domain.ResultCache = (*RedisCache)(nil)
