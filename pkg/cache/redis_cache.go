package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sony/gobreaker"
)

// connectMaxRetries bounds the exponential backoff on the initial ping.
const connectMaxRetries = 3

// RedisCache implements Cache using Redis. All commands go through a
// circuit breaker so a flapping server fails fast instead of stalling
// every caller on its own timeout.
type RedisCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	config  RedisConfig
}

// NewRedisCache creates a new Redis cache and verifies connectivity
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		PoolTimeout:  cfg.PoolTimeout,
	})

	// Test connection with bounded exponential backoff
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ping := func() error {
		return client.Ping(ctx).Err()
	}
	if err := backoff.Retry(ping, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectMaxRetries)); err != nil {
		_ = client.Close()
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "redis-cache",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &RedisCache{
		client:  client,
		breaker: breaker,
		config:  cfg,
	}, nil
}

// Get retrieves a value from cache
func (c *RedisCache) Get(ctx context.Context, key string, value interface{}) error {
	var data []byte

	_, err := c.breaker.Execute(func() (interface{}, error) {
		b, err := c.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			// A miss is a valid outcome, not a backend failure
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		data = b
		return nil, nil
	})
	if err != nil {
		return err
	}
	if data == nil {
		return ErrNotFound
	}

	return json.Unmarshal(data, value)
}

// Set stores a value in cache with TTL
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, key, data, ttl).Err()
	})
	return err
}

// Delete removes a key from cache
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Del(ctx, key).Err()
	})
	return err
}

// Exists checks if a key exists in cache
func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		n, err := c.client.Exists(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		return n > 0, nil
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

// Flush clears all data from the cache
func (c *RedisCache) Flush(ctx context.Context) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.FlushDB(ctx).Err()
	})
	return err
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
