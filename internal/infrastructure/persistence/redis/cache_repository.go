// Package redis provides the Redis-backed cache repository
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/infrastructure/config"
	"github.com/macromojo/macromojo/internal/infrastructure/monitoring"
	"github.com/macromojo/macromojo/internal/ports/outbound"
)

const backend = "redis"

// NewClient creates a Redis client and verifies the connection
func NewClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (redis.UniversalClient, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:           []string{cfg.Addr},
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
		PoolTimeout:     10 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("Redis client connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return client, nil
}

// CacheRepository implements the cache repository interface on Redis
type CacheRepository struct {
	client  redis.UniversalClient
	logger  *zap.Logger
	metrics *monitoring.MetricsCollector
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)

// NewCacheRepository wraps a connected client. metrics may be nil.
func NewCacheRepository(client redis.UniversalClient, logger *zap.Logger, metrics *monitoring.MetricsCollector) *CacheRepository {
	return &CacheRepository{
		client:  client,
		logger:  logger.Named("redis-cache"),
		metrics: metrics,
	}
}

// Get retrieves a value; missing keys yield outbound.ErrCacheMiss
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.metrics.CacheOperation("get", backend, "miss")
		return nil, outbound.ErrCacheMiss
	}
	if err != nil {
		r.metrics.CacheOperation("get", backend, "error")
		r.logger.Debug("Cache get failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	r.metrics.CacheOperation("get", backend, "hit")
	return data, nil
}

// Set stores a value in cache with TTL
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.metrics.CacheOperation("set", backend, "error")
		r.logger.Error("Cache set failed", zap.String("key", key), zap.Error(err))
		return err
	}
	r.metrics.CacheOperation("set", backend, "ok")
	return nil
}

// Delete removes a value from cache
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.metrics.CacheOperation("delete", backend, "error")
		r.logger.Error("Cache delete failed", zap.String("key", key), zap.Error(err))
		return err
	}
	r.metrics.CacheOperation("delete", backend, "ok")
	return nil
}

// Exists checks if a key exists in cache
func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		r.logger.Error("Cache exists check failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return n > 0, nil
}

// Ping verifies the server is reachable
func (r *CacheRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
