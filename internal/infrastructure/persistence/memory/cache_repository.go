// Package memory provides in-memory cache repository implementation
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/macromojo/macromojo/internal/infrastructure/monitoring"
	"github.com/macromojo/macromojo/internal/ports/outbound"
)

const (
	backend         = "memory"
	defaultTTL      = 24 * time.Hour
	cleanupInterval = 5 * time.Minute
)

// CacheItem represents a cached item
type CacheItem struct {
	Value     []byte
	ExpiresAt time.Time
}

func (i CacheItem) expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// CacheRepository implements an in-process cache with per-key expiry.
// Close stops the background sweeper.
type CacheRepository struct {
	data    map[string]CacheItem
	mutex   sync.RWMutex
	metrics *monitoring.MetricsCollector

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)

// NewCacheRepository creates a new in-memory cache repository. metrics may be nil.
func NewCacheRepository(metrics *monitoring.MetricsCollector) *CacheRepository {
	repo := &CacheRepository{
		data:    make(map[string]CacheItem),
		metrics: metrics,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go repo.cleanup(cleanupInterval)

	return repo
}

// Get retrieves a value from cache
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	r.mutex.RLock()
	item, exists := r.data[key]
	r.mutex.RUnlock()

	if !exists || item.expired(time.Now()) {
		r.metrics.CacheOperation("get", backend, "miss")
		return nil, outbound.ErrCacheMiss
	}

	r.metrics.CacheOperation("get", backend, "hit")
	out := make([]byte, len(item.Value))
	copy(out, item.Value)
	return out, nil
}

// Set stores a value in cache with TTL; a zero TTL means one day
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	r.mutex.Lock()
	r.data[key] = CacheItem{Value: stored, ExpiresAt: time.Now().Add(ttl)}
	r.mutex.Unlock()

	r.metrics.CacheOperation("set", backend, "ok")
	return nil
}

// Delete removes a key from cache
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	r.mutex.Lock()
	delete(r.data, key)
	r.mutex.Unlock()

	r.metrics.CacheOperation("delete", backend, "ok")
	return nil
}

// Exists checks if a key exists in cache
func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	r.mutex.RLock()
	item, exists := r.data[key]
	r.mutex.RUnlock()

	return exists && !item.expired(time.Now()), nil
}

// Len reports the number of stored keys, expired or not
func (r *CacheRepository) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.data)
}

// Close stops the cleanup goroutine and waits for it to exit
func (r *CacheRepository) Close() error {
	r.once.Do(func() { close(r.stop) })
	<-r.done
	return nil
}

// cleanup removes expired items
func (r *CacheRepository) cleanup(interval time.Duration) {
	defer close(r.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep(time.Now())
		case <-r.stop:
			return
		}
	}
}

func (r *CacheRepository) sweep(now time.Time) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for key, item := range r.data {
		if item.expired(now) {
			delete(r.data, key)
		}
	}
}
