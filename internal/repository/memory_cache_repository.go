package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

type memoryCacheRepository struct {
	cache *cache.Cache
	// счетчики: Get+Set должны быть атомарны
	mu sync.Mutex
}

// NewMemoryCacheRepository: кэш в памяти процесса, когда Redis выключен или недоступен.
// Значения хранятся строками, как в Redis.
func NewMemoryCacheRepository(cleanupInterval time.Duration) CacheRepository {
	return &memoryCacheRepository{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (r *memoryCacheRepository) Get(_ context.Context, key string) (string, error) {
	if val, found := r.cache.Get(key); found {
		return val.(string), nil
	}
	return "", nil
}

func (r *memoryCacheRepository) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	switch v := value.(type) {
	case string:
		r.cache.Set(key, v, ttl(expiration))
	case []byte:
		r.cache.Set(key, string(v), ttl(expiration))
	default:
		return r.SetJSON(ctx, key, v, expiration)
	}
	return nil
}

func (r *memoryCacheRepository) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	val, found := r.cache.Get(key)
	if !found {
		return false, nil
	}

	if err := json.Unmarshal([]byte(val.(string)), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

func (r *memoryCacheRepository) SetJSON(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	r.cache.Set(key, string(jsonData), ttl(expiration))
	return nil
}

// DeleteByPattern понимает glob-шаблоны path.Match (*, ?, [...]).
func (r *memoryCacheRepository) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	deleted := 0
	for key := range r.cache.Items() {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return deleted, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if matched {
			r.cache.Delete(key)
			deleted++
		}
	}
	return deleted, nil
}

func (r *memoryCacheRepository) Increment(_ context.Context, key string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	if val, found := r.cache.Get(key); found {
		parsed, err := strconv.ParseInt(val.(string), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value of %s is not an integer", key)
		}
		n = parsed
	}
	n++
	r.cache.Set(key, strconv.FormatInt(n, 10), cache.NoExpiration)
	return n, nil
}

// ttl переводит 0 (Redis: без срока) в cache.NoExpiration.
func ttl(expiration time.Duration) time.Duration {
	if expiration <= 0 {
		return cache.NoExpiration
	}
	return expiration
}
