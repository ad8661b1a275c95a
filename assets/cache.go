package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a cross-render store of normalised asset bytes. Keys include the
// SHA-256 of the source bytes, so entries never go stale.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache implements Cache using Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
}

// NewRedisCache connects to Redis and checks the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "invoicepdf:"
	}
	return &RedisCache{client: client, prefix: prefix}, nil
}

// Get retrieves a value from cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

// Set stores a value in cache with TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// MemoryCache is an in-process Cache for development and tests. Entries
// expire lazily.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]memoryEntry)}
}

// Get retrieves a value from cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.data[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

// Set stores a value in cache with TTL.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// RenderCache memoises a Loader for the lifetime of one render. Failed
// loads are memoised too, so a missing asset is reported once.
type RenderCache struct {
	loader Loader
	mu     sync.Mutex
	loaded map[string]result
}

type result struct {
	asset *Asset
	err   error
}

// NewRenderCache wraps l.
func NewRenderCache(l Loader) *RenderCache {
	return &RenderCache{loader: l, loaded: make(map[string]result)}
}

// Load returns the memoised result for ref, loading it on first use.
func (c *RenderCache) Load(ctx context.Context, ref string) (*Asset, error) {
	c.mu.Lock()
	r, ok := c.loaded[ref]
	c.mu.Unlock()
	if ok {
		return r.asset, r.err
	}
	a, err := c.loader.Load(ctx, ref)
	c.mu.Lock()
	c.loaded[ref] = result{asset: a, err: err}
	c.mu.Unlock()
	return a, err
}

// Prefetch loads the distinct non-empty refs concurrently. Load failures
// stay memoised for the element that needs them; only cancellation of ctx
// is returned.
func (c *RenderCache) Prefetch(ctx context.Context, refs []string) error {
	seen := make(map[string]bool, len(refs))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for _, ref := range refs {
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		ref := ref
		eg.Go(func() error {
			_, _ = c.Load(gctx, ref)
			return gctx.Err()
		})
	}
	return eg.Wait()
}

// Embed returns a data URI for ref, for the asset() template helper.
func (c *RenderCache) Embed(ctx context.Context, ref string) (string, error) {
	if strings.HasPrefix(ref, "data:") {
		return ref, nil
	}
	a, err := c.Load(ctx, ref)
	if err != nil {
		return "", err
	}
	return a.DataURI(), nil
}

type renderCacheKey struct{}

// WithRenderCache returns a copy of ctx carrying c.
func WithRenderCache(ctx context.Context, c *RenderCache) context.Context {
	return context.WithValue(ctx, renderCacheKey{}, c)
}

// RenderCacheFrom returns the cache attached by WithRenderCache, or nil.
func RenderCacheFrom(ctx context.Context) *RenderCache {
	c, _ := ctx.Value(renderCacheKey{}).(*RenderCache)
	return c
}
