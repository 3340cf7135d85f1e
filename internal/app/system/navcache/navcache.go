// Package navcache is the time-to-live gate in front of navigation data
// (categories and collections).
//
// Each key remembers when it was last fetched. A read only goes to the loader
// when the key has never been fetched or more than TTL has elapsed; otherwise
// the stored value is reused. Admin edits do not invalidate entries; clients
// see changes once the TTL lapses (or after an explicit Invalidate).
package navcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/metrics"
	"go.uber.org/zap"
)

// DefaultTTL is how long a fetched value is reused.
const DefaultTTL = 5 * time.Minute

// Entry is a cached value and the time it was fetched.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Backend stores entries.
type Backend interface {
	Name() string
	Load(ctx context.Context, key string) (Entry, bool, error)
	Save(ctx context.Context, key string, e Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache applies the TTL gate over a Backend.
type Cache struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// New builds a Cache. A nil backend means an in-memory one.
func New(backend Backend, log *zap.Logger, opts ...Option) *Cache {
	if backend == nil {
		backend = NewMemory()
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Cache{backend: backend, ttl: DefaultTTL, now: time.Now, log: log}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Backend names the storage in use ("memory" or "redis").
func (c *Cache) Backend() string { return c.backend.Name() }

// Ping checks that the backend is reachable. Backends without a remote
// dependency always succeed.
func (c *Cache) Ping(ctx context.Context) error {
	if p, ok := c.backend.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Stale reports whether an entry fetched at fetchedAt must be refetched.
func (c *Cache) Stale(fetchedAt time.Time) bool {
	return fetchedAt.IsZero() || c.now().Sub(fetchedAt) > c.ttl
}

// Invalidate drops key so the next Fetch reloads it.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.backend.Delete(ctx, key)
}

// Fetch returns the value for key, calling load only when the key is missing
// or stale. A backend read error is logged and treated as a miss.
func Fetch[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T

	e, ok, err := c.backend.Load(ctx, key)
	if err != nil {
		c.log.Warn("navcache: backend load failed", zap.String("key", key), zap.Error(err))
		ok = false
	}
	if ok && !c.Stale(e.FetchedAt) {
		var v T
		if err := json.Unmarshal(e.Data, &v); err == nil {
			metrics.CacheHits.WithLabelValues(c.backend.Name()).Inc()
			return v, nil
		}
		c.log.Warn("navcache: discarding undecodable entry", zap.String("key", key))
	}
	metrics.CacheMisses.WithLabelValues(c.backend.Name()).Inc()

	v, err := load(ctx)
	if err != nil {
		return zero, fmt.Errorf("navcache: load %s: %w", key, err)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return zero, fmt.Errorf("navcache: encode %s: %w", key, err)
	}
	if err := c.backend.Save(ctx, key, Entry{Data: raw, FetchedAt: c.now()}, c.ttl); err != nil {
		c.log.Warn("navcache: backend save failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

// Memory is a process-local Backend.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory { return &Memory{entries: make(map[string]Entry)} }

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Load(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *Memory) Save(_ context.Context, key string, e Entry, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = e
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
