// Package contentcache is the in-memory layer in front of durable content storage.
//
// Each key moves through Empty → Loading → Populated → (Stale | Invalidated) → Loading.
// At most one load per key is in flight; concurrent readers share its result. Loads that
// fail never evict a previously loaded value: readers keep getting the last good value,
// and with nothing to fall back on they get an explicit "no value" instead of an error
// they would have to handle.
package contentcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeromicro/go-zero/core/syncx"
	"github.com/zeromicro/go-zero/core/threading"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cuihairu/playhub/internal/telemetry"
)

const (
	DefaultTTL            = 5 * time.Minute
	DefaultLoadTimeout    = 3 * time.Second
	DefaultFailureBackoff = 10 * time.Second
)

// ErrNoValue is returned by Lookup when a load failed and nothing was cached before.
var ErrNoValue = errors.New("contentcache: no value")

// Loader reads the value for key from the backing store.
type Loader[V any] func(ctx context.Context, key string) (V, error)

// LoadError reports a failed backing-store read for Key.
type LoadError struct {
	Key string
	Err error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Key, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNoValue) match every LoadError.
func (e *LoadError) Is(target error) bool { return target == ErrNoValue }

// Options tune a Cache. Zero values select the defaults.
type Options[V any] struct {
	// DefaultTTL applies to key classes without an entry in ClassTTL.
	DefaultTTL time.Duration
	// ClassTTL maps a key class (the key up to its first ':') to its TTL.
	ClassTTL map[string]time.Duration
	// LoadTimeout bounds each backing-store read; expiry counts as a failure.
	LoadTimeout time.Duration
	// FailureBackoff is how long a stale value is served without retrying the store
	// after a failed reload. A key that never loaded reports its last failure for the
	// same window instead of reading the store on every lookup.
	FailureBackoff time.Duration
	// Absent reports failures that mean the key does not exist. They are remembered for
	// the key's TTL rather than FailureBackoff, until then or until Invalidate.
	Absent func(error) bool
	// ServeStale returns an expired value immediately and refreshes it in the
	// background. Explicitly invalidated entries are always reloaded synchronously.
	ServeStale bool
	// Clone copies values on the way in and out so callers never share cache state.
	// Nil means values are returned as-is (use for immutable V).
	Clone   func(V) V
	Now     func() time.Time
	Logger  *slog.Logger
	Metrics *telemetry.ContentMetrics
}

type entry[V any] struct {
	value      V
	populated  bool
	insertedAt time.Time
	ttl        time.Duration
	stale      bool // invalidated explicitly
	gen        uint64
	retryAt    time.Time
	lastErr    error // last synchronous failure of a never-loaded entry
}

func (e *entry[V]) fresh(now time.Time) bool {
	return e.populated && !e.stale && now.Before(e.insertedAt.Add(e.ttl))
}

func (e *entry[V]) backingOff(now time.Time) bool {
	return !e.stale && now.Before(e.retryAt)
}

// Cache is a keyed, single-flight, TTL cache with stale fallback.
type Cache[V any] struct {
	loader Loader[V]
	opts   Options[V]
	logger *slog.Logger
	tracer trace.Tracer

	mu      sync.Mutex
	entries map[string]*entry[V]
	flight  syncx.SingleFlight

	hits, misses, loads, failures, staleServed atomic.Int64
}

// New builds a Cache that loads missing keys with loader.
func New[V any](loader Loader[V], opts Options[V]) *Cache[V] {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}
	if opts.FailureBackoff < 0 {
		opts.FailureBackoff = 0
	} else if opts.FailureBackoff == 0 {
		opts.FailureBackoff = DefaultFailureBackoff
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache[V]{
		loader:  loader,
		opts:    opts,
		logger:  logger.With("component", "contentcache"),
		tracer:  otel.Tracer("playhub.contentcache"),
		entries: make(map[string]*entry[V]),
		flight:  syncx.NewSingleFlight(),
	}
}

// ClassOf returns the TTL class of key: the part before the first ':'.
func ClassOf(key string) string {
	class, _, _ := strings.Cut(key, ":")
	return class
}

// Get returns the value for key, loading it when absent, expired or invalidated.
// The bool is false only when no value could be produced; failures are logged, never
// returned.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool) {
	v, err := c.Lookup(ctx, key)
	if err != nil {
		var zero V
		return zero, false
	}
	return v, true
}

// Lookup is Get for callers that need the failure: the error is a *LoadError (which
// matches ErrNoValue) when nothing could be produced.
func (c *Cache[V]) Lookup(ctx context.Context, key string) (V, error) {
	class := ClassOf(key)
	now := c.opts.Now()

	c.mu.Lock()
	e := c.entries[key]
	if e == nil {
		e = &entry[V]{}
		c.entries[key] = e
	}
	switch {
	case e.fresh(now):
		v := e.value
		c.mu.Unlock()
		c.hits.Add(1)
		c.opts.Metrics.CacheHit(ctx, class)
		return c.clone(v), nil
	case e.populated && e.backingOff(now):
		// store failed recently; keep serving the last good value
		v := e.value
		c.mu.Unlock()
		c.serveStale(ctx, key, class)
		return c.clone(v), nil
	case !e.populated && e.lastErr != nil && e.backingOff(now):
		err := e.lastErr
		c.mu.Unlock()
		c.misses.Add(1)
		c.opts.Metrics.CacheMiss(ctx, class)
		var zero V
		return zero, &LoadError{Key: key, Err: err}
	case e.populated && !e.stale && c.opts.ServeStale:
		v, gen := e.value, e.gen
		c.mu.Unlock()
		c.serveStale(ctx, key, class)
		c.refresh(ctx, key, gen, c.loader)
		return c.clone(v), nil
	}
	gen := e.gen
	c.mu.Unlock()

	c.misses.Add(1)
	c.opts.Metrics.CacheMiss(ctx, class)

	v, err := c.load(ctx, key, gen, c.loader)
	if err == nil {
		return c.clone(v), nil
	}

	c.mu.Lock()
	e = c.entries[key]
	if e != nil && e.populated {
		v := e.value
		c.mu.Unlock()
		c.serveStale(ctx, key, class)
		return c.clone(v), nil
	}
	if e != nil && e.gen == gen {
		// the invalidation, if any, has been honoured by this load
		e.stale = false
		e.lastErr = err
		e.retryAt = c.opts.Now().Add(c.retryAfter(class, err))
	}
	c.mu.Unlock()
	var zero V
	return zero, &LoadError{Key: key, Err: err}
}

func (c *Cache[V]) retryAfter(class string, err error) time.Duration {
	if c.opts.Absent != nil && c.opts.Absent(err) {
		return c.ttlFor(class)
	}
	return c.opts.FailureBackoff
}

// Peek returns the cached value without loading, fresh or not.
func (c *Cache[V]) Peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.entries[key]; e != nil && e.populated {
		return c.clone(e.value), true
	}
	var zero V
	return zero, false
}

// Preload warms key in the background with loader (nil means the cache's loader). It
// never blocks and never reports failure; a later Get falls back to a synchronous load.
// Fresh entries and entries inside a failure backoff are left alone.
func (c *Cache[V]) Preload(key string, loader Loader[V]) {
	if loader == nil {
		loader = c.loader
	}
	c.mu.Lock()
	e := c.entries[key]
	if e == nil {
		e = &entry[V]{}
		c.entries[key] = e
	}
	if now := c.opts.Now(); e.fresh(now) || e.backingOff(now) {
		c.mu.Unlock()
		return
	}
	gen := e.gen
	c.mu.Unlock()
	c.refresh(context.Background(), key, gen, loader)
}

// Invalidate forces the next Get of key to reload. Unknown keys are ignored.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.entries[key]; e != nil {
		e.gen++
		e.stale = true
		e.retryAt = time.Time{}
		e.lastErr = nil
	}
}

// Purge invalidates every key.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.gen++
		e.stale = true
		e.retryAt = time.Time{}
		e.lastErr = nil
	}
}

func (c *Cache[V]) refresh(ctx context.Context, key string, gen uint64, loader Loader[V]) {
	ctx = context.WithoutCancel(ctx)
	threading.GoSafe(func() {
		if _, err := c.load(ctx, key, gen, loader); err != nil {
			c.logger.Warn("background refresh failed", "key", key, "error", err)
		}
	})
}

func (c *Cache[V]) serveStale(ctx context.Context, key, class string) {
	c.staleServed.Add(1)
	c.opts.Metrics.CacheStale(ctx, class)
	c.logger.Debug("serving stale value", "key", key)
}

// load runs loader once per (key, generation); callers of the same generation share the
// outcome. A generation bump (Invalidate) opens a new slot so readers arriving after the
// invalidation never receive a read that started before it.
func (c *Cache[V]) load(ctx context.Context, key string, gen uint64, loader Loader[V]) (V, error) {
	flightKey := key + "\x00" + strconv.FormatUint(gen, 10)
	val, _, err := c.flight.DoEx(flightKey, func() (any, error) {
		return c.doLoad(ctx, key, gen, loader)
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := val.(V)
	return v, nil
}

func (c *Cache[V]) doLoad(ctx context.Context, key string, gen uint64, loader Loader[V]) (V, error) {
	class := ClassOf(key)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.LoadTimeout)
	defer cancel()
	ctx, span := c.tracer.Start(ctx, "contentcache.load", trace.WithAttributes(
		telemetry.ContentKeyKey.String(key),
		telemetry.CacheClassKey.String(class),
		attribute.Int64("cache.generation", int64(gen)),
	))
	defer span.End()

	c.loads.Add(1)
	start := time.Now()
	v, err := callLoader(ctx, loader, key)
	c.opts.Metrics.CacheLoad(ctx, class, float64(time.Since(start).Microseconds())/1000, err != nil)

	now := c.opts.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key]
	if e == nil {
		e = &entry[V]{}
		c.entries[key] = e
	}
	if err != nil {
		c.failures.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if e.gen == gen && e.populated {
			e.retryAt = now.Add(c.opts.FailureBackoff)
		}
		c.logger.Warn("content load failed", "key", key, "error", err, "has_stale", e.populated)
		var zero V
		return zero, err
	}
	if e.gen != gen {
		// invalidated while loading; the result serves this flight only
		return v, nil
	}
	e.value = c.clone(v)
	e.populated = true
	e.insertedAt = now
	e.ttl = c.ttlFor(class)
	e.stale = false
	e.retryAt = time.Time{}
	e.lastErr = nil
	return v, nil
}

// callLoader enforces the deadline even when loader ignores ctx, and turns panics into
// load failures.
func callLoader[V any](ctx context.Context, loader Loader[V], key string) (V, error) {
	type result struct {
		v   V
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				var zero V
				ch <- result{zero, fmt.Errorf("loader panic: %v", p)}
			}
		}()
		v, err := loader(ctx, key)
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

func (c *Cache[V]) ttlFor(class string) time.Duration {
	if d, ok := c.opts.ClassTTL[class]; ok && d > 0 {
		return d
	}
	return c.opts.DefaultTTL
}

func (c *Cache[V]) clone(v V) V {
	if c.opts.Clone == nil {
		return v
	}
	return c.opts.Clone(v)
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Hits        int64       `json:"hits"`
	Misses      int64       `json:"misses"`
	Loads       int64       `json:"loads"`
	Failures    int64       `json:"failures"`
	StaleServed int64       `json:"staleServed"`
	Entries     []EntryInfo `json:"entries"`
}

// EntryInfo describes one cached key.
type EntryInfo struct {
	Key         string    `json:"key"`
	Populated   bool      `json:"populated"`
	Invalidated bool      `json:"invalidated"`
	Fresh       bool      `json:"fresh"`
	LoadedAt    time.Time `json:"loadedAt,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
	Generation  uint64    `json:"generation"`
}

func (c *Cache[V]) Stats() Stats {
	now := c.opts.Now()
	c.mu.Lock()
	infos := make([]EntryInfo, 0, len(c.entries))
	for k, e := range c.entries {
		info := EntryInfo{
			Key:         k,
			Populated:   e.populated,
			Invalidated: e.stale,
			Fresh:       e.fresh(now),
			Generation:  e.gen,
		}
		if e.populated {
			info.LoadedAt = e.insertedAt
			info.ExpiresAt = e.insertedAt.Add(e.ttl)
		}
		infos = append(infos, info)
	}
	c.mu.Unlock()
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Loads:       c.loads.Load(),
		Failures:    c.failures.Load(),
		StaleServed: c.staleServed.Load(),
		Entries:     infos,
	}
}
