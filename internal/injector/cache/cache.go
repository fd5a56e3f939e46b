// Package cache stores selection outcomes in Redis, keyed by the corpus
// fingerprint and the normalised message. A reload changes the fingerprint,
// so entries from an older corpus are never served.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/injector"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/resilience"
)

const keyPrefix = "skillsel:"

// Store is the subset of the Redis client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type SelectionCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a SelectionCache. m may be nil.
func New(store Store, ttl time.Duration, breaker *resilience.CircuitBreaker, m *metrics.Metrics) *SelectionCache {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("selection-cache", resilience.CircuitBreakerConfig{})
	}
	return &SelectionCache{
		store:   store,
		ttl:     ttl,
		breaker: breaker,
		metrics: m,
		logger:  slog.Default().With("component", "selection-cache"),
	}
}

// Get returns a cached outcome. Redis errors and an open breaker count as
// misses.
func (c *SelectionCache) Get(ctx context.Context, fingerprint, message string) (injector.Outcome, bool) {
	key := BuildKey(fingerprint, message)
	var data string
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if err != nil || data == "" {
		if err != nil {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.recordMiss()
		return injector.Outcome{}, false
	}
	var out injector.Outcome
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return injector.Outcome{}, false
	}
	if out.Selections == nil {
		out.Selections = []injector.Selection{}
	}
	c.recordHit()
	return out, true
}

// Set stores out. Failures are logged and otherwise ignored.
func (c *SelectionCache) Set(ctx context.Context, fingerprint, message string, out injector.Outcome) {
	key := BuildKey(fingerprint, message)
	data, err := json.Marshal(out)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached outcome or computes, stores and returns a
// fresh one. Concurrent callers for the same key share one computation.
func (c *SelectionCache) GetOrCompute(
	ctx context.Context,
	fingerprint, message string,
	compute func() (injector.Outcome, error),
) (injector.Outcome, bool, error) {
	if out, ok := c.Get(ctx, fingerprint, message); ok {
		return out, true, nil
	}
	key := BuildKey(fingerprint, message)
	val, err, _ := c.group.Do(key, func() (any, error) {
		out, err := compute()
		if err != nil {
			return injector.Outcome{}, err
		}
		c.Set(ctx, fingerprint, message, out)
		return out, nil
	})
	if err != nil {
		return injector.Outcome{}, false, err
	}
	return val.(injector.Outcome), false, nil
}

// Invalidate deletes every cached selection.
func (c *SelectionCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating selection cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *SelectionCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState exposes the circuit breaker state for metrics and health.
func (c *SelectionCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

func (c *SelectionCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *SelectionCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey derives the cache key. Messages that differ only in letter case
// or surrounding whitespace share a key.
func BuildKey(fingerprint, message string) string {
	normalized := strings.ToLower(strings.TrimSpace(message))
	hash := sha256.Sum256([]byte(fingerprint + "|" + normalized))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
