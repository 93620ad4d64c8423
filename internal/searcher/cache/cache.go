// Package cache keeps rendered search results in Redis. Keys include the
// index generation, so a reload never serves results computed against an
// older index.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

const keyPrefix = "search:"

// Backend is the subset of *redis.Client the cache needs.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Entry is what gets cached for one query.
type Entry struct {
	Parsed    string           `json:"parsed"`
	Corrected bool             `json:"corrected"`
	Result    *executor.Result `json:"result"`
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	breaker *resilience.Breaker
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(backend Backend, ttl time.Duration) *QueryCache {
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		breaker: resilience.NewBreaker("query-cache", resilience.BreakerConfig{
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
		}),
		logger: slog.Default().With("component", "query-cache"),
	}
}

// Get looks up a cached entry. Backend failures count as misses.
func (c *QueryCache) Get(ctx context.Context, gen uint64, query string, limit int) (*Entry, bool) {
	key := Key(gen, query, limit)
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.backend.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	if data == nil {
		c.misses.Add(1)
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil || e.Result == nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &e, true
}

func (c *QueryCache) Set(ctx context.Context, gen uint64, query string, limit int, e *Entry) {
	key := Key(gen, query, limit)
	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.backend.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached entry or runs compute once per key across
// concurrent callers. hit reports whether the entry came from the cache.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	gen uint64,
	query string,
	limit int,
	compute func() (*Entry, error),
) (entry *Entry, hit bool, err error) {
	if e, ok := c.Get(ctx, gen, query, limit); ok {
		return e, true, nil
	}
	key := Key(gen, query, limit)
	val, err, _ := c.group.Do(key, func() (any, error) {
		e, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, gen, query, limit, e)
		return e, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Entry), false, nil
}

// Invalidate drops every cached search result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Key derives the cache key of a query against generation gen.
func Key(gen uint64, query string, limit int) string {
	raw := fmt.Sprintf("%s|limit=%d", normalizeQuery(query), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%sg%d:%x", keyPrefix, gen, hash[:16])
}

// normalizeQuery collapses whitespace outside quotes. Quoted text is kept
// as written.
func normalizeQuery(query string) string {
	var sb strings.Builder
	inQuote := false
	pendingSpace := false
	for _, r := range strings.TrimSpace(query) {
		if r == '"' {
			inQuote = !inQuote
		}
		if !inQuote && r != '"' && (r == ' ' || r == '\t' || r == '\n' || r == '\r') {
			pendingSpace = true
			continue
		}
		if pendingSpace {
			sb.WriteByte(' ')
			pendingSpace = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
