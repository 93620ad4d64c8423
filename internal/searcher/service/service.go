// Package service answers queries against the live index generation. The
// generation, its spell dictionary and the matching query builder are held
// together in one snapshot that Reload swaps atomically.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analyzer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/spell"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
)

// Snapshot is one loaded generation. Spell is nil when the generation has
// no usable dictionary.
type Snapshot struct {
	Index   *index.Index
	Spell   *spell.Dictionary
	Builder *query.Builder
}

func (s *Snapshot) Generation() uint64 {
	return s.Index.Generation()
}

// Response is the answer to one query.
type Response struct {
	Query      string                    `json:"query"`
	Parsed     string                    `json:"parsed"`
	Corrected  bool                      `json:"corrected"`
	TotalHits  int                       `json:"total_hits"`
	Hits       []executor.ScoredDocument `json:"hits"`
	Generation uint64                    `json:"generation"`
	TookMs     float64                   `json:"took_ms"`
	CacheHit   bool                      `json:"cache_hit"`
}

type Option func(*Service)

func WithCache(c *cache.QueryCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithCollector(c *analytics.Collector) Option {
	return func(s *Service) { s.collector = c }
}

func WithAggregator(a *analytics.Aggregator) Option {
	return func(s *Service) { s.aggregator = a }
}

type Service struct {
	cfg        config.Config
	snap       atomic.Pointer[Snapshot]
	reloadMu   sync.Mutex
	cache      *cache.QueryCache
	metrics    *metrics.Metrics
	collector  *analytics.Collector
	aggregator *analytics.Aggregator
	logger     *slog.Logger
}

func New(cfg config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		logger: slog.Default().With("component", "search-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the live snapshot, or nil before the first Reload.
func (s *Service) Snapshot() *Snapshot {
	return s.snap.Load()
}

func (s *Service) Cache() *cache.QueryCache {
	return s.cache
}

func (s *Service) Aggregator() *analytics.Aggregator {
	return s.aggregator
}

// Reload loads the generation CURRENT points to and makes it live. Queries
// in flight keep the snapshot they started with.
func (s *Service) Reload(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	g, err := segment.Open(s.cfg.Index.DataDir)
	if err != nil {
		return 0, err
	}
	snap, err := s.load(g)
	if err != nil {
		return 0, err
	}
	prev := s.snap.Swap(snap)
	gen := snap.Generation()
	s.metrics.SetIndex(gen, snap.Index.NumDocs(), snap.Index.Dictionary().Len())
	if prev == nil || prev.Generation() != gen {
		s.logger.Info("index generation loaded",
			"generation", gen,
			"docs", snap.Index.NumDocs(),
			"terms", snap.Index.Dictionary().Len(),
			"spell", snap.Spell != nil,
		)
	}
	return gen, nil
}

func (s *Service) load(g *segment.Generation) (*Snapshot, error) {
	idx := g.Index
	a, err := analyzer.New(idx.AnalyzerConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: generation %d: %v", apperrors.ErrIndexCorrupt, idx.Generation(), err)
	}

	snap := &Snapshot{Index: idx}
	var resolver query.Resolver = query.Identity{}
	if s.cfg.Spell.Enabled {
		if g.Has(spell.FileName) {
			dict, err := spell.Load(g.Path(spell.FileName), idx.Generation())
			if err != nil {
				s.logger.Warn("spell dictionary unusable, corrections disabled",
					"generation", idx.Generation(),
					"error", err,
				)
			} else {
				snap.Spell = dict
				resolver = query.SpellResolver{Dict: dict, Field: s.cfg.Search.Field}
			}
		}
	}
	snap.Builder = query.NewBuilder(a, resolver,
		query.WithSlop(s.cfg.Search.PhraseSlop),
		query.WithFields(s.cfg.Search.Field),
	)
	return snap, nil
}

// Watch reloads whenever CURRENT moves to a different generation, checking
// every interval until ctx is done.
func (s *Service) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			gen, err := segment.CurrentGeneration(s.cfg.Index.DataDir)
			if err != nil {
				if !errors.Is(err, apperrors.ErrNoIndex) {
					s.logger.Warn("checking current generation failed", "error", err)
				}
				continue
			}
			if snap := s.Snapshot(); snap != nil && snap.Generation() == gen {
				continue
			}
			if _, err := s.Reload(ctx); err != nil {
				s.logger.Error("reload failed", "generation", gen, "error", err)
			}
		}
	}
}

// ClampLimit applies the configured default and maximum to a requested
// result count.
func (s *Service) ClampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.Search.DefaultLimit
	}
	return min(limit, s.cfg.Search.MaxResults)
}

// Query parses text, runs it against the live snapshot and returns the best
// limit hits.
func (s *Service) Query(ctx context.Context, text string, limit int) (*Response, error) {
	start := time.Now()
	snap := s.Snapshot()
	if snap == nil {
		return nil, fmt.Errorf("%w: no generation loaded", apperrors.ErrNoIndex)
	}
	limit = s.ClampLimit(limit)
	gen := snap.Generation()

	compute := func() (*cache.Entry, error) {
		q, corrected, err := snap.Builder.Parse(text, s.cfg.Search.Field)
		if err != nil {
			return nil, err
		}
		res, err := executor.Search(snap.Index, q, limit)
		if err != nil {
			return nil, err
		}
		e := &cache.Entry{Corrected: corrected, Result: res}
		if q != nil {
			e.Parsed = q.String()
		}
		return e, nil
	}

	var (
		entry       *cache.Entry
		hit         bool
		err         error
		cacheStatus = "disabled"
	)
	if s.cache != nil {
		entry, hit, err = s.cache.GetOrCompute(ctx, gen, text, limit, compute)
		cacheStatus = "miss"
		if hit {
			cacheStatus = "hit"
		}
	} else {
		entry, err = compute()
	}
	took := time.Since(start)
	if err != nil {
		s.metrics.ObserveSearch("error", cacheStatus, 0, took, false)
		return nil, err
	}
	if s.cache != nil {
		if hit {
			s.metrics.CacheHit()
		} else {
			s.metrics.CacheMiss()
		}
	}

	resp := &Response{
		Query:      text,
		Parsed:     entry.Parsed,
		Corrected:  entry.Corrected,
		TotalHits:  entry.Result.TotalHits,
		Hits:       entry.Result.Hits,
		Generation: gen,
		TookMs:     float64(took.Microseconds()) / 1000,
		CacheHit:   hit,
	}
	resultType := "hits"
	if resp.TotalHits == 0 {
		resultType = "zero"
	}
	s.metrics.ObserveSearch(resultType, cacheStatus, len(resp.Hits), took, resp.Corrected)

	ev := analytics.NewSearchEvent(text, resp.Parsed, resp.Corrected, resp.TotalHits, len(resp.Hits), took, hit, gen)
	ev.RequestID = middleware.GetRequestID(ctx)
	s.collector.Track(ev)
	if s.aggregator != nil {
		s.aggregator.Record(ev)
	}

	logger.FromContext(ctx).Debug("search completed",
		"query", text,
		"parsed", resp.Parsed,
		"corrected", resp.Corrected,
		"total_hits", resp.TotalHits,
		"cache", cacheStatus,
		"took", took,
	)
	return resp, nil
}

// Explain breaks down the score of docID for text against the live snapshot.
func (s *Service) Explain(ctx context.Context, text string, docID uint32) (*executor.Explanation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := s.Snapshot()
	if snap == nil {
		return nil, fmt.Errorf("%w: no generation loaded", apperrors.ErrNoIndex)
	}
	q, _, err := snap.Builder.Parse(text, s.cfg.Search.Field)
	if err != nil {
		return nil, err
	}
	return executor.Explain(snap.Index, q, docID)
}
