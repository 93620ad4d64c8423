// Package indexer builds index generations from a document source: it
// analyses every document on a worker pool, assembles the immutable index,
// derives the spell dictionary from it and commits both as one generation.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analyzer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/source"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/spell"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

// EventPublisher receives a build summary after each commit. *kafka.Producer
// satisfies it.
type EventPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Option configures an Engine.
type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithEvents(p EventPublisher) Option {
	return func(e *Engine) { e.events = p }
}

// Skipped records a source member that was left out of the build.
type Skipped struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Warning records a member that was indexed with repaired input.
type Warning struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

// BuildResult summarises one committed generation.
type BuildResult struct {
	Generation uint64        `json:"generation"`
	Indexed    int           `json:"indexed"`
	Terms      int           `json:"terms"`
	Skipped    []Skipped     `json:"skipped"`
	Warnings   []Warning     `json:"-"`
	Pruned     []string      `json:"pruned"`
	Took       time.Duration `json:"took"`
}

// BuildEvent is published after a successful build.
type BuildEvent struct {
	Generation uint64    `json:"generation"`
	Indexed    int       `json:"indexed"`
	Skipped    int       `json:"skipped"`
	Terms      int       `json:"terms"`
	TookMs     int64     `json:"took_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

type Engine struct {
	cfg      config.Config
	analyzer *analyzer.Analyzer
	writer   *segment.Writer
	metrics  *metrics.Metrics
	events   EventPublisher
	logger   *slog.Logger
}

func NewEngine(cfg config.Config, opts ...Option) (*Engine, error) {
	a, err := analyzer.New(cfg.Analyzer)
	if err != nil {
		return nil, fmt.Errorf("creating analyzer: %w", err)
	}
	e := &Engine{
		cfg:      cfg,
		analyzer: a,
		writer:   segment.NewWriter(cfg.Index.DataDir),
		logger:   slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// analyzed is the outcome of analysing one source entry.
type analyzed struct {
	doc     index.AnalyzedDocument
	skipErr error
	warnErr error
}

// Build ingests every entry of src and commits a new generation. An
// unreadable source is fatal and leaves the current generation untouched;
// unreadable members are skipped and reported.
func (e *Engine) Build(ctx context.Context, src source.Source) (*BuildResult, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "build", fmt.Sprintf("build-%d", start.UnixNano()))
	res, err := e.build(ctx, src, start)
	span.End()
	span.Log(e.logger)
	if err != nil {
		e.metrics.ObserveBuild("failed", 0, 0, time.Since(start))
		e.logger.Error("build failed", "error", err)
		return nil, err
	}
	e.metrics.ObserveBuild("success", res.Indexed, len(res.Skipped), res.Took)
	e.publish(ctx, res)
	return res, nil
}

func (e *Engine) build(ctx context.Context, src source.Source, start time.Time) (*BuildResult, error) {
	_, scan := tracing.StartChildSpan(ctx, "scan")
	var entries []source.Entry
	if err := src.Walk(ctx, func(en source.Entry) error {
		entries = append(entries, en)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("reading document source: %w", err)
	}
	scan.SetAttr("entries", len(entries))
	scan.End()
	e.logger.Info("source scanned", "entries", len(entries), "workers", e.workers())

	_, analyze := tracing.StartChildSpan(ctx, "analyze")
	results := make([]analyzed, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i, en := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.analyze(en)
			return nil
		})
	}
	err := g.Wait()
	analyze.SetAttr("workers", e.workers())
	analyze.End()
	if err != nil {
		return nil, fmt.Errorf("analysing documents: %w", err)
	}

	res := &BuildResult{Skipped: []Skipped{}}
	b := index.NewBuilder()
	for i, r := range results {
		id := entries[i].ID
		if r.skipErr != nil {
			e.logger.Warn("document skipped", "id", id, "error", r.skipErr)
			res.Skipped = append(res.Skipped, Skipped{ID: id, Reason: r.skipErr.Error()})
			continue
		}
		if r.warnErr != nil {
			e.logger.Warn("document repaired", "id", id, "error", r.warnErr)
			res.Warnings = append(res.Warnings, Warning{ID: id, Err: r.warnErr})
		}
		b.Add(r.doc)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, commit := tracing.StartChildSpan(ctx, "commit")
	defer commit.End()
	gen, err := e.writer.NextGeneration()
	if err != nil {
		return nil, fmt.Errorf("choosing generation: %w", err)
	}
	idx := b.Build(gen, e.analyzer.Config())

	var sidecars []segment.Sidecar
	if e.cfg.Spell.Enabled {
		sidecars = append(sidecars, spell.Build(idx.Dictionary(), e.cfg.Search.Field, gen, e.cfg.Spell))
	}
	manifest, err := e.writer.Commit(idx, sidecars...)
	if err != nil {
		return nil, fmt.Errorf("committing generation %d: %w", gen, err)
	}

	res.Generation = gen
	res.Indexed = manifest.NumDocs
	res.Terms = manifest.NumTerms
	if e.cfg.Index.RetainGenerations > 0 {
		pruned, err := e.writer.Prune(e.cfg.Index.RetainGenerations)
		if err != nil {
			e.logger.Warn("pruning old generations failed", "error", err)
		}
		res.Pruned = pruned
	}
	res.Took = time.Since(start)
	e.metrics.SetIndex(gen, res.Indexed, res.Terms)

	e.logger.Info("build complete",
		"generation", gen,
		"indexed", res.Indexed,
		"skipped", len(res.Skipped),
		"terms", res.Terms,
		"took", res.Took,
	)
	return res, nil
}

func (e *Engine) analyze(en source.Entry) analyzed {
	rc, err := en.Open()
	if err != nil {
		return analyzed{skipErr: fmt.Errorf("%w: %v", apperrors.ErrSourceUnreadable, err)}
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return analyzed{skipErr: fmt.Errorf("%w: %v", apperrors.ErrSourceUnreadable, err)}
	}

	var out analyzed
	if !utf8.Valid(data) {
		out.warnErr = fmt.Errorf("%w: invalid UTF-8 replaced", apperrors.ErrTokenization)
	}
	field := e.cfg.Search.Field
	out.doc = index.AnalyzedDocument{
		Stored:   map[string]string{index.FieldPath: en.ID},
		Modified: en.Modified,
		Fields: []index.FieldTokens{{
			Field:  field,
			Tokens: slices.Collect(e.analyzer.Analyze(string(data), field)),
		}},
	}
	return out
}

// RebuildSpell re-derives the spell dictionary of the current generation and
// swaps it in place.
func (e *Engine) RebuildSpell(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g, err := segment.Open(e.cfg.Index.DataDir)
	if err != nil {
		return 0, err
	}
	gen := g.Index.Generation()
	dict := spell.Build(g.Index.Dictionary(), e.cfg.Search.Field, gen, e.cfg.Spell)
	if err := e.writer.ReplaceSidecar(gen, dict); err != nil {
		return 0, fmt.Errorf("replacing spell dictionary: %w", err)
	}
	e.logger.Info("spell dictionary rebuilt", "generation", gen, "words", dict.Len())
	return gen, nil
}

func (e *Engine) workers() int {
	return max(e.cfg.Index.Workers, 1)
}

func (e *Engine) publish(ctx context.Context, res *BuildResult) {
	if e.events == nil {
		return
	}
	ev := BuildEvent{
		Generation: res.Generation,
		Indexed:    res.Indexed,
		Skipped:    len(res.Skipped),
		Terms:      res.Terms,
		TookMs:     res.Took.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	key := fmt.Sprintf("gen-%d", res.Generation)
	if err := e.events.PublishBatch(ctx, []kafka.Event{{Key: key, Value: ev}}); err != nil {
		e.logger.Warn("publishing build event failed", "error", err)
	}
}

// IsFatal reports whether err from Build means nothing was committed because
// the source as a whole could not be read.
func IsFatal(err error) bool {
	return errors.Is(err, apperrors.ErrSourceUnreadable)
}
