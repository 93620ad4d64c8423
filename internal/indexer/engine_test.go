package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/source"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/spell"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type memDoc struct {
	id   string
	body string
	err  error
}

type memSource []memDoc

func (s memSource) Walk(_ context.Context, fn func(source.Entry) error) error {
	for _, d := range s {
		e := source.Entry{
			ID:       d.id,
			Modified: fixedTime,
			Open: func() (io.ReadCloser, error) {
				if d.err != nil {
					return nil, d.err
				}
				return io.NopCloser(strings.NewReader(d.body)), nil
			},
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

type recordingEvents struct {
	events []kafka.Event
}

func (r *recordingEvents) PublishBatch(_ context.Context, events []kafka.Event) error {
	r.events = append(r.events, events...)
	return nil
}

func testConfig(t *testing.T, workers int) config.Config {
	t.Helper()
	cfg := *config.Default()
	cfg.Index.DataDir = t.TempDir()
	cfg.Index.Workers = workers
	cfg.Analyzer.Stemmer = "none"
	cfg.Analyzer.StopWords = "none"
	return cfg
}

func TestBuildTwoDocuments(t *testing.T) {
	cfg := testConfig(t, 2)
	m := metrics.New(prometheus.NewRegistry())
	events := &recordingEvents{}
	e, err := NewEngine(cfg, WithMetrics(m), WithEvents(events))
	require.NoError(t, err)

	res, err := e.Build(context.Background(), memSource{
		{id: "docs/a.txt", body: "the cat sat"},
		{id: "docs/b.txt", body: "the dog ran"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Generation)
	assert.Equal(t, 2, res.Indexed)
	assert.Equal(t, 5, res.Terms)
	assert.Empty(t, res.Skipped)

	g, err := segment.Open(cfg.Index.DataDir)
	require.NoError(t, err)
	ix := g.Index
	assert.Equal(t, 2, ix.DocFreq(index.Term{Field: "contents", Text: "the"}))
	cat := ix.Postings(index.Term{Field: "contents", Text: "cat"})
	require.Len(t, cat, 1)
	assert.Equal(t, uint32(0), cat[0].DocID)
	assert.Equal(t, []uint32{1}, cat[0].Positions)

	doc, ok := ix.Doc(1)
	require.True(t, ok)
	path, ok := doc.Path()
	require.True(t, ok)
	assert.Equal(t, "docs/b.txt", path)
	assert.True(t, fixedTime.Equal(doc.Modified))

	dict, err := spell.Load(g.Path(spell.FileName), 1)
	require.NoError(t, err)
	assert.True(t, dict.Exists("cat"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexBuildsTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocsIndexedTotal))
	require.Len(t, events.events, 1)
	assert.Equal(t, "gen-1", events.events[0].Key)
}

func TestBuildSkipsUnreadableMember(t *testing.T) {
	cfg := testConfig(t, 3)
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	res, err := e.Build(context.Background(), memSource{
		{id: "a", body: "alpha"},
		{id: "broken", err: errors.New("permission denied")},
		{id: "c", body: "gamma \xff delta"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Indexed)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "broken", res.Skipped[0].ID)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "c", res.Warnings[0].ID)
	assert.ErrorIs(t, res.Warnings[0].Err, apperrors.ErrTokenization)

	g, err := segment.Open(cfg.Index.DataDir)
	require.NoError(t, err)
	doc, ok := g.Index.Doc(1)
	require.True(t, ok)
	path, _ := doc.Path()
	assert.Equal(t, "c", path)
	assert.Equal(t, 1, g.Index.DocFreq(index.Term{Field: "contents", Text: "delta"}))
}

func TestBuildMissingRootIsFatal(t *testing.T) {
	cfg := testConfig(t, 1)
	m := metrics.New(prometheus.NewRegistry())
	e, err := NewEngine(cfg, WithMetrics(m))
	require.NoError(t, err)

	_, err = e.Build(context.Background(), source.NewFilesystem(filepath.Join(t.TempDir(), "nope")))
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexBuildsTotal.WithLabelValues("failed")))

	_, err = segment.Open(cfg.Index.DataDir)
	assert.ErrorIs(t, err, apperrors.ErrNoIndex)
}

func TestBuildIsIndependentOfWorkerCount(t *testing.T) {
	var src memSource
	for i := range 40 {
		src = append(src, memDoc{
			id:   fmt.Sprintf("doc-%02d", i),
			body: strings.Repeat(fmt.Sprintf("word%d shared tail%d ", i%7, i%3), i%5+1),
		})
	}

	var outputs [][]byte
	for _, workers := range []int{1, 8} {
		cfg := testConfig(t, workers)
		e, err := NewEngine(cfg)
		require.NoError(t, err)
		_, err = e.Build(context.Background(), src)
		require.NoError(t, err)
		data, err := os.ReadFile(filepath.Join(cfg.Index.DataDir, "gen-000001", segment.IndexFile))
		require.NoError(t, err)
		outputs = append(outputs, data)
	}
	assert.Equal(t, outputs[0], outputs[1])
}

func TestBuildPrunesOldGenerations(t *testing.T) {
	cfg := testConfig(t, 2)
	cfg.Index.RetainGenerations = 1
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	src := memSource{{id: "a", body: "alpha"}}

	_, err = e.Build(context.Background(), src)
	require.NoError(t, err)
	res, err := e.Build(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Generation)
	assert.Equal(t, []string{"gen-000001"}, res.Pruned)
}

func TestRebuildSpell(t *testing.T) {
	cfg := testConfig(t, 1)
	cfg.Spell.Enabled = false
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	_, err = e.Build(context.Background(), memSource{{id: "a", body: "apple banana"}})
	require.NoError(t, err)

	g, err := segment.Open(cfg.Index.DataDir)
	require.NoError(t, err)
	_, err = os.Stat(g.Path(spell.FileName))
	require.True(t, os.IsNotExist(err))

	gen, err := e.RebuildSpell(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)

	g, err = segment.Open(cfg.Index.DataDir)
	require.NoError(t, err)
	dict, err := spell.Load(g.Path(spell.FileName), gen)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple"}, dict.Suggest("aple", 1))
}

func TestFailedRebuildSpellKeepsCommittedDictionary(t *testing.T) {
	cfg := testConfig(t, 1)
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	_, err = e.Build(context.Background(), memSource{{id: "a", body: "apple banana"}})
	require.NoError(t, err)

	blocker := filepath.Join(cfg.Index.DataDir, "gen-000001", segment.ManifestFile+".tmp")
	require.NoError(t, os.Mkdir(blocker, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocker, "keep"), nil, 0o644))

	_, err = e.RebuildSpell(context.Background())
	require.Error(t, err)

	g, err := segment.Open(cfg.Index.DataDir)
	require.NoError(t, err)
	dict, err := spell.Load(g.Path(spell.FileName), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple"}, dict.Suggest("aple", 1))
}

func TestNewEngineRejectsUnknownAnalyzer(t *testing.T) {
	cfg := testConfig(t, 1)
	cfg.Analyzer.Stemmer = "porter9"
	_, err := NewEngine(cfg)
	assert.Error(t, err)
}
