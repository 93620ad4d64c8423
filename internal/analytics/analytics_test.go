package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, events)
	return nil
}

func TestNewSearchEventType(t *testing.T) {
	ev := NewSearchEvent("cat", "contents:cat", false, 0, 0, 3*time.Millisecond, false, 1)
	assert.Equal(t, EventZeroResult, ev.Type)
	assert.Equal(t, int64(3), ev.LatencyMs)
	ev = NewSearchEvent("cat", "contents:cat", false, 2, 2, 0, true, 1)
	assert.Equal(t, EventSearch, ev.Type)
}

func TestCollectorFlush(t *testing.T) {
	p := &recordingPublisher{}
	c := NewCollector(p, 10, time.Hour)
	c.Track(SearchEvent{Query: "a"})
	c.Track(SearchEvent{Query: "b"})
	assert.Equal(t, 2, c.BufferLen())

	c.Flush(context.Background())
	assert.Equal(t, 0, c.BufferLen())
	require.Len(t, p.batches, 1)
	assert.Equal(t, "a", p.batches[0][0].Key)
}

func TestCollectorRequeuesOnFailure(t *testing.T) {
	p := &recordingPublisher{err: errors.New("broker down")}
	c := NewCollector(p, 2, time.Hour)
	c.mu.Lock()
	for range 7 {
		c.buffer = append(c.buffer, kafka.Event{Key: "q"})
	}
	c.mu.Unlock()
	c.Flush(context.Background())
	assert.Equal(t, 6, c.BufferLen())
}

func TestCollectorStopsOnCancel(t *testing.T) {
	p := &recordingPublisher{}
	c := NewCollector(p, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	c.Track(SearchEvent{Query: "late"})
	cancel()
	c.Close()
	require.Len(t, p.batches, 1)
}

func TestNilCollectorIgnoresEvents(t *testing.T) {
	var c *Collector
	c.Track(SearchEvent{Query: "x"})
	NewCollector(nil, 1, time.Second).Track(SearchEvent{Query: "x"})
}

func TestAggregatorStats(t *testing.T) {
	a := NewAggregator()
	start := a.startTime
	a.now = func() time.Time { return start.Add(2 * time.Minute) }

	a.Record(SearchEvent{Query: "cat", TotalHits: 3, LatencyMs: 10, CacheHit: true})
	a.Record(SearchEvent{Query: "cat", TotalHits: 3, LatencyMs: 20})
	a.Record(SearchEvent{Query: "zzz", TotalHits: 0, LatencyMs: 30, Corrected: true})
	a.Record(SearchEvent{Query: "dog", TotalHits: 1, LatencyMs: 40})

	s := a.Stats()
	assert.Equal(t, int64(4), s.TotalSearches)
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(3), s.CacheMisses)
	assert.Equal(t, int64(1), s.Corrections)
	assert.Equal(t, int64(1), s.ZeroResultCount)
	assert.InDelta(t, 25.0, s.AvgLatencyMs, 1e-9)
	assert.Equal(t, int64(30), s.P50LatencyMs)
	assert.Equal(t, int64(40), s.P99LatencyMs)
	assert.Equal(t, []QueryCount{{"cat", 2}, {"dog", 1}, {"zzz", 1}}, s.TopQueries)
	assert.Equal(t, []QueryCount{{"zzz", 1}}, s.ZeroResultQueries)
	assert.InDelta(t, 2.0, s.QueriesPerMinute, 1e-9)
}
