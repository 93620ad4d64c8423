// Package analytics records what users search for. Events are batched to
// Kafka for offline analysis and folded into in-process stats served by the
// searcher.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
)

type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	Parsed     string    `json:"parsed"`
	Corrected  bool      `json:"corrected"`
	TotalHits  int       `json:"total_hits"`
	Returned   int       `json:"returned"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Generation uint64    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

// NewSearchEvent classifies the event by whether anything matched.
func NewSearchEvent(query, parsed string, corrected bool, totalHits, returned int, took time.Duration, cacheHit bool, gen uint64) SearchEvent {
	typ := EventSearch
	if totalHits == 0 {
		typ = EventZeroResult
	}
	return SearchEvent{
		Type:       typ,
		Query:      query,
		Parsed:     parsed,
		Corrected:  corrected,
		TotalHits:  totalHits,
		Returned:   returned,
		LatencyMs:  took.Milliseconds(),
		CacheHit:   cacheHit,
		Generation: gen,
		Timestamp:  time.Now().UTC(),
	}
}
