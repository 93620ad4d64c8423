// Package handler exposes the search service over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

// Searcher is the part of *service.Service the handler needs.
type Searcher interface {
	Query(ctx context.Context, text string, limit int) (*service.Response, error)
	Explain(ctx context.Context, text string, docID uint32) (*executor.Explanation, error)
	Reload(ctx context.Context) (uint64, error)
}

type Handler struct {
	searcher   Searcher
	cache      *cache.QueryCache
	aggregator *analytics.Aggregator
	logger     *slog.Logger
}

// New builds a handler. queryCache and aggregator may be nil.
func New(searcher Searcher, queryCache *cache.QueryCache, aggregator *analytics.Aggregator) *Handler {
	return &Handler{
		searcher:   searcher,
		cache:      queryCache,
		aggregator: aggregator,
		logger:     slog.Default().With("component", "search-handler"),
	}
}

// Register adds the API routes to mux.
//
//	GET  /api/v1/search?q=&limit=
//	GET  /api/v1/explain?q=&doc=
//	POST /api/v1/index/reload
//	GET  /api/v1/stats
//	GET  /api/v1/cache/stats
//	POST /api/v1/cache/invalidate
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/explain", h.Explain)
	mux.HandleFunc("POST /api/v1/index/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("q")
	if text == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	resp, err := h.searcher.Query(r.Context(), text, limit)
	if err != nil {
		h.fail(w, r, "search failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("q")
	if text == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	doc, err := strconv.ParseUint(r.URL.Query().Get("doc"), 10, 32)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "doc must be a document id")
		return
	}

	exp, err := h.searcher.Explain(r.Context(), text, uint32(doc))
	if err != nil {
		h.fail(w, r, "explain failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"explanation": exp,
		"tree":        exp.String(),
	})
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	gen, err := h.searcher.Reload(r.Context())
	if err != nil {
		h.fail(w, r, "reload failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "reloaded", "generation": gen})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.aggregator == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.aggregator.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// fail maps err to a status. Parse errors carry their offset so clients can
// point at the problem.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.FromContext(r.Context()).Error(msg, "error", err)
		h.writeError(w, status, msg)
		return
	}
	body := map[string]any{"error": err.Error()}
	var pe *query.ParseError
	if errors.As(err, &pe) {
		body["offset"] = pe.Pos
	}
	h.writeJSON(w, status, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
