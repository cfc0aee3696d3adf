package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/formatter"
	apperrors "github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/middleware"
)

// CacheStatusHeader reports hit, miss or disabled on search responses.
const CacheStatusHeader = "X-Cache"

type Searcher interface {
	SearchLimit(ctx context.Context, query string, limit int) (*executor.SearchResult, error)
	Occupation(ctx context.Context, code string) (*formatter.Match, error)
	MaxResults() int
}

type IndexStats interface {
	Stats() indexer.Stats
}

type Handler struct {
	searcher  Searcher
	index     IndexStats
	cache     *cache.QueryCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New builds the search API. queryCache, collector and m may be nil.
func New(s Searcher, index IndexStats, queryCache *cache.QueryCache, collector *analytics.Collector, m *metrics.Metrics) *Handler {
	return &Handler{
		searcher:  s,
		index:     index,
		cache:     queryCache,
		collector: collector,
		metrics:   m,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/occupations/{code}", h.Occupation)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if !r.URL.Query().Has("q") {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	query := r.URL.Query().Get("q")

	limit := h.searcher.MaxResults()
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		limit = min(parsed, h.searcher.MaxResults())
	}

	var (
		result   *executor.SearchResult
		err      error
		cacheHit bool
	)
	cacheStatus := "disabled"
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, query, limit, func() (*executor.SearchResult, error) {
			return h.searcher.SearchLimit(ctx, query, limit)
		})
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		result, err = h.searcher.SearchLimit(ctx, query, limit)
	}

	if err != nil {
		h.observe("error", cacheStatus, start, 0)
		log.Error("search execution failed", "query", query, "error", err)
		h.writeError(w, err)
		return
	}

	latency := time.Since(start)
	resultType := "hit"
	if len(result.Results) == 0 {
		resultType = "zero_result"
	}
	h.observe(resultType, cacheStatus, start, len(result.Results))
	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)

	if h.collector != nil {
		ev := analytics.SearchEvent{
			Query:     query,
			Terms:     result.Terms,
			TotalHits: result.TotalHits,
			Returned:  len(result.Results),
			LatencyMs: latency.Milliseconds(),
			CacheHit:  cacheHit,
			RequestID: middleware.GetRequestID(ctx),
		}
		if len(result.Results) > 0 {
			ev.TopCode = result.Results[0].Code
			ev.TopScore = result.Results[0].Score
		}
		h.collector.TrackSearch(ev)
	}

	w.Header().Set(CacheStatusHeader, cacheStatus)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Occupation(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	m, err := h.searcher.Occupation(r.Context(), code)
	if h.collector != nil {
		h.collector.TrackView(analytics.ViewEvent{
			Code:      code,
			Found:     err == nil,
			RequestID: middleware.GetRequestID(r.Context()),
		})
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, m)
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.index.Stats())
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
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, fmt.Errorf("cache invalidation failed: %w", apperrors.ErrInternal))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) observe(resultType, cacheStatus string, start time.Time, returned int) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	if resultType != "error" {
		h.metrics.SearchResultsCount.Observe(float64(returned))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to a status code. Messages of internal errors are not
// exposed.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError && appErr == nil {
		message = http.StatusText(status)
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
