// Package executor runs one occupation search end to end: tokenize, rank,
// keep the best results and format them for display.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/review"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/formatter"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/scorer"
	apperrors "github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/metrics"
)

const MaxQueryLength = 2048

type SearchResult struct {
	Query     string            `json:"query"`
	Terms     []string          `json:"terms"`
	TotalHits int               `json:"total_hits"`
	Results   []formatter.Match `json:"results"`
	TermStats map[string]int    `json:"term_stats"`
}

type Options struct {
	Mode       scorer.Mode
	MaxResults int
	Format     formatter.Options
}

type Executor struct {
	engine  *indexer.Engine
	tok     tokenizer.Tokenizer
	lookup  review.Lookup
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New wires an executor. lookup and m may be nil. MaxResults is clamped to
// merger.DefaultK.
func New(engine *indexer.Engine, tok tokenizer.Tokenizer, lookup review.Lookup, opts Options, m *metrics.Metrics) *Executor {
	if opts.MaxResults <= 0 || opts.MaxResults > merger.DefaultK {
		opts.MaxResults = merger.DefaultK
	}
	if lookup == nil {
		lookup = review.None{}
	}
	return &Executor{
		engine:  engine,
		tok:     tok,
		lookup:  lookup,
		opts:    opts,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

func (e *Executor) MaxResults() int { return e.opts.MaxResults }

// Search returns up to MaxResults matches for query.
func (e *Executor) Search(ctx context.Context, query string) (*SearchResult, error) {
	return e.SearchLimit(ctx, query, e.opts.MaxResults)
}

// SearchLimit is Search with a caller-chosen cap, clamped to
// [1, MaxResults].
func (e *Executor) SearchLimit(ctx context.Context, query string, limit int) (*SearchResult, error) {
	if len(query) > MaxQueryLength {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "query longer than %d bytes", MaxQueryLength)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search cancelled: %w", err)
	}
	if limit <= 0 || limit > e.opts.MaxResults {
		limit = e.opts.MaxResults
	}
	start := time.Now()
	snap := e.engine.Snapshot()

	terms := e.tok.Tokenize(query)
	counts := tokenizer.Count(terms)
	termStats := make(map[string]int, len(counts))
	for t := range counts {
		if df := snap.Index.DocFreq(t); df > 0 {
			termStats[t] = df
		}
	}

	ranked := ranker.Rank(ctx, counts, snap, ranker.Options{Mode: e.opts.Mode, Metrics: e.metrics})
	top := merger.TopK(ranked, limit)
	matches := formatter.Format(ctx, top, snap.Store, e.lookup, e.opts.Format)

	logger.FromContext(ctx).Info("query executed",
		"query", query,
		"terms", terms,
		"hits", len(ranked),
		"results", len(matches),
		"duration", time.Since(start),
	)
	return &SearchResult{
		Query:     query,
		Terms:     uniqueTerms(terms),
		TotalHits: len(ranked),
		Results:   matches,
		TermStats: termStats,
	}, nil
}

// Occupation returns the formatted record for code, with its review.
func (e *Executor) Occupation(ctx context.Context, code string) (*formatter.Match, error) {
	code = strings.TrimSpace(code)
	store := e.engine.Snapshot().Store
	if _, ok := store.Get(code); !ok {
		return nil, apperrors.Newf(apperrors.ErrOccupationNotFound, http.StatusNotFound, "no occupation with code %q", code)
	}
	m := formatter.Format(ctx, []ranker.Result{{Code: code}}, store, e.lookup, e.opts.Format)
	return &m[0], nil
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
