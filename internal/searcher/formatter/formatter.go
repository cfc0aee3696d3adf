// Package formatter turns ranked codes into display matches: the occupation
// title, its strongest skill and knowledge items, and an optional review.
package formatter

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/occupation"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/review"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/logger"
)

const (
	DefaultTopItems    = 10
	DefaultConcurrency = 4
)

// TopItem encodes as a [name, importance] pair; importance is null when the
// record did not rate the item.
type TopItem struct {
	Name       string
	Importance *float64
}

func (t TopItem) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{t.Name, t.Importance})
}

func (t *TopItem) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("top item: expected [name, importance], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &t.Name); err != nil {
		return fmt.Errorf("top item name: %w", err)
	}
	t.Importance = nil
	return json.Unmarshal(pair[1], &t.Importance)
}

type Match struct {
	Score      float64        `json:"score"`
	Code       string         `json:"code"`
	Occupation string         `json:"job"`
	TopItems   []TopItem      `json:"top10"`
	Review     *review.Review `json:"review"`
}

type Options struct {
	TopItems    int
	Concurrency int
}

// Format builds one Match per result, in ranked order. Review lookups run
// concurrently; a missing review never fails the call.
func Format(ctx context.Context, results []ranker.Result, store *occupation.Store, lookup review.Lookup, opts Options) []Match {
	if opts.TopItems <= 0 || opts.TopItems > DefaultTopItems {
		opts.TopItems = DefaultTopItems
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if lookup == nil {
		lookup = review.None{}
	}
	log := logger.FromContext(ctx)

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		rec, ok := store.Get(r.Code)
		if !ok {
			log.Warn("ranked code missing from record store", "code", r.Code)
			continue
		}
		matches = append(matches, Match{
			Score:      r.Score,
			Code:       r.Code,
			Occupation: rec.Name,
			TopItems:   TopItems(rec, opts.TopItems),
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i := range matches {
		g.Go(func() error {
			if rv, ok := lookup.Lookup(gctx, matches[i].Occupation); ok {
				matches[i].Review = rv
			}
			return nil
		})
	}
	_ = g.Wait()
	return matches
}

// TopItems merges skills and knowledge, orders them by truncated importance
// (unrated counts as 0) and keeps the first n. Ties keep record order.
func TopItems(rec *occupation.Record, n int) []TopItem {
	items := make([]TopItem, 0, len(rec.Skills)+len(rec.Knowledge))
	for _, it := range rec.Skills {
		items = append(items, TopItem{Name: it.Name, Importance: it.Importance})
	}
	for _, it := range rec.Knowledge {
		items = append(items, TopItem{Name: it.Name, Importance: it.Importance})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return displayRank(items[i]) > displayRank(items[j])
	})
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return items
}

func displayRank(t TopItem) float64 {
	if t.Importance == nil || math.IsNaN(*t.Importance) {
		return 0
	}
	return math.Trunc(*t.Importance)
}
