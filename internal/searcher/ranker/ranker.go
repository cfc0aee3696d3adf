package ranker

import (
	"context"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer/weights"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/scorer"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/metrics"
)

type Result struct {
	Score float64 `json:"score"`
	Code  string  `json:"code"`
}

type Options struct {
	Mode scorer.Mode
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// FloorToInt truncates v toward zero. It reports false when v is NaN or
// infinite, or does not fit in an int64.
func FloorToInt(v float64) (int64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	t := math.Trunc(v)
	if t >= math.MaxInt64 || t < math.MinInt64 {
		return 0, false
	}
	return int64(t), true
}

// QueryNorm is the length of the query vector over non-pruned terms.
func QueryNorm(counts map[string]int, idf weights.IDF) float64 {
	var sum float64
	for term, count := range counts {
		w, ok := idf.Weight(term)
		if !ok {
			continue
		}
		v := w * float64(count)
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Search tokenizes query and ranks every matching document of snap.
func Search(ctx context.Context, query string, snap *indexer.Snapshot, tok tokenizer.Tokenizer, opts Options) []Result {
	return Rank(ctx, tokenizer.Count(tok.Tokenize(query)), snap, opts)
}

// Rank scores documents against term counts and returns them ordered by
// descending similarity. Documents with a zero raw score are left out.
func Rank(ctx context.Context, counts map[string]int, snap *indexer.Snapshot, opts Options) []Result {
	if len(counts) == 0 {
		return []Result{}
	}
	log := logger.FromContext(ctx)
	raw := scorer.Score(counts, snap.Index, snap.IDF, opts.Mode)
	qNorm := QueryNorm(counts, snap.IDF)

	results := make([]Result, 0, len(raw))
	for code, score := range raw {
		if score == 0 {
			continue
		}
		i, ok := snap.Codes.IndexOf(code)
		if !ok {
			log.Warn("scored document missing from code map", "code", code)
			continue
		}
		floored, ok := FloorToInt(score)
		if !ok {
			log.Warn("skipping document with malformed score", "code", code, "raw_score", score)
			if opts.Metrics != nil {
				opts.Metrics.SkippedDocumentsTotal.Inc()
			}
			continue
		}
		denom := math.Max(qNorm*snap.Norms.At(i), 1)
		results = append(results, Result{
			Score: float64(floored) / denom,
			Code:  code,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Code < results[j].Code
	})
	return results
}
