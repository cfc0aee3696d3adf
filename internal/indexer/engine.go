// Package indexer turns a record store into the immutable search snapshot:
// inverted index, code map, IDF table and document norms.
package indexer

import (
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer/weights"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/occupation"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/metrics"
)

// Snapshot is everything a search reads. Nothing in it is mutated after
// NewEngine returns, so it is safe to share between concurrent searches.
type Snapshot struct {
	Store *occupation.Store
	Index *index.Index
	Codes *index.CodeMap
	IDF   weights.IDF
	Norms weights.Norms
}

type Options struct {
	Index index.Options
	IDF   weights.IDFOptions
}

func DefaultOptions() Options {
	return Options{
		Index: index.DefaultOptions(),
		IDF:   weights.DefaultIDFOptions(),
	}
}

func OptionsFromConfig(cfg config.RankingConfig) Options {
	return Options{
		Index: index.Options{DefaultImportance: cfg.DefaultImportance},
		IDF:   weights.IDFOptions{MinDF: cfg.MinDF, MaxDFRatio: cfg.MaxDFRatio},
	}
}

type Stats struct {
	Documents         int     `json:"documents"`
	Terms             int     `json:"terms"`
	WeightedTerms     int     `json:"weighted_terms"`
	PrunedTerms       int     `json:"pruned_terms"`
	ZeroNormDocuments int     `json:"zero_norm_documents"`
	DefaultImportance float64 `json:"default_importance"`
	MinDF             int     `json:"min_df"`
	MaxDFRatio        float64 `json:"max_df_ratio"`
	BuildMillis       int64   `json:"build_ms"`
}

type Engine struct {
	snapshot *Snapshot
	stats    Stats
	logger   *slog.Logger
}

// NewEngine runs Build → IDF → norms once over store. m may be nil.
func NewEngine(store *occupation.Store, opts Options, m *metrics.Metrics) *Engine {
	logger := slog.Default().With("component", "indexer")
	start := time.Now()

	idx := index.Build(store, opts.Index)
	codes := index.NewCodeMap(store.Codes())
	nDocs := store.Len()
	idf := weights.ComputeIDF(idx, nDocs, opts.IDF)
	norms := weights.ComputeNorms(idx, idf, nDocs, codes)
	elapsed := time.Since(start)

	zeroNorms := 0
	for _, n := range norms {
		if n == 0 {
			zeroNorms++
		}
	}
	e := &Engine{
		snapshot: &Snapshot{
			Store: store,
			Index: idx,
			Codes: codes,
			IDF:   idf,
			Norms: norms,
		},
		stats: Stats{
			Documents:         nDocs,
			Terms:             idx.Len(),
			WeightedTerms:     len(idf),
			PrunedTerms:       idx.Len() - len(idf),
			ZeroNormDocuments: zeroNorms,
			DefaultImportance: opts.Index.DefaultImportance,
			MinDF:             opts.IDF.MinDF,
			MaxDFRatio:        opts.IDF.MaxDFRatio,
			BuildMillis:       elapsed.Milliseconds(),
		},
		logger: logger,
	}
	if m != nil {
		m.IndexedDocuments.Set(float64(nDocs))
		m.IndexTerms.Set(float64(idx.Len()))
		m.PrunedTerms.Set(float64(e.stats.PrunedTerms))
		m.IndexBuildDuration.Set(elapsed.Seconds())
	}
	logger.Info("occupation index built",
		"documents", nDocs,
		"terms", idx.Len(),
		"weighted_terms", len(idf),
		"pruned_terms", e.stats.PrunedTerms,
		"zero_norm_documents", zeroNorms,
		"duration", elapsed,
	)
	if len(idf) == 0 && nDocs > 0 {
		logger.Warn("every term was pruned from the IDF table; cosine normalization will be floored",
			"min_df", opts.IDF.MinDF,
			"max_df_ratio", opts.IDF.MaxDFRatio,
		)
	}
	return e
}

func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot
}

func (e *Engine) Stats() Stats {
	return e.stats
}

// Vocabulary returns the index terms in ascending order.
func (e *Engine) Vocabulary() []string {
	return e.snapshot.Index.Terms()
}
