// Package weights derives the vector-space weights of the occupation index:
// per-term inverse document frequencies and per-document Euclidean norms.
package weights

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer/index"
)

// IDF maps a term to its inverse document frequency. Terms pruned by the
// document-frequency thresholds are absent and contribute nothing anywhere.
type IDF map[string]float64

// Weight returns the term's IDF and whether the term survived pruning.
func (t IDF) Weight(term string) (float64, bool) {
	w, ok := t[term]
	return w, ok
}

type IDFOptions struct {
	// MinDF excludes terms with fewer postings than this.
	MinDF int
	// MaxDFRatio excludes terms whose df/nDocs exceeds it.
	MaxDFRatio float64
}

func DefaultIDFOptions() IDFOptions {
	return IDFOptions{MinDF: 10, MaxDFRatio: 0.95}
}

// ComputeIDF weighs each term log2(nDocs / (1 + df)) where df is the length of
// its posting list. Broad vocabularies push most weights to zero or below;
// those terms are kept as long as they pass the thresholds.
func ComputeIDF(idx *index.Index, nDocs int, opts IDFOptions) IDF {
	idf := make(IDF)
	if nDocs <= 0 {
		return idf
	}
	n := float64(nDocs)
	for _, entry := range idx.Snapshot() {
		df := len(entry.Postings)
		if df < opts.MinDF || float64(df)/n > opts.MaxDFRatio {
			continue
		}
		idf[entry.Term] = math.Log2(n / float64(1+df))
	}
	return idf
}
