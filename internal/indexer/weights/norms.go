package weights

import (
	"log/slog"
	"math"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer/index"
)

// Norms holds the Euclidean norm of each document's weighted vector,
// addressed by CodeMap index.
type Norms []float64

// At returns the norm of document i, or 0 when i is out of range.
func (n Norms) At(i int) float64 {
	if i < 0 || i >= len(n) {
		return 0
	}
	return n[i]
}

// ComputeNorms sums (score × idf[term])² over every posting of every term the
// IDF table kept, then takes the square root per document. Pruned terms are
// outside the vector space for documents exactly as they are for queries.
func ComputeNorms(idx *index.Index, idf IDF, nDocs int, codes *index.CodeMap) Norms {
	norms := make(Norms, nDocs)
	for _, entry := range idx.Snapshot() {
		w, ok := idf.Weight(entry.Term)
		if !ok {
			continue
		}
		for _, p := range entry.Postings {
			i, ok := codes.IndexOf(p.Code)
			if !ok || i >= nDocs {
				slog.Debug("posting references unmapped occupation", "term", entry.Term, "code", p.Code)
				continue
			}
			c := p.Score * w
			norms[i] += c * c
		}
	}
	for i := range norms {
		norms[i] = math.Sqrt(norms[i])
	}
	return norms
}
