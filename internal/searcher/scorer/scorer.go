// Package scorer accumulates raw (un-normalized) dot products between a
// query's term counts and the posting scores of the index.
package scorer

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer/weights"
)

type Mode int

const (
	// ModeRaw multiplies the query count by the posting score.
	ModeRaw Mode = iota
	// ModeIDFWeighted weights both sides by the term's IDF and skips pruned
	// terms.
	ModeIDFWeighted
)

func (m Mode) String() string {
	switch m {
	case ModeRaw:
		return "raw"
	case ModeIDFWeighted:
		return "idf"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts the configuration spelling of a mode. Empty means raw.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "raw":
		return ModeRaw, nil
	case "idf":
		return ModeIDFWeighted, nil
	default:
		return ModeRaw, fmt.Errorf("unknown scoring mode %q", s)
	}
}

// Score returns raw[code] for every document touched by a query term with a
// positive count. Terms missing from the index contribute nothing.
func Score(counts map[string]int, idx *index.Index, idf weights.IDF, mode Mode) map[string]float64 {
	raw := make(map[string]float64)
	for term, count := range counts {
		if count <= 0 {
			continue
		}
		postings := idx.Postings(term)
		if len(postings) == 0 {
			continue
		}
		switch mode {
		case ModeIDFWeighted:
			w, ok := idf.Weight(term)
			if !ok {
				continue
			}
			q := float64(count) * w
			for _, p := range postings {
				raw[p.Code] += q * (p.Score * w)
			}
		default:
			c := float64(count)
			for _, p := range postings {
				raw[p.Code] += c * p.Score
			}
		}
	}
	return raw
}
