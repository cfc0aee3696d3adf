// Package index builds the occupation inverted index: attribute term to a
// list of (occupation code, importance) postings ordered by descending
// importance. The index is immutable once Build returns.
package index

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/occupation"
)

// DefaultImportance is the weight given to an item whose importance is
// absent, null or zero: "moderately important" rather than irrelevant.
const DefaultImportance = 75

type Options struct {
	DefaultImportance float64
}

func DefaultOptions() Options {
	return Options{DefaultImportance: DefaultImportance}
}

type Index struct {
	postings map[string]PostingList
	docCount int
}

// NormalizeTerm maps an attribute item name to its index term:
// lower-cased, with underscores replaced by spaces.
func NormalizeTerm(item string) string {
	return strings.ReplaceAll(strings.ToLower(item), "_", " ")
}

// Build indexes every attribute item of every record in store order.
func Build(store *occupation.Store, opts Options) *Index {
	idx := &Index{
		postings: make(map[string]PostingList),
	}
	store.Each(func(rec *occupation.Record) {
		touched := make(map[string]struct{})
		for _, group := range rec.Groups() {
			for _, item := range group.Items {
				term := NormalizeTerm(item.Name)
				idx.postings[term] = append(idx.postings[term], Posting{
					Code:  rec.Code,
					Score: item.ImportanceOr(opts.DefaultImportance),
				})
				touched[term] = struct{}{}
			}
		}
		// Only lists that grew can be out of order.
		for term := range touched {
			sortPostings(idx.postings[term])
		}
		idx.docCount++
	})
	return idx
}

// sortPostings orders by descending score. Ties keep no particular order.
func sortPostings(list PostingList) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].Score > list[j].Score
	})
}

// Postings returns the posting list for term, or nil. Callers must not
// modify the returned slice.
func (idx *Index) Postings(term string) PostingList {
	return idx.postings[term]
}

// DocFreq is the length of term's posting list.
func (idx *Index) DocFreq(term string) int {
	return len(idx.postings[term])
}

// Len returns the number of distinct terms.
func (idx *Index) Len() int {
	return len(idx.postings)
}

// DocCount returns the number of records the index was built from.
func (idx *Index) DocCount() int {
	return idx.docCount
}

// Terms returns the vocabulary in ascending order.
func (idx *Index) Terms() []string {
	terms := make([]string, 0, len(idx.postings))
	for term := range idx.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Snapshot returns every term with its postings, ordered by term.
func (idx *Index) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(idx.postings))
	for _, term := range idx.Terms() {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: idx.postings[term],
		})
	}
	return entries
}

// TermIDs assigns each term a dense id following Terms order.
func (idx *Index) TermIDs() map[string]int {
	ids := make(map[string]int, len(idx.postings))
	for i, term := range idx.Terms() {
		ids[term] = i
	}
	return ids
}
