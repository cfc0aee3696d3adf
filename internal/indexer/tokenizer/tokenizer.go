// Package tokenizer turns free-text queries into index terms. Two
// implementations are provided: Words, a plain lower-casing word splitter,
// and Skills, which removes stop-words, stems with Snowball and folds runs of
// words onto multi-word vocabulary terms such as "complex problem solving".
package tokenizer

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball/english"
)

// Tokenizer is the capability the ranker consumes. Output terms must already
// be comparable with index terms.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Func adapts a plain function to Tokenizer.
type Func func(text string) []string

func (f Func) Tokenize(text string) []string { return f(text) }

var wordPattern = regexp.MustCompile(`\w+`)

// Words splits on non-word characters and lower-cases every token.
type Words struct{}

func (Words) Tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// DefaultStopwords returns a common English stop-word set. Callers own the
// returned map.
func DefaultStopwords() map[string]struct{} {
	ws := []string{
		"a", "an", "and", "are", "as", "at", "be", "but", "by", "can",
		"do", "each", "for", "from", "had", "has", "have", "he", "i",
		"if", "in", "is", "it", "its", "like", "me", "my", "no", "not",
		"of", "on", "or", "so", "that", "the", "their", "they", "this",
		"to", "want", "was", "were", "what", "when", "where", "which",
		"who", "will", "with", "would", "you",
	}
	m := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		m[w] = struct{}{}
	}
	return m
}

// Skills maps query text onto a fixed vocabulary. Words that do not belong
// to any vocabulary term are emitted lower-cased and unstemmed, so they match
// nothing unless the index contains them verbatim.
type Skills struct {
	stop      map[string]struct{}
	phrases   map[string]string
	maxPhrase int
}

// NewSkills indexes vocabulary (already-normalized index terms) by the stem
// sequence of each term. When two terms stem identically the first wins.
func NewSkills(vocabulary []string, stop map[string]struct{}) *Skills {
	if stop == nil {
		stop = DefaultStopwords()
	}
	s := &Skills{
		stop:    stop,
		phrases: make(map[string]string, len(vocabulary)),
	}
	for _, term := range vocabulary {
		stems := s.stems(term)
		if len(stems) == 0 {
			continue
		}
		key := strings.Join(stems, " ")
		if _, taken := s.phrases[key]; taken {
			continue
		}
		s.phrases[key] = term
		if len(stems) > s.maxPhrase {
			s.maxPhrase = len(stems)
		}
	}
	return s
}

func (s *Skills) Tokenize(text string) []string {
	words := s.words(text)
	stems := make([]string, len(words))
	for i, w := range words {
		stems[i] = english.Stem(w, true)
	}

	terms := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		matched := 0
		for n := min(s.maxPhrase, len(words)-i); n > 0; n-- {
			if term, ok := s.phrases[strings.Join(stems[i:i+n], " ")]; ok {
				terms = append(terms, term)
				matched = n
				break
			}
		}
		if matched == 0 {
			terms = append(terms, words[i])
			matched = 1
		}
		i += matched
	}
	return terms
}

// words lower-cases and splits text, dropping stop-words.
func (s *Skills) words(text string) []string {
	all := wordPattern.FindAllString(strings.ToLower(text), -1)
	kept := all[:0]
	for _, w := range all {
		if _, isStop := s.stop[w]; isStop {
			continue
		}
		kept = append(kept, w)
	}
	return kept
}

func (s *Skills) stems(text string) []string {
	words := s.words(text)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if st := english.Stem(w, true); st != "" {
			out = append(out, st)
		}
	}
	return out
}

// Count builds the per-query term counts the scorer consumes.
func Count(terms []string) map[string]int {
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	return counts
}
