package ranker

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/occupation"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/scorer"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func imp(v float64) *float64 { return &v }

func snapshot(t *testing.T, records ...*occupation.Record) *indexer.Snapshot {
	t.Helper()
	store, err := occupation.NewStore(records)
	if err != nil {
		t.Fatal(err)
	}
	return indexer.NewEngine(store, indexer.DefaultOptions(), nil).Snapshot()
}

// mathematicsCorpus has two mathematics documents and enough filler so that
// no term survives IDF pruning.
func mathematicsCorpus(t *testing.T) *indexer.Snapshot {
	return snapshot(t,
		&occupation.Record{Code: "A", Knowledge: []occupation.Item{{Name: "Mathematics", Importance: imp(80)}}},
		&occupation.Record{Code: "B", Knowledge: []occupation.Item{{Name: "Mathematics", Importance: imp(40)}}},
		&occupation.Record{Code: "C", Knowledge: []occupation.Item{{Name: "Geography", Importance: imp(70)}}},
	)
}

func TestFloorToInt(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
		ok   bool
	}{
		{160, 160, true},
		{2.9, 2, true},
		{-2.9, -2, true},
		{0.4, 0, true},
		{math.NaN(), 0, false},
		{math.Inf(1), 0, false},
		{math.Inf(-1), 0, false},
		{1e300, 0, false},
	}
	for _, tt := range tests {
		got, ok := FloorToInt(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FloorToInt(%v) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSearchMathematics(t *testing.T) {
	snap := mathematicsCorpus(t)
	got := Search(context.Background(), "mathematics mathematics", snap, tokenizer.Words{}, Options{})

	// every term is pruned, so the denominator floors at 1
	want := []Result{{Score: 160, Code: "A"}, {Score: 80, Code: "B"}}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSearchEmptyAndUnknown(t *testing.T) {
	snap := mathematicsCorpus(t)
	for _, q := range []string{"", "   ", "astrology zoology"} {
		got := Search(context.Background(), q, snap, tokenizer.Words{}, Options{})
		if got == nil || len(got) != 0 {
			t.Errorf("Search(%q) = %v, want empty non-nil slice", q, got)
		}
	}
}

func TestSearchNormalizes(t *testing.T) {
	records := make([]*occupation.Record, 0, 20)
	for i := 0; i < 20; i++ {
		rec := &occupation.Record{Code: fmt.Sprintf("%02d", i)}
		if i < 10 {
			rec.Skills = []occupation.Item{{Name: "Programming", Importance: imp(float64(50 + i))}}
		}
		records = append(records, rec)
	}
	snap := snapshot(t, records...)
	w, ok := snap.IDF.Weight("programming")
	if !ok {
		t.Fatal("programming should survive pruning")
	}

	got := Search(context.Background(), "programming", snap, tokenizer.Words{}, Options{})
	if len(got) != 10 {
		t.Fatalf("expected 10 results, got %d", len(got))
	}
	for _, r := range got {
		i, _ := snap.Codes.IndexOf(r.Code)
		score := float64(50 + i)
		want := score / math.Max(w*score*w, 1)
		if math.Abs(r.Score-want) > 1e-12 {
			t.Errorf("%s: score %v, want %v", r.Code, r.Score, want)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Score < got[i].Score {
			t.Fatalf("results not descending: %+v", got)
		}
	}
}

func TestSearchSkipsMalformedScores(t *testing.T) {
	snap := snapshot(t,
		&occupation.Record{Code: "bad", Knowledge: []occupation.Item{{Name: "Mathematics", Importance: imp(math.Inf(1))}}},
		&occupation.Record{Code: "nan", Knowledge: []occupation.Item{{Name: "Mathematics", Importance: imp(math.NaN())}}},
		&occupation.Record{Code: "good", Knowledge: []occupation.Item{{Name: "Mathematics", Importance: imp(30)}}},
	)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	got := Search(context.Background(), "mathematics", snap, tokenizer.Words{}, Options{Metrics: m})
	if len(got) != 1 || got[0].Code != "good" || got[0].Score != 30 {
		t.Errorf("expected only the well-formed document, got %+v", got)
	}
	if n := testutil.ToFloat64(m.SkippedDocumentsTotal); n != 2 {
		t.Errorf("skipped documents = %v, want 2", n)
	}
}

func TestRankIDFWeighted(t *testing.T) {
	snap := mathematicsCorpus(t)
	// every term is pruned, so nothing scores in idf mode
	got := Rank(context.Background(), map[string]int{"mathematics": 1}, snap, Options{Mode: scorer.ModeIDFWeighted})
	if len(got) != 0 {
		t.Errorf("expected no results, got %+v", got)
	}
}

func TestQueryNorm(t *testing.T) {
	n := QueryNorm(map[string]int{"a": 2, "b": 1, "pruned": 9}, map[string]float64{"a": 1.5, "b": 2})
	if want := math.Sqrt(9 + 4); math.Abs(n-want) > 1e-12 {
		t.Errorf("QueryNorm = %v, want %v", n, want)
	}
}
