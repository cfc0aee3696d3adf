package weights

import (
	"fmt"
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/occupation"
)

func imp(v float64) *float64 { return &v }

// corpus builds n documents. Every document rates "common"; the first `rare`
// documents also rate "rare"; document 0 alone rates "unique".
func corpus(t *testing.T, n, rare int) (*occupation.Store, *index.Index) {
	t.Helper()
	records := make([]*occupation.Record, 0, n)
	for i := 0; i < n; i++ {
		rec := &occupation.Record{
			Code:      fmt.Sprintf("%02d-0000.00", i),
			Knowledge: []occupation.Item{{Name: "Common", Importance: imp(10)}},
		}
		if i < rare {
			rec.Skills = append(rec.Skills, occupation.Item{Name: "Rare", Importance: imp(float64(10 + i))})
		}
		if i == 0 {
			rec.Values = append(rec.Values, occupation.Item{Name: "Unique", Importance: imp(50)})
		}
		records = append(records, rec)
	}
	store, err := occupation.NewStore(records)
	if err != nil {
		t.Fatal(err)
	}
	return store, index.Build(store, index.DefaultOptions())
}

func TestComputeIDFPruning(t *testing.T) {
	_, idx := corpus(t, 20, 12)
	idf := ComputeIDF(idx, 20, DefaultIDFOptions())

	// common: df=20, ratio 1.0 > 0.95 -> pruned
	if _, ok := idf.Weight("common"); ok {
		t.Error("term in every document should be pruned by maxDFRatio")
	}
	// unique: df=1 < 10 -> pruned
	if _, ok := idf.Weight("unique"); ok {
		t.Error("term below minDF should be pruned")
	}
	// rare: df=12 -> kept with log2(20/13)
	w, ok := idf.Weight("rare")
	if !ok {
		t.Fatal("rare should survive pruning")
	}
	if want := math.Log2(20.0 / 13.0); math.Abs(w-want) > 1e-12 {
		t.Errorf("idf(rare) = %v, want %v", w, want)
	}
}

func TestComputeIDFThresholdBoundaries(t *testing.T) {
	_, idx := corpus(t, 20, 10)

	idf := ComputeIDF(idx, 20, IDFOptions{MinDF: 10, MaxDFRatio: 0.5})
	if _, ok := idf["rare"]; !ok {
		t.Error("df == minDF and df/n == maxDFRatio must both be kept")
	}
	idf = ComputeIDF(idx, 20, IDFOptions{MinDF: 11, MaxDFRatio: 1})
	if _, ok := idf["rare"]; ok {
		t.Error("df < minDF must be pruned")
	}
	idf = ComputeIDF(idx, 20, IDFOptions{MinDF: 0, MaxDFRatio: 0.49})
	if _, ok := idf["rare"]; ok {
		t.Error("df/n > maxDFRatio must be pruned")
	}
}

func TestComputeIDFKeepsNonPositiveWeights(t *testing.T) {
	_, idx := corpus(t, 20, 12)
	idf := ComputeIDF(idx, 20, IDFOptions{MinDF: 0, MaxDFRatio: 1})
	w, ok := idf.Weight("common")
	if !ok {
		t.Fatal("common should be kept without thresholds")
	}
	if want := math.Log2(20.0 / 21.0); w != want || w >= 0 {
		t.Errorf("idf(common) = %v, want negative %v", w, want)
	}
	if len(ComputeIDF(idx, 0, IDFOptions{})) != 0 {
		t.Error("no documents should yield an empty table")
	}
}

func TestComputeNorms(t *testing.T) {
	store, idx := corpus(t, 20, 12)
	idf := ComputeIDF(idx, 20, DefaultIDFOptions())
	codes := index.NewCodeMap(store.Codes())
	norms := ComputeNorms(idx, idf, 20, codes)

	if len(norms) != 20 {
		t.Fatalf("expected 20 norms, got %d", len(norms))
	}
	w := idf["rare"]
	for i, n := range norms {
		if n < 0 {
			t.Errorf("norm[%d] = %v is negative", i, n)
		}
		if i < 12 {
			want := math.Abs(float64(10+i) * w)
			if math.Abs(n-want) > 1e-9 {
				t.Errorf("norm[%d] = %v, want %v", i, n, want)
			}
		} else if n != 0 {
			t.Errorf("document %d has only pruned terms but norm %v", i, n)
		}
	}
	if norms.At(-1) != 0 || norms.At(20) != 0 {
		t.Error("out of range At should be 0")
	}
}

func TestComputeNormsMultipleTerms(t *testing.T) {
	store, err := occupation.NewStore([]*occupation.Record{
		{Code: "a", Knowledge: []occupation.Item{{Name: "x", Importance: imp(3)}, {Name: "y", Importance: imp(4)}}},
		{Code: "b", Knowledge: []occupation.Item{{Name: "y", Importance: imp(1)}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	idx := index.Build(store, index.DefaultOptions())
	idf := IDF{"x": 1, "y": 1}
	norms := ComputeNorms(idx, idf, 2, index.NewCodeMap(store.Codes()))
	if norms[0] != 5 || norms[1] != 1 {
		t.Errorf("norms = %v, want [5 1]", norms)
	}
}

func TestComputeNormsSkipsUnmappedCodes(t *testing.T) {
	store, idx := corpus(t, 3, 3)
	codes := index.NewCodeMap(store.Codes()[:1])
	norms := ComputeNorms(idx, IDF{"rare": 1}, 3, codes)
	if norms[0] != 10 || norms[1] != 0 || norms[2] != 0 {
		t.Errorf("norms = %v, want [10 0 0]", norms)
	}
}
