package formatter

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/occupation"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/review"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/ranker"
)

func imp(v float64) *float64 { return &v }

func names(items []TopItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestTopItems(t *testing.T) {
	rec := &occupation.Record{
		Skills: []occupation.Item{
			{Name: "Programming", Importance: imp(70.9)},
			{Name: "Coordination"},
			{Name: "Monitoring", Importance: imp(40)},
		},
		Knowledge: []occupation.Item{
			{Name: "Mathematics", Importance: imp(98)},
			{Name: "Design", Importance: imp(70.2)},
		},
		Values: []occupation.Item{{Name: "Support", Importance: imp(99)}},
	}
	got := names(TopItems(rec, 10))
	want := []string{"Mathematics", "Programming", "Design", "Monitoring", "Coordination"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopItems = %v, want %v", got, want)
	}
	if got := names(TopItems(rec, 2)); !reflect.DeepEqual(got, want[:2]) {
		t.Errorf("TopItems(2) = %v", got)
	}
}

func TestTopItemJSON(t *testing.T) {
	items := []TopItem{{Name: "Mathematics", Importance: imp(98)}, {Name: "Coordination"}}
	data, err := json.Marshal(items)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[["Mathematics",98],["Coordination",null]]` {
		t.Errorf("unexpected encoding %s", data)
	}
	var back []TopItem
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back[0].Name != "Mathematics" || *back[0].Importance != 98 || back[1].Importance != nil {
		t.Errorf("decoded %+v", back)
	}
	if err := json.Unmarshal([]byte(`["x"]`), &back[0]); err == nil {
		t.Error("expected arity error")
	}
}

func testStore(t *testing.T, n int) *occupation.Store {
	t.Helper()
	records := make([]*occupation.Record, n)
	for i := range records {
		records[i] = &occupation.Record{
			Code:   fmt.Sprintf("%02d", i),
			Name:   fmt.Sprintf("Occupation %d", i),
			Skills: []occupation.Item{{Name: "Programming", Importance: imp(float64(i))}},
		}
	}
	store, err := occupation.NewStore(records)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestFormatKeepsOrderAndSwallowsMissingReviews(t *testing.T) {
	store := testStore(t, 5)
	results := []ranker.Result{{Score: 9, Code: "03"}, {Score: 5, Code: "01"}, {Score: 1, Code: "99"}, {Score: 0.5, Code: "04"}}

	var mu sync.Mutex
	var asked []string
	lookup := review.LookupFunc(func(_ context.Context, name string) (*review.Review, bool) {
		mu.Lock()
		asked = append(asked, name)
		mu.Unlock()
		if name == "Occupation 1" {
			return &review.Review{Title: name, Rating: 4}, true
		}
		return nil, false
	})

	got := Format(context.Background(), results, store, lookup, Options{Concurrency: 2})
	if len(got) != 3 {
		t.Fatalf("expected unknown code to be dropped, got %d matches", len(got))
	}
	wantCodes := []string{"03", "01", "04"}
	for i, m := range got {
		if m.Code != wantCodes[i] {
			t.Errorf("match %d code %s, want %s", i, m.Code, wantCodes[i])
		}
	}
	if got[0].Review != nil || got[2].Review != nil {
		t.Error("missing reviews should be nil")
	}
	if got[1].Review == nil || got[1].Review.Rating != 4 {
		t.Errorf("expected review on Occupation 1, got %+v", got[1].Review)
	}
	if got[0].Occupation != "Occupation 3" || len(got[0].TopItems) != 1 {
		t.Errorf("unexpected match %+v", got[0])
	}
	if len(asked) != 3 {
		t.Errorf("expected 3 lookups, got %v", asked)
	}
}

func TestFormatJSONFields(t *testing.T) {
	got := Format(context.Background(), []ranker.Result{{Score: 2, Code: "01"}}, testStore(t, 2), nil, Options{})
	data, err := json.Marshal(got[0])
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"score", "code", "job", "top10", "review"} {
		if _, ok := fields[k]; !ok {
			t.Errorf("missing field %q in %s", k, data)
		}
	}
	if string(fields["review"]) != "null" {
		t.Errorf("review = %s, want null", fields["review"])
	}
}

func TestFormatCapsTopItems(t *testing.T) {
	skills := make([]occupation.Item, 15)
	for i := range skills {
		skills[i] = occupation.Item{Name: fmt.Sprintf("Skill %d", i), Importance: imp(float64(i))}
	}
	store, err := occupation.NewStore([]*occupation.Record{{Code: "A", Name: "Generalists", Skills: skills}})
	if err != nil {
		t.Fatal(err)
	}
	got := Format(context.Background(), []ranker.Result{{Score: 1, Code: "A"}}, store, review.None{}, Options{TopItems: 30})
	if len(got) != 1 || len(got[0].TopItems) != DefaultTopItems {
		t.Fatalf("expected %d top items, got %+v", DefaultTopItems, got)
	}
}
