package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/kafka"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (r *recordingSink) PublishBatch(_ context.Context, events []kafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]kafka.Event(nil), events...))
	return r.err
}

func (r *recordingSink) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func TestCollectorBatchesAndFlushesOnClose(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(sink, CollectorOptions{BatchSize: 2, FlushInterval: time.Hour})
	c.Start(context.Background())

	for i := 0; i < 5; i++ {
		c.TrackSearch(SearchEvent{Query: "nurse", TotalHits: 1})
	}
	c.TrackView(ViewEvent{Code: "29-1141.00", Found: true})
	c.Close()

	if sink.total() != 6 {
		t.Fatalf("expected 6 events flushed, got %d", sink.total())
	}
	if len(sink.batches[0]) != 2 {
		t.Errorf("first batch size %d, want 2", len(sink.batches[0]))
	}
	last := sink.batches[len(sink.batches)-1]
	view, ok := last[len(last)-1].Value.(ViewEvent)
	if !ok || view.Type != EventView || view.Timestamp.IsZero() {
		t.Errorf("unexpected final event %+v", last[len(last)-1])
	}

	// tracking after Close is a no-op
	c.TrackSearch(SearchEvent{Query: "late"})
	c.Close()
}

func TestCollectorCountsFailuresAndDrops(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	c := NewCollector(sink, CollectorOptions{BufferSize: 1, BatchSize: 10, FlushInterval: time.Hour})
	// not started: the buffer fills after one event
	c.TrackSearch(SearchEvent{Query: "a"})
	c.TrackSearch(SearchEvent{Query: "b"})
	if c.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", c.Dropped())
	}
	c.Start(context.Background())
	c.Close()
	if c.Failed() != 1 {
		t.Errorf("Failed = %d, want 1", c.Failed())
	}
}

func TestCollectorFlushesOnCancel(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(sink, CollectorOptions{BatchSize: 100, FlushInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	c.TrackSearch(SearchEvent{Query: "x"})
	c.Start(ctx)
	cancel()
	<-c.done
	if sink.total() != 1 {
		t.Errorf("expected pending event flushed on cancel, got %d", sink.total())
	}
}

func TestSearchType(t *testing.T) {
	if searchType(SearchEvent{TotalHits: 0, CacheHit: true}) != EventZeroResult {
		t.Error("zero hits should win")
	}
	if searchType(SearchEvent{TotalHits: 3, CacheHit: true}) != EventCacheHit {
		t.Error("expected cache hit")
	}
	if searchType(SearchEvent{TotalHits: 3}) != EventSearch {
		t.Error("expected search")
	}
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.PublishBatch(context.Background(), []kafka.Event{
		{Value: SearchEvent{Query: "nurse", TotalHits: 4, TopCode: "29-1141.00", LatencyMs: 10}},
		{Value: SearchEvent{Query: "nurse", TotalHits: 4, TopCode: "29-1141.00", LatencyMs: 30, CacheHit: true}},
		{Value: SearchEvent{Query: "astrology", TotalHits: 0, LatencyMs: 20}},
		{Value: ViewEvent{Code: "29-1141.00", Found: true}},
		{Value: ViewEvent{Code: "00-0000.00"}},
		{Value: "unknown"},
	})
	s := agg.Stats()
	if s.TotalSearches != 3 || s.CacheHits != 1 || s.CacheMisses != 2 || s.ZeroResultCount != 1 {
		t.Errorf("unexpected counters %+v", s)
	}
	if s.OccupationViews != 2 || len(s.TopViewed) != 1 {
		t.Errorf("unexpected views %+v", s)
	}
	if s.AvgLatencyMs != 20 || s.P50LatencyMs != 20 || s.P99LatencyMs != 30 {
		t.Errorf("unexpected latency %+v", s)
	}
	if len(s.TopQueries) != 2 || s.TopQueries[0].Query != "nurse" || s.TopQueries[0].Count != 2 {
		t.Errorf("unexpected top queries %+v", s.TopQueries)
	}
	if len(s.ZeroResultQueries) != 1 || s.ZeroResultQueries[0].Query != "astrology" {
		t.Errorf("unexpected zero result queries %+v", s.ZeroResultQueries)
	}
	if len(s.TopOccupations) != 1 || s.TopOccupations[0].Count != 2 {
		t.Errorf("unexpected top occupations %+v", s.TopOccupations)
	}
}

func TestHandleMessage(t *testing.T) {
	agg := NewAggregator()
	handle := HandleMessage(agg)
	search, _ := json.Marshal(SearchEvent{Type: EventSearch, Query: "welder", TotalHits: 2})
	view, _ := json.Marshal(ViewEvent{Type: EventView, Code: "51-4121.00", Found: true})
	for _, msg := range [][]byte{search, view, []byte(`{"type":"mystery"}`), []byte(`not json`)} {
		if err := handle(context.Background(), nil, msg); err != nil {
			t.Errorf("handler should acknowledge every message, got %v", err)
		}
	}
	s := agg.Stats()
	if s.TotalSearches != 1 || s.OccupationViews != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestAggregatorRestore(t *testing.T) {
	agg := NewAggregator()
	agg.RecordSearch(SearchEvent{Query: "chef", TotalHits: 1})
	agg.Restore(AggregatedStats{
		TotalSearches: 10,
		TopQueries:    []QueryCount{{Query: "chef", Count: 9}},
	})
	s := agg.Stats()
	if s.TotalSearches != 11 || s.TopQueries[0].Count != 10 {
		t.Errorf("unexpected stats after restore %+v", s)
	}
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.RecordSearch(SearchEvent{Query: "pilot", TotalHits: 1})
	h := NewHandler(agg, nil)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["total_searches"] != float64(1) {
		t.Errorf("total_searches = %v", body["total_searches"])
	}
	if _, ok := body["dropped_events"]; !ok {
		t.Error("missing dropped_events")
	}
}
