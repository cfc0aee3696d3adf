package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/occupation"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/metrics"
)

func imp(v float64) *float64 { return &v }

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return nil
}

func (m *memStore) FlushByPattern(context.Context, string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.data))
	m.data = make(map[string]string)
	return n, nil
}

type fixture struct {
	mux     *http.ServeMux
	metrics *metrics.Metrics
	agg     *analytics.Aggregator
	coll    *analytics.Collector
}

func newFixture(t *testing.T, withCache bool) *fixture {
	t.Helper()
	records := make([]*occupation.Record, 12)
	for i := range records {
		records[i] = &occupation.Record{
			Code:      fmt.Sprintf("%02d-1000.00", i),
			Name:      fmt.Sprintf("Occupation %d", i),
			Knowledge: []occupation.Item{{Name: "Mathematics", Importance: imp(float64(20 + i))}},
		}
	}
	store, err := occupation.NewStore(records)
	if err != nil {
		t.Fatal(err)
	}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	engine := indexer.NewEngine(store, indexer.DefaultOptions(), m)
	exec := executor.New(engine, tokenizer.Words{}, nil, executor.Options{}, m)

	var qc *cache.QueryCache
	if withCache {
		qc = cache.New(&memStore{data: make(map[string]string)}, time.Minute, "test", m)
	}
	agg := analytics.NewAggregator()
	coll := analytics.NewCollector(agg, analytics.CollectorOptions{BatchSize: 1})
	coll.Start(context.Background())
	t.Cleanup(coll.Close)

	mux := http.NewServeMux()
	New(exec, engine, qc, coll, m).Register(mux)
	return &fixture{mux: mux, metrics: m, agg: agg, coll: coll}
}

func (f *fixture) do(method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestSearch(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(http.MethodGet, "/api/v1/search?q=mathematics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var res executor.SearchResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if len(res.Results) != 10 || res.TotalHits != 12 {
		t.Fatalf("got %d results of %d hits", len(res.Results), res.TotalHits)
	}
	if res.Results[0].Code != "11-1000.00" || res.Results[0].Score != 31 {
		t.Errorf("unexpected best match %+v", res.Results[0])
	}
	if got := testutil.ToFloat64(f.metrics.SearchQueriesTotal.WithLabelValues("hit")); got != 1 {
		t.Errorf("search_queries_total{hit} = %v", got)
	}

	f.coll.Close()
	if s := f.agg.Stats(); s.TotalSearches != 1 || s.TopOccupations[0].Code != "11-1000.00" {
		t.Errorf("analytics not recorded: %+v", s)
	}
}

func TestSearchLimitAndValidation(t *testing.T) {
	f := newFixture(t, false)
	tests := []struct {
		target  string
		status  int
		results int
	}{
		{"/api/v1/search?q=mathematics&limit=3", http.StatusOK, 3},
		{"/api/v1/search?q=mathematics&limit=50", http.StatusOK, 10},
		{"/api/v1/search?q=astrology", http.StatusOK, 0},
		{"/api/v1/search?q=", http.StatusOK, 0},
		{"/api/v1/search", http.StatusBadRequest, 0},
		{"/api/v1/search?q=x&limit=0", http.StatusBadRequest, 0},
		{"/api/v1/search?q=x&limit=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		rec := f.do(http.MethodGet, tt.target)
		if rec.Code != tt.status {
			t.Errorf("%s: status %d, want %d", tt.target, rec.Code, tt.status)
			continue
		}
		if tt.status != http.StatusOK {
			continue
		}
		var res executor.SearchResult
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatal(err)
		}
		if len(res.Results) != tt.results {
			t.Errorf("%s: %d results, want %d", tt.target, len(res.Results), tt.results)
		}
	}
}

func TestSearchUsesCache(t *testing.T) {
	f := newFixture(t, true)
	for i, want := range []string{"miss", "hit"} {
		rec := f.do(http.MethodGet, "/api/v1/search?q=Mathematics")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d", rec.Code)
		}
		if got := rec.Header().Get(CacheStatusHeader); got != want {
			t.Errorf("request %d: %s = %q, want %q", i, CacheStatusHeader, got, want)
		}
	}
	rec := f.do(http.MethodGet, "/api/v1/cache/stats")
	var stats map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats["hits"] != float64(1) || stats["misses"] != float64(1) {
		t.Errorf("cache stats = %v", stats)
	}
	if rec := f.do(http.MethodPost, "/api/v1/cache/invalidate"); rec.Code != http.StatusOK {
		t.Errorf("invalidate status %d", rec.Code)
	}
}

func TestCacheDisabled(t *testing.T) {
	f := newFixture(t, false)
	if rec := f.do(http.MethodPost, "/api/v1/cache/invalidate"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("invalidate status %d, want 503", rec.Code)
	}
	rec := f.do(http.MethodGet, "/api/v1/cache/stats")
	if rec.Code != http.StatusOK {
		t.Errorf("stats status %d", rec.Code)
	}
}

func TestOccupation(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(http.MethodGet, "/api/v1/occupations/03-1000.00")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["job"] != "Occupation 3" {
		t.Errorf("job = %v", body["job"])
	}

	rec = f.do(http.MethodGet, "/api/v1/occupations/99-9999.99")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown code status %d, want 404", rec.Code)
	}
	f.coll.Close()
	if s := f.agg.Stats(); s.OccupationViews != 2 || len(s.TopViewed) != 1 {
		t.Errorf("views not recorded: %+v", s)
	}
}

func TestIndexStats(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(http.MethodGet, "/api/v1/index/stats")
	var stats indexer.Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 12 || stats.Terms != 1 || stats.PrunedTerms != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
