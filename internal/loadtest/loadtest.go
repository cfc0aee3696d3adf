// Package loadtest drives concurrent queries against a running search
// service and summarizes latency, status codes and cache effectiveness.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultQueries is a mix of single-term and multi-term interest queries.
var DefaultQueries = []string{
	"mathematics",
	"mathematics physics",
	"biology chemistry",
	"design",
	"english language",
	"customer and personal service",
	"complex problem solving",
	"programming",
	"law and government",
	"sales and marketing",
	"medicine and dentistry",
	"critical thinking",
}

type Options struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Queries     []string
	Client      *http.Client
}

type Report struct {
	Duration    time.Duration
	Total       int64
	Success     int64
	Errors      int64
	CacheHits   int64
	StatusCodes map[int]int64
	latencies   []time.Duration
}

type recorder struct {
	total, success, errors, cacheHits atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func (r *recorder) record(d time.Duration, status int, cacheStatus string, err error) {
	r.total.Add(1)
	if err != nil {
		r.errors.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		r.success.Add(1)
	} else {
		r.errors.Add(1)
	}
	if cacheStatus == "hit" {
		r.cacheHits.Add(1)
	}
	r.mu.Lock()
	r.latencies = append(r.latencies, d)
	r.codes[status]++
	r.mu.Unlock()
}

// Run issues queries round-robin from opts.Concurrency workers until
// opts.Duration elapses or ctx is cancelled.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if len(opts.Queries) == 0 {
		opts.Queries = DefaultQueries
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        opts.Concurrency * 2,
				MaxIdleConnsPerHost: opts.Concurrency * 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Duration)
	defer cancel()

	rec := &recorder{codes: make(map[int]int64)}
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Concurrency; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				q := opts.Queries[i%len(opts.Queries)]
				target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d", opts.BaseURL, url.QueryEscape(q), opts.Limit)
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					return err
				}
				start := time.Now()
				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					rec.record(time.Since(start), 0, "", err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				rec.record(time.Since(start), resp.StatusCode, resp.Header.Get("X-Cache"), nil)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.Sort(rec.latencies)
	return &Report{
		Duration:    opts.Duration,
		Total:       rec.total.Load(),
		Success:     rec.success.Load(),
		Errors:      rec.errors.Load(),
		CacheHits:   rec.cacheHits.Load(),
		StatusCodes: rec.codes,
		latencies:   rec.latencies,
	}, nil
}

// Percentile returns the p-th percentile latency using nearest rank.
func (r *Report) Percentile(p float64) time.Duration {
	if len(r.latencies) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(r.latencies)))) - 1
	idx = max(0, min(idx, len(r.latencies)-1))
	return r.latencies[idx]
}

func (r *Report) Mean() time.Duration {
	if len(r.latencies) == 0 {
		return 0
	}
	var sum time.Duration
	for _, l := range r.latencies {
		sum += l
	}
	return sum / time.Duration(len(r.latencies))
}

func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", r.Total)
	fmt.Fprintf(w, "Successful:      %d\n", r.Success)
	fmt.Fprintf(w, "Errors:          %d\n", r.Errors)
	if r.Total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(r.Errors)/float64(r.Total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(r.Total)/r.Duration.Seconds())
	}
	if r.Success > 0 {
		fmt.Fprintf(w, "Cache Hit Rate:  %.2f%%\n", float64(r.CacheHits)/float64(r.Success)*100)
	}

	if len(r.latencies) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", r.latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", r.Mean())
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Fprintf(w, "P%-2.0f:    %s\n", p, r.Percentile(p))
		}
		fmt.Fprintf(w, "Max:    %s\n", r.latencies[len(r.latencies)-1])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(r.StatusCodes))
	for code := range r.StatusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, r.StatusCodes[code])
	}
}
