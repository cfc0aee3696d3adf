// Package review attaches best-effort employer reviews to matched
// occupations. A Lookup never fails: anything that goes wrong is reported as
// "no review".
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/metrics"
)

type Review struct {
	Title   string  `json:"title"`
	Rating  float64 `json:"rating"`
	Count   int     `json:"count,omitempty"`
	Summary string  `json:"summary,omitempty"`
	URL     string  `json:"url,omitempty"`
}

type Lookup interface {
	Lookup(ctx context.Context, name string) (*Review, bool)
}

type LookupFunc func(ctx context.Context, name string) (*Review, bool)

func (f LookupFunc) Lookup(ctx context.Context, name string) (*Review, bool) { return f(ctx, name) }

// None never finds a review.
type None struct{}

func (None) Lookup(context.Context, string) (*Review, bool) { return nil, false }

// Static serves reviews from memory, matching titles case-insensitively.
type Static struct {
	byTitle map[string]*Review
}

func NewStatic(reviews map[string]*Review) *Static {
	s := &Static{byTitle: make(map[string]*Review, len(reviews))}
	for title, r := range reviews {
		s.byTitle[normalizeTitle(title)] = r
	}
	return s
}

// LoadStatic reads a JSON object of title → review.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading review file: %w", err)
	}
	var reviews map[string]*Review
	if err := json.Unmarshal(data, &reviews); err != nil {
		return nil, fmt.Errorf("parsing review file %s: %w", path, err)
	}
	return NewStatic(reviews), nil
}

func (s *Static) Lookup(_ context.Context, name string) (*Review, bool) {
	r, ok := s.byTitle[normalizeTitle(name)]
	if !ok || r == nil {
		return nil, false
	}
	return r, true
}

func (s *Static) Len() int { return len(s.byTitle) }

func normalizeTitle(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

type instrumented struct {
	next    Lookup
	metrics *metrics.Metrics
}

// WithMetrics counts lookup outcomes on m.
func WithMetrics(l Lookup, m *metrics.Metrics) Lookup {
	if m == nil {
		return l
	}
	return &instrumented{next: l, metrics: m}
}

func (i *instrumented) Lookup(ctx context.Context, name string) (*Review, bool) {
	r, ok := i.next.Lookup(ctx, name)
	outcome := "missing"
	if ok {
		outcome = "found"
	}
	i.metrics.ReviewLookupsTotal.WithLabelValues(outcome).Inc()
	return r, ok
}

// FromConfig picks the lookup implementation: a static file wins over a
// base URL, and a disabled section yields None.
func FromConfig(cfg config.ReviewConfig, m *metrics.Metrics) (Lookup, error) {
	if !cfg.Enabled {
		return None{}, nil
	}
	var l Lookup
	switch {
	case cfg.StaticPath != "":
		s, err := LoadStatic(cfg.StaticPath)
		if err != nil {
			return nil, err
		}
		l = s
	case cfg.BaseURL != "":
		l = NewHTTPClient(cfg.BaseURL, HTTPOptions{Timeout: cfg.Timeout})
	default:
		return nil, fmt.Errorf("review lookup enabled without baseUrl or staticPath")
	}
	return WithMetrics(l, m), nil
}
