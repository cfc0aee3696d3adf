package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/resilience"
)

type HTTPOptions struct {
	Timeout time.Duration
	Client  *http.Client
	Retry   resilience.RetryConfig
	Breaker resilience.CircuitBreakerConfig
}

// HTTPClient asks a review service for GET {baseURL}/reviews?title=NAME.
// A 404 means no review; other failures are retried and feed a circuit
// breaker so a dead service costs little per search.
type HTTPClient struct {
	baseURL string
	opts    HTTPOptions
	client  *http.Client
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewHTTPClient(baseURL string, opts HTTPOptions) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.RetryConfig{MaxAttempts: 2, InitialDelay: 50 * time.Millisecond}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		opts:    opts,
		client:  client,
		breaker: resilience.NewCircuitBreaker("review-service", opts.Breaker),
		logger:  slog.Default().With("component", "review-client"),
	}
}

func (c *HTTPClient) Lookup(ctx context.Context, name string) (*Review, bool) {
	var r *Review
	err := resilience.WithTimeout(ctx, c.opts.Timeout, "review lookup", func(ctx context.Context) error {
		return resilience.Retry(ctx, "review lookup", c.opts.Retry, func() error {
			return c.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
				var err error
				r, err = c.fetch(ctx, name)
				return err
			})
		})
	})
	switch {
	case err == nil:
		return r, true
	case errors.Is(err, apperrors.ErrReviewNotFound):
		return nil, false
	default:
		c.logger.Debug("review lookup failed", "title", name, "error", err)
		return nil, false
	}
}

func (c *HTTPClient) fetch(ctx context.Context, name string) (*Review, error) {
	u := c.baseURL + "/reviews?" + url.Values{"title": {name}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("building review request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling review service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return nil, resilience.Permanent(apperrors.ErrReviewNotFound)
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("review service returned %d: %w", resp.StatusCode, apperrors.ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, resilience.Permanent(fmt.Errorf("review service returned %d", resp.StatusCode))
	}

	var r Review
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&r); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("decoding review: %w", err))
	}
	if r.Title == "" {
		r.Title = name
	}
	return &r, nil
}

// BreakerState reports the circuit breaker state, for readiness output.
func (c *HTTPClient) BreakerState() resilience.State {
	return c.breaker.GetState()
}
