// Package httpclient implements the bounded-concurrency JSON GET executor
// used by every source adapter and the region resolver.
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/metrics"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

// Config controls timeouts, the retry budget, and the in-flight cap.
type Config struct {
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	MaxInFlight int64
	UserAgent   string
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 250 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 5 * time.Second
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 10
	}
	return c
}

// Client executes JSON GET requests with retry on transient statuses and a
// shared counting semaphore capping in-flight requests.
type Client struct {
	http    *http.Client
	sem     *semaphore.Weighted
	retry   *retryPolicy
	cfg     Config
	logger  *zap.Logger
	maxBody int64
}

// New constructs a Client. A nil logger falls back to a no-op logger.
func New(cfg Config, logger *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   32,
		MaxConnsPerHost:       int(cfg.MaxInFlight) * 2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	}
	return &Client{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		sem:     semaphore.NewWeighted(cfg.MaxInFlight),
		retry:   newRetryPolicy(cfg.MaxRetries, cfg.BackoffBase, cfg.BackoffMax),
		cfg:     cfg,
		logger:  logger,
		maxBody: 10 << 20,
	}
}

// GetJSON fetches url with the query params and headers applied, retrying
// transient failures, and returns the raw JSON body.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, headers http.Header) (json.RawMessage, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	target, err := buildURL(rawURL, params)
	if err != nil {
		return nil, fmt.Errorf("build url %q: %w", rawURL, err)
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		body, retryable, err := c.doOnce(ctx, target, headers)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable || !c.retry.shouldRetry(ctx, attempt) {
			break
		}
		delay := c.retry.backoff(attempt)
		c.logger.Debug("retrying transient fetch failure",
			zap.String("url", target),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// BatchResult holds the outcome of one URL inside a batch fetch. Failures
// are values here, never reasons to cancel sibling fetches.
type BatchResult struct {
	URL  string
	Body json.RawMessage
	Err  error
}

// GetBatch fetches every URL concurrently, bounded by the client's shared
// semaphore, and returns results in completion order.
func (c *Client) GetBatch(ctx context.Context, urls []string, params url.Values, headers http.Header) []BatchResult {
	results := make(chan BatchResult, len(urls))
	for _, u := range urls {
		go func(u string) {
			body, err := c.GetJSON(ctx, u, params, headers)
			results <- BatchResult{URL: u, Body: body, Err: err}
		}(u)
	}
	out := make([]BatchResult, 0, len(urls))
	for range urls {
		out = append(out, <-results)
	}
	return out
}

// doOnce performs a single attempt. The bool reports whether the failure is
// worth retrying.
func (c *Client) doOnce(ctx context.Context, target string, headers http.Header) (json.RawMessage, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	for k, values := range headers {
		for _, v := range values {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveClientRequest(target, 0, time.Since(start))
		if isTimeout(err) && ctx.Err() == nil {
			return nil, true, &vacancy.FetchError{
				Kind:   vacancy.FetchTimeout,
				URL:    target,
				Detail: err.Error(),
			}
		}
		return nil, false, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	metrics.ObserveClientRequest(target, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		ferr := &vacancy.FetchError{
			Kind:   vacancy.FetchHTTP,
			Status: resp.StatusCode,
			URL:    target,
			Detail: strings.TrimSpace(string(detail)),
		}
		return nil, transientStatus(resp.StatusCode), ferr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false, &vacancy.FetchError{
			Kind:   vacancy.FetchDecode,
			Status: resp.StatusCode,
			URL:    target,
			Detail: err.Error(),
		}
	}
	return raw, false, nil
}

// transientStatus reports whether the code is worth a retry.
func transientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func buildURL(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if len(params) > 0 {
		q := u.Query()
		for k, values := range params {
			for _, v := range values {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
