// Package source holds the clients for the external evidence providers: the
// market-data API, the chain node, project web pages, social search and RDAP.
//
// Clients return errors for every failure; callers decide how to degrade.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const maxErrorBody = 512

// ErrThrottled is returned when the persisted limiter refuses a call.
var ErrThrottled = errors.New("source rate limited")

// ErrNotFound is returned when a provider reports the object does not exist.
var ErrNotFound = errors.New("not found")

// Throttle is a per-endpoint limiter consulted before every provider call.
type Throttle interface {
	Allow(ctx context.Context, endpoint string) (bool, time.Duration, error)
	Record(ctx context.Context, endpoint string) error
	Record429(ctx context.Context, endpoint string, retryAfter time.Duration) error
}

// StatusError reports a non-success HTTP status from a provider.
type StatusError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Source, e.StatusCode, e.Body)
}

// HTTP is the transport shared by the JSON API clients.
type HTTP struct {
	Client    *http.Client
	UserAgent string
	Limiter   Throttle
}

// NewHTTP builds a transport with a bounded timeout. Redirects are followed.
func NewHTTP(timeout time.Duration, userAgent string, limiter Throttle) HTTP {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return HTTP{Client: &http.Client{Timeout: timeout}, UserAgent: userAgent, Limiter: limiter}
}

// Do sends req after consulting the limiter. A 429 response records a
// backoff from Retry-After.
func (h HTTP) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Hostname()

	if h.Limiter != nil && endpoint != "" {
		allowed, wait, err := h.Limiter.Allow(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("rate limit state: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s, retry in %s", ErrThrottled, endpoint, wait.Round(time.Second))
		}
		if err := h.Limiter.Record(ctx, endpoint); err != nil {
			return nil, fmt.Errorf("rate limit state: %w", err)
		}
	}

	if req.Header.Get("User-Agent") == "" {
		ua := h.UserAgent
		if ua == "" {
			ua = DefaultUserAgent
		}
		req.Header.Set("User-Agent", ua)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests && h.Limiter != nil && endpoint != "" {
		if wait := retryAfterHeader(resp); wait > 0 {
			_ = h.Limiter.Record429(ctx, endpoint, wait)
		}
	}
	return resp, nil
}

// getJSON issues a GET and decodes a 200 response into out. 404 maps to
// ErrNotFound; any other status is a *StatusError.
func (h HTTP) getJSON(ctx context.Context, source, rawURL string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", source, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := h.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", source, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(source, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", source, err)
	}
	return nil
}

func statusError(source string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Source: source, StatusCode: resp.StatusCode, Body: string(body)}
}

func joinURL(base string, elem ...string) (string, error) {
	u, err := url.JoinPath(base, elem...)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	return u, nil
}

func retryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil || resp.Header == nil {
		return 0
	}
	retry := resp.Header.Get("Retry-After")
	if retry == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(retry); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		return time.Until(parsed)
	}
	return 0
}
