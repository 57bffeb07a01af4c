package engine

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/aptoseidon/aptoseidon/internal/core"
)

// RateLimiter throttles outbound source calls per endpoint host. State is
// persisted so limits hold across processes sharing a store.
type RateLimiter struct {
	Store  RateLimitStore
	Limits map[string]RateLimit
	Clock  func() time.Time
	Margin float64

	mu sync.Mutex
}

// RateLimit represents a rate limit window.
type RateLimit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// RateLimitStore stores rate limit state.
type RateLimitStore interface {
	GetRateLimit(ctx context.Context, endpoint string) (*core.RateLimitState, error)
	UpdateRateLimit(ctx context.Context, endpoint string, state *core.RateLimitState) error
}

// rdapFallback is the limit key shared by every rdap.* host.
const rdapFallback = "rdap"

// DefaultLimits are the published free-tier limits of the evidence sources.
var DefaultLimits = map[string]RateLimit{
	"api.coingecko.com":              {RequestsPerWindow: 30, WindowDuration: time.Minute},
	"fullnode.testnet.aptoslabs.com": {RequestsPerWindow: 100, WindowDuration: time.Minute},
	"fullnode.mainnet.aptoslabs.com": {RequestsPerWindow: 100, WindowDuration: time.Minute},
	"api.testnet.aptoslabs.com":      {RequestsPerWindow: 100, WindowDuration: time.Minute},
	"api.mainnet.aptoslabs.com":      {RequestsPerWindow: 100, WindowDuration: time.Minute},
	"api.tavily.com":                 {RequestsPerWindow: 30, WindowDuration: time.Minute},
	rdapFallback:                     {RequestsPerWindow: 30, WindowDuration: time.Minute},
}

var defaultLimit = RateLimit{RequestsPerWindow: 30, WindowDuration: time.Minute}

// Allow reports whether a call to endpoint may proceed now, and how long to
// wait when it may not.
func (r *RateLimiter) Allow(ctx context.Context, endpoint string) (bool, time.Duration, error) {
	if r == nil || r.Store == nil {
		return true, 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load(ctx, endpoint)
	if err != nil {
		return true, 0, err
	}

	now := r.now()
	if state.InBackoff(now) {
		return false, state.BackoffUntil.Sub(now), nil
	}

	limit := r.getLimit(endpoint)
	windowEnd := state.RollWindow(now, limit.WindowDuration)
	if state.RequestCount >= limit.RequestsPerWindow {
		return false, windowEnd.Sub(now), nil
	}
	return true, 0, nil
}

// Record counts one call against endpoint's current window.
func (r *RateLimiter) Record(ctx context.Context, endpoint string) error {
	return r.update(ctx, endpoint, func(state *core.RateLimitState, now time.Time) {
		state.RollWindow(now, r.getLimit(endpoint).WindowDuration)
		state.RequestCount++
	})
}

// Record429 starts a backoff after the source answered 429.
func (r *RateLimiter) Record429(ctx context.Context, endpoint string, retryAfter time.Duration) error {
	return r.update(ctx, endpoint, func(state *core.RateLimitState, now time.Time) {
		state.Last429At = &now
		if retryAfter > 0 {
			until := now.Add(retryAfter)
			state.BackoffUntil = &until
		}
	})
}

func (r *RateLimiter) update(ctx context.Context, endpoint string, mutate func(*core.RateLimitState, time.Time)) error {
	if r == nil || r.Store == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load(ctx, endpoint)
	if err != nil {
		return err
	}
	mutate(state, r.now())
	return r.Store.UpdateRateLimit(ctx, endpoint, state)
}

// ApplyOverrides merges per-endpoint request overrides (per minute).
func (r *RateLimiter) ApplyOverrides(overrides map[string]int) {
	if r == nil || len(overrides) == 0 {
		return
	}

	if r.Limits == nil {
		r.Limits = make(map[string]RateLimit, len(DefaultLimits))
		for key, limit := range DefaultLimits {
			r.Limits[key] = limit
		}
	}

	for endpoint, value := range overrides {
		endpoint = strings.ToLower(strings.TrimSpace(endpoint))
		if endpoint == "" || value <= 0 {
			continue
		}
		r.Limits[endpoint] = RateLimit{RequestsPerWindow: value, WindowDuration: time.Minute}
	}
}

// ApplySafetyMargin scales every limit by margin in (0,1].
func (r *RateLimiter) ApplySafetyMargin(margin float64) {
	if r == nil || margin <= 0 || margin > 1 {
		return
	}
	r.Margin = margin
}

func (r *RateLimiter) load(ctx context.Context, endpoint string) (*core.RateLimitState, error) {
	state, err := r.Store.GetRateLimit(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = core.NewRateLimitState(r.now())
	}
	return state, nil
}

// getLimit resolves endpoint's limit: exact host, then the shared rdap key
// for registry hosts, then the default. The safety margin applies last.
func (r *RateLimiter) getLimit(endpoint string) RateLimit {
	limits := r.Limits
	if limits == nil {
		limits = DefaultLimits
	}

	endpoint = strings.ToLower(endpoint)
	limit, ok := limits[endpoint]
	if !ok && (strings.HasPrefix(endpoint, "rdap.") || strings.Contains(endpoint, ".rdap.")) {
		limit, ok = limits[rdapFallback]
	}
	if !ok {
		limit = defaultLimit
	}

	if r.Margin > 0 && r.Margin < 1 {
		limit.RequestsPerWindow = max(1, int(math.Floor(float64(limit.RequestsPerWindow)*r.Margin)))
	}
	return limit
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}
