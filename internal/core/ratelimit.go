package core

import "time"

// RateLimitState is the persisted throttle state of one source endpoint.
type RateLimitState struct {
	RequestCount int        `json:"request_count"`
	WindowStart  time.Time  `json:"window_start"`
	BackoffUntil *time.Time `json:"backoff_until,omitempty"`
	Last429At    *time.Time `json:"last_429_at,omitempty"`
}

// RateLimitEntry pairs a source endpoint with its stored state.
type RateLimitEntry struct {
	Endpoint string         `json:"endpoint"`
	State    RateLimitState `json:"state"`
}

// NewRateLimitState starts an empty window at now.
func NewRateLimitState(now time.Time) *RateLimitState {
	return &RateLimitState{WindowStart: now}
}

// InBackoff reports whether a 429 backoff is still active at now.
func (s *RateLimitState) InBackoff(now time.Time) bool {
	return s != nil && s.BackoffUntil != nil && now.Before(*s.BackoffUntil)
}

// RollWindow resets the request count when the window has elapsed and returns
// the window's end.
func (s *RateLimitState) RollWindow(now time.Time, window time.Duration) time.Time {
	end := s.WindowStart.Add(window)
	if s.WindowStart.IsZero() || now.After(end) {
		s.RequestCount = 0
		s.WindowStart = now
		end = now.Add(window)
	}
	return end
}
