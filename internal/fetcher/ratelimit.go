package fetcher

import (
	"context"
	"net/url"
	"sync"
	"time"
)

// RateLimiter enforces a minimum delay between requests to the same host.
// This is a politeness throttle, not a correctness requirement.
type RateLimiter struct {
	limiters     map[string]*hostLimiter
	mu           sync.RWMutex
	defaultDelay time.Duration
}

type hostLimiter struct {
	lastRequest time.Time
	mu          sync.Mutex
	delay       time.Duration
}

// NewRateLimiter creates a rate limiter with the given default per-host delay.
func NewRateLimiter(defaultDelay time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters:     make(map[string]*hostLimiter),
		defaultDelay: defaultDelay,
	}
}

// Wait blocks until the host's delay has elapsed since its last request.
// Returns early with the context error on cancellation.
func (rl *RateLimiter) Wait(ctx context.Context, rawURL string) error {
	host := extractHost(rawURL)
	if host == "" {
		return nil
	}

	rl.mu.Lock()
	limiter, exists := rl.limiters[host]
	if !exists {
		limiter = &hostLimiter{delay: rl.defaultDelay}
		rl.limiters[host] = limiter
	}
	rl.mu.Unlock()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	nextAllowed := limiter.lastRequest.Add(limiter.delay)
	if wait := time.Until(nextAllowed); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	limiter.lastRequest = time.Now()
	return nil
}

func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
