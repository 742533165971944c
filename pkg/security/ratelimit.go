// Package security provides the request-hygiene pieces the HTTP surface
// consults before a turn reaches the pipeline: rate limiting and input
// validation.
package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a global limit plus a per-client limit. The pipeline
// only consumes its pass/fail decision.
type RateLimiter struct {
	globalLimiter  *rate.Limiter
	clientLimiters map[string]*rate.Limiter
	mu             sync.RWMutex

	requestsPerSecond float64
	burst             int
}

// NewRateLimiter creates a rate limiter with the given per-client rate.
// The global limit is ten times the per-client rate.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		globalLimiter:     rate.NewLimiter(rate.Limit(requestsPerSecond*10), burst*10),
		clientLimiters:    make(map[string]*rate.Limiter),
		requestsPerSecond: requestsPerSecond,
		burst:             burst,
	}
}

// Allow checks if a request from clientID should be allowed.
func (rl *RateLimiter) Allow(clientID string) bool {
	if !rl.globalLimiter.Allow() {
		return false
	}
	return rl.getClientLimiter(clientID).Allow()
}

// RetryAfter estimates how long the client should wait before retrying.
func (rl *RateLimiter) RetryAfter(clientID string) time.Duration {
	limiter := rl.getClientLimiter(clientID)
	res := limiter.Reserve()
	if !res.OK() {
		return time.Second
	}
	delay := res.Delay()
	res.Cancel()
	if delay <= 0 {
		return time.Second
	}
	return delay
}

func (rl *RateLimiter) getClientLimiter(clientID string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.clientLimiters[clientID]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := rl.clientLimiters[clientID]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(rl.requestsPerSecond), rl.burst)
	rl.clientLimiters[clientID] = limiter
	return limiter
}
