package providers

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket sized in requests per minute.
type RateLimiter struct {
	mu sync.Mutex

	perMinute   float64
	tokens      float64
	lastUpdate  time.Time
	pausedUntil time.Time
}

// NewRateLimiter creates a limiter that starts with a full bucket.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	return &RateLimiter{
		perMinute:  float64(requestsPerMinute),
		tokens:     float64(requestsPerMinute),
		lastUpdate: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		wait := r.reserve(time.Now())
		r.mu.Unlock()
		if wait == 0 {
			return nil
		}

		// Wait outside lock
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Pause drains the bucket and holds tokens back for d, used when the service
// answers 429 with a Retry-After.
func (r *RateLimiter) Pause(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens = 0
	if until := time.Now().Add(d); until.After(r.pausedUntil) {
		r.pausedUntil = until
	}
}

// reserve takes a token and returns zero, or returns how long to wait.
// Must be called with lock held.
func (r *RateLimiter) reserve(now time.Time) time.Duration {
	if now.Before(r.pausedUntil) {
		r.lastUpdate = r.pausedUntil
		return r.pausedUntil.Sub(now)
	}

	elapsed := now.Sub(r.lastUpdate)
	if elapsed > 0 {
		r.tokens += elapsed.Minutes() * r.perMinute
		if r.tokens > r.perMinute {
			r.tokens = r.perMinute
		}
		r.lastUpdate = now
	}

	if r.tokens >= 1 {
		r.tokens--
		return 0
	}
	need := (1 - r.tokens) / r.perMinute
	return time.Duration(need * float64(time.Minute))
}

// RateLimitedClient spaces calls to an LLMClient.
type RateLimitedClient struct {
	LLMClient
	limiter *RateLimiter
}

// WithRateLimit wraps client so that at most requestsPerMinute calls start
// per minute. A non-positive limit returns client unchanged.
func WithRateLimit(client LLMClient, requestsPerMinute int) LLMClient {
	if requestsPerMinute <= 0 {
		return client
	}
	return &RateLimitedClient{LLMClient: client, limiter: NewRateLimiter(requestsPerMinute)}
}

// Chat waits for a token, then forwards the request.
func (c *RateLimitedClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := c.LLMClient.Chat(ctx, req)
	if te, ok := AsTransient(err); ok && te.StatusCode == 429 && te.RetryAfter > 0 {
		c.limiter.Pause(te.RetryAfter)
	}
	return result, err
}
