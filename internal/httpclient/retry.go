package httpclient

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// retryPolicy produces jittered exponential backoff delays.
type retryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

func newRetryPolicy(maxAttempts int, base, max time.Duration) *retryPolicy {
	return &retryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   base,
		maxDelay:    max,
	}
}

// shouldRetry reports whether another attempt fits the budget. Cancellation
// always wins.
func (p *retryPolicy) shouldRetry(ctx context.Context, attempt int) bool {
	if ctx.Err() != nil {
		return false
	}
	return attempt < p.maxAttempts
}

// backoff returns the wait before the next attempt: half the capped
// exponential delay plus a random jitter of up to the other half.
func (p *retryPolicy) backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	jitter := randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
