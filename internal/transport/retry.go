package transport

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultRetryLimit is the total number of attempts, first call included.
	DefaultRetryLimit = 3
	// DefaultRetryDelay is the fixed wait between attempts.
	DefaultRetryDelay = 1000 * time.Millisecond
)

// RetryPolicy configures how the client reacts to a failed attempt.
// Stateless; a copy is bound to the resty client at construction.
type RetryPolicy struct {
	Limit   int
	Delay   time.Duration
	Timeout time.Duration // overall deadline for a single call, 0 means none
	// ShouldRetry decides whether the attempt is worth repeating.
	// The retry budget is consumed only when it returns true.
	ShouldRetry func(status int, err error) bool
}

// DefaultRetryPolicy retries rate-limited (429) responses only.
// Anything else, transport errors included, propagates immediately.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Limit: DefaultRetryLimit,
		Delay: DefaultRetryDelay,
		ShouldRetry: func(status int, err error) bool {
			return err == nil && status == http.StatusTooManyRequests
		},
	}
}

// condition adapts the policy to resty's retry hook. Resty evaluates the
// registered conditions exclusively, so returning false here also suppresses
// its default retry-on-error behavior.
func (p RetryPolicy) condition(resp *resty.Response, err error) bool {
	if p.ShouldRetry == nil {
		return false
	}
	status := 0
	if resp != nil {
		status = resp.StatusCode()
	}
	return p.ShouldRetry(status, err)
}

func (p RetryPolicy) bind(c *resty.Client) {
	limit := p.Limit
	if limit < 1 {
		limit = 1
	}
	c.SetRetryCount(limit - 1)
	c.SetRetryWaitTime(p.Delay)
	// Equal wait and max wait disables resty's exponential backoff,
	// giving the fixed delay between attempts.
	c.SetRetryMaxWaitTime(p.Delay)
	c.AddRetryCondition(p.condition)
	if p.Timeout > 0 {
		c.SetTimeout(p.Timeout)
	}
}
