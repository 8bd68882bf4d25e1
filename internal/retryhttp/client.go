package retryhttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Policy controls the shared outbound retry behavior. Only rate-limiting
// responses and request timeouts are retried; anything else surfaces to
// the caller on the first attempt.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Timeout     time.Duration
}

// ErrRetriesExhausted wraps the last transient failure after the policy
// ran out of attempts.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Client wraps an *http.Client with the retry policy every integration
// shares.
type Client struct {
	httpClient *http.Client
	policy     Policy
	logger     *log.Logger
}

// New builds a Client. A nil logger discards output.
func New(policy Policy, logger *log.Logger) *Client {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		httpClient: &http.Client{Timeout: policy.Timeout},
		policy:     policy,
		logger:     logger,
	}
}

// Do executes the request, retrying on HTTP 429 and on timeouts with the
// fixed policy delay. The per-attempt timeout lives on the underlying
// http.Client. Requests built with http.NewRequest carry GetBody, which
// is required here to rebuild the body between attempts.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.policy.Delay):
			}
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("rebuild request body: %w", err)
				}
				req.Body = body
			}
		}

		resp, err := c.httpClient.Do(req)

		switch {
		case err != nil:
			// A per-attempt timeout is transient; other transport errors
			// are not.
			if isTimeout(err) && ctx.Err() == nil {
				lastErr = err
				c.logger.Printf("outbound %s %s timed out (attempt %d/%d)", req.Method, req.URL.Path, attempt, c.policy.MaxAttempts)
				continue
			}
			return nil, err
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			lastErr = fmt.Errorf("rate limited: %s %s", req.Method, req.URL.Path)
			c.logger.Printf("outbound %s %s rate limited (attempt %d/%d)", req.Method, req.URL.Path, attempt, c.policy.MaxAttempts)
			continue
		default:
			return resp, nil
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, c.policy.MaxAttempts, lastErr)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
