// Package github fetches pull request data from the GitHub API for
// review metric derivation.
package github

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/go-github/v56/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// GitHub allows 5000 authenticated requests per hour. One request
	// per second keeps a comfortable margin under that.
	requestsPerSecond = 1

	maxAttempts = 4
	retryDelay  = 500 * time.Millisecond
)

// Client wraps the GitHub API client with rate limiting and retries.
type Client struct {
	gh      *github.Client
	limiter *rate.Limiter
}

// NewClient builds an authenticated client. An empty token yields an
// unauthenticated client with GitHub's much lower rate limits; callers
// should treat that as a degraded mode, not a normal one.
func NewClient(ctx context.Context, token string) *Client {
	httpClient := http.DefaultClient
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	return &Client{
		gh:      github.NewClient(httpClient),
		limiter: rate.NewLimiter(rate.Every(time.Second/requestsPerSecond), 1),
	}
}

// call runs one API request under the rate limiter with exponential
// backoff. fn must be safe to invoke multiple times.
func (c *Client) call(ctx context.Context, fn func() (*github.Response, error)) error {
	return retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			_, err := fn()
			if err != nil && !isRetryable(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(maxAttempts),
		retry.Delay(retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// isRetryable reports whether an API error is worth another attempt.
// Rate limit hits and server errors are; auth failures and missing
// resources are not.
func isRetryable(err error) bool {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode >= http.StatusInternalServerError
	}
	// Transport-level failures (timeouts, resets) have no typed error.
	return true
}
