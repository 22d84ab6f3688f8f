package waf

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the number of retries for transient failures.
	MaxRetries = 3

	// RetryDelay is the initial backoff delay.
	RetryDelay = 200 * time.Millisecond

	userAgent = "harvester-waf/1.0"
)

// StatusError reports a non-success HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("waf: GET %s returned %d", e.URL, e.StatusCode)
}

// transient reports whether a response status is worth retrying.
func transient(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// client fetches pages and files with throttling and retries.
type client struct {
	http    *resty.Client
	limiter *rate.Limiter
	delay   time.Duration
}

func newClient(rps float64) *client {
	return &client{
		http: resty.New().
			SetTimeout(DefaultTimeout).
			SetHeader("User-Agent", userAgent),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		delay:   RetryDelay,
	}
}

// get fetches url and returns the successful response.
func (c *client) get(ctx context.Context, url string) (*resty.Response, error) {
	var resp *resty.Response
	backoff := retry.WithMaxRetries(MaxRetries, retry.NewExponential(c.delay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		r, err := c.http.R().SetContext(ctx).Get(url)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(fmt.Errorf("GET %s: %w", url, err))
		}
		if r.IsError() {
			statusErr := &StatusError{URL: url, StatusCode: r.StatusCode()}
			if transient(r.StatusCode()) {
				return retry.RetryableError(statusErr)
			}
			return statusErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
