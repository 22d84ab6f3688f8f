package csw

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
	DefaultTimeout = 60 * time.Second

	// MaxRetries is the number of retries for transient failures.
	MaxRetries = 3

	// RetryDelay is the initial backoff delay.
	RetryDelay = 500 * time.Millisecond

	userAgent = "harvester-csw/1.0"
)

// StatusError reports a non-success HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("csw: POST %s returned %d", e.URL, e.StatusCode)
}

func transient(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

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

// post sends an XML request body to endpoint and returns the response body.
func (c *client) post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	var out []byte
	backoff := retry.WithMaxRetries(MaxRetries, retry.NewExponential(c.delay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		r, err := c.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/xml").
			SetHeader("Accept", "application/xml").
			SetBody(body).
			Post(endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(fmt.Errorf("POST %s: %w", endpoint, err))
		}
		if r.IsError() {
			statusErr := &StatusError{URL: endpoint, StatusCode: r.StatusCode()}
			if transient(r.StatusCode()) {
				return retry.RetryableError(statusErr)
			}
			return statusErr
		}
		out = r.Body()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
