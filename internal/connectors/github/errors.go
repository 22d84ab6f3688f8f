package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrRepoNotFound means the repository does not exist or the token cannot see it.
	ErrRepoNotFound = errors.New("github: repository not found")

	// ErrUnauthorized means GitHub rejected the configured token.
	ErrUnauthorized = errors.New("github: token rejected")

	// ErrTreeTruncated means the tree listing hit the API size limit.
	ErrTreeTruncated = errors.New("github: repository tree truncated")
)

// RateLimitError reports an exhausted API quota.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
	Limit     int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// APIError is a non-2xx API response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// classify maps a client error for repo onto the package sentinels so the
// harvest reports why the source stopped.
func classify(err error, repo string) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrRepoNotFound, repo)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w for %s: check %s", ErrUnauthorized, repo, PropToken)
	}
	return err
}
