package fetcher

import (
	"log/slog"
	"net/http"
	"time"

	"resty.dev/v3"
)

const (
	// DefaultTimeout is the per-request socket timeout
	DefaultTimeout = 10 * time.Second

	userAgent = "PostcardDashboard/1.0"
)

// NewClient creates an HTTP client for one provider. Every request carries a
// fixed timeout and is retried exactly once after retryDelay when the failure
// looks transient; there is never a third attempt.
func NewClient(baseURL string, retryDelay time.Duration) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetTimeout(DefaultTimeout).
		SetRetryCount(1).
		SetRetryWaitTime(retryDelay).
		SetRetryMaxWaitTime(retryDelay).
		AddRetryConditions(retryCondition).
		AddRetryHooks(retryHook)

	return client
}

// retryCondition determines whether a request should be retried based on the response and error
func retryCondition(r *resty.Response, err error) bool {
	// Retry on network errors
	if err != nil {
		return true
	}

	// Retry on rate limit (429)
	if r.StatusCode() == http.StatusTooManyRequests {
		return true
	}

	// Retry on server errors (5xx)
	if r.StatusCode() >= 500 {
		return true
	}

	return false
}

// retryHook logs retry attempts for observability
func retryHook(r *resty.Response, err error) {
	if err != nil {
		slog.Debug("retrying request due to error",
			"url", r.Request.URL,
			"attempt", r.Request.Attempt,
			"error", err.Error())
		return
	}

	slog.Debug("retrying request due to status code",
		"url", r.Request.URL,
		"attempt", r.Request.Attempt,
		"status_code", r.StatusCode())
}

// Classify converts the terminal outcome of a request into a typed error.
// A nil return means the response carries a usable payload.
func Classify(resp *resty.Response, err error) error {
	if err != nil {
		// A 2xx status with a non-nil error means the body arrived but
		// could not be decoded into the expected result shape.
		if resp != nil && resp.IsSuccess() {
			return NewMalformedError("decoding response body", err)
		}
		return NewNetworkError(err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return NewRateLimitError(resp.StatusCode())
	}
	if !resp.IsSuccess() {
		return &FetchError{
			Type:       ErrorTypeNetwork,
			StatusCode: resp.StatusCode(),
			Message:    "request failed",
		}
	}
	return nil
}
