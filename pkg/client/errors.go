package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors classifying upstream API failures. Only ErrRateLimited is
// retryable, and only by rotating to another credential.
var (
	ErrRateLimited = errors.New("upstream rate limited")
	ErrAuth        = errors.New("upstream authentication failed")
	ErrNotFound    = errors.New("upstream resource not found")
	ErrUpstream    = errors.New("upstream server error")
)

// APIError carries the HTTP status and a body excerpt of a failed upstream
// call, wrapped around the matching sentinel.
type APIError struct {
	StatusCode int
	Body       string
	class      error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.class
}

// classifyStatus maps a non-2xx response to a typed error.
func classifyStatus(statusCode int, body []byte) error {
	excerpt := string(body)
	if len(excerpt) > 300 {
		excerpt = excerpt[:300]
	}
	e := &APIError{StatusCode: statusCode, Body: excerpt}
	switch {
	case statusCode == http.StatusTooManyRequests:
		e.class = ErrRateLimited
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.class = ErrAuth
	case statusCode == http.StatusNotFound:
		e.class = ErrNotFound
	case statusCode >= 500:
		e.class = ErrUpstream
	default:
		e.class = ErrUpstream
	}
	return e
}

// IsRateLimited reports whether err is a rate-limit failure eligible for
// credential rotation.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
