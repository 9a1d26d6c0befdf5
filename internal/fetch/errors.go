package fetch

import (
	"errors"
	"fmt"
)

// Package-level fetch errors.
var (
	// ErrUnsupportedProxyScheme is returned when a proxy URL uses a
	// scheme other than http, https, or socks5.
	ErrUnsupportedProxyScheme = errors.New("unsupported proxy scheme: must be http, https, or socks5")

	// ErrHTTPStatus is returned (wrapped in *Error) when the server
	// answered with a non-success status code.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
)

// Error is the error type returned by Client for failed requests.
// It carries the request URL and, when the failure was an HTTP-level
// one, the last status code seen. The wrapped error is the error from
// the final attempt; earlier attempts are not retained.
type Error struct {
	// URL is the request URL that failed.
	URL string

	// StatusCode is the last HTTP status code received, or 0 if the
	// failure happened before a response arrived.
	StatusCode int

	// Err is the underlying error from the final attempt.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error so errors.Is and errors.As work
// through the fetch error.
func (e *Error) Unwrap() error {
	return e.Err
}
