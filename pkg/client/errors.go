package client

import (
	"fmt"
)

// RequestError is a terminal page failure carrying the HTTP status and a body excerpt.
type RequestError struct {
	StatusCode int
	ErrorClass ErrorClass
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	switch {
	case e.ErrorClass == ErrorClassDecode:
		return fmt.Sprintf("groups decode error: %v: %s", e.Err, e.Body)
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("groups %s error: %v", e.ErrorClass, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("HTTP %d: %s: %v", e.StatusCode, e.Body, e.Err)
	default:
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Retryable reports whether an outcome kind should be repeated with the same cursor.
func Retryable(k Kind) bool {
	switch k {
	case KindRetryable, KindRateLimited:
		return true
	default:
		return false
	}
}
