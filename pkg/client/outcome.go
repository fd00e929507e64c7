package client

import (
	"encoding/json"
	"time"
)

// Kind tags the result of one page request attempt.
type Kind int

const (
	// KindSuccess means the page was received and decoded.
	KindSuccess Kind = iota

	// KindRetryable means the API could not be reached (DNS, refused, timeout).
	KindRetryable

	// KindRateLimited means the API answered 429.
	KindRateLimited

	// KindForbidden means the API answered 403.
	KindForbidden

	// KindFailed means any other non-success answer, an undecodable body or a cancelled request.
	KindFailed
)

// String returns the metric/log label for the kind.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRetryable:
		return "retryable"
	case KindRateLimited:
		return "rate_limited"
	case KindForbidden:
		return "forbidden"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of a single page request. It is produced
// once per attempt and consumed immediately by the caller.
type Outcome struct {
	Kind       Kind
	StatusCode int
	Class      ErrorClass

	// Success
	Items      []json.RawMessage
	NextCursor string

	// RateLimited; zero when the server sent no usable Retry-After.
	RetryAfter time.Duration

	// Failed: first MaxBodyExcerpt characters of the response body.
	Body string

	// Underlying transport, decode or context error, if any.
	Err error
}

// HasNext reports whether a successful page pointed at another page.
func (o Outcome) HasNext() bool {
	return o.Kind == KindSuccess && o.NextCursor != ""
}

// AsError converts a Failed outcome into a *RequestError. It returns nil for other kinds.
func (o Outcome) AsError() error {
	if o.Kind != KindFailed {
		return nil
	}
	return &RequestError{
		StatusCode: o.StatusCode,
		ErrorClass: o.Class,
		Body:       o.Body,
		Err:        o.Err,
	}
}

// Page is the JSON body of a members listing. Entries of Data stay raw and are
// decoded one by one, so a malformed entry never discards the rest of the page.
type Page struct {
	Data           []json.RawMessage `json:"data"`
	NextPageCursor *string           `json:"nextPageCursor"`
}
