package roster

import (
	"errors"
)

// AccessDeniedMessage is the status shown when a group's roster is not public.
const AccessDeniedMessage = "This group's member list is private/hidden (403)."

// Common errors returned by the collector.
var (
	// ErrAccessDenied is returned when the API answers 403. The result is always empty.
	ErrAccessDenied = errors.New("group member list is private/hidden (403)")

	// ErrRetryExhausted is returned when a page failed more often than the policy allows.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrCancelled is returned when the caller's context ends mid-run.
	ErrCancelled = errors.New("collection cancelled")
)
