package roster

import (
	"fmt"
	"math"
	"time"

	"github.com/Sternrassler/group-roster-client/pkg/client"
)

// Action is what the fetch loop does next with an outcome.
type Action int

const (
	// ActionAdvance merges the page and moves to the next cursor.
	ActionAdvance Action = iota

	// ActionRetry waits and repeats the identical request.
	ActionRetry

	// ActionAbort terminates the run.
	ActionAbort
)

// String returns a readable action name.
func (a Action) String() string {
	switch a {
	case ActionAdvance:
		return "advance"
	case ActionRetry:
		return "retry"
	case ActionAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// RetryPolicy governs waits for connectivity failures and rate limits.
type RetryPolicy struct {
	// Delay is the wait before the first retry of a page.
	Delay time.Duration

	// MaxAttempts bounds consecutive failed attempts for one page (0 means unlimited).
	MaxAttempts int

	// Multiplier grows the delay per consecutive retry. Values <= 1 keep the delay fixed.
	Multiplier float64

	// MaxDelay caps the delay (0 means no cap).
	MaxDelay time.Duration

	// HonorRetryAfter waits at least the server's Retry-After on 429.
	HonorRetryAfter bool
}

// DefaultRetryPolicy retries forever with a fixed 3 second delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Delay:       3 * time.Second,
		MaxAttempts: 0,
		Multiplier:  1.0,
	}
}

// Validate checks the policy for nonsensical values.
func (p RetryPolicy) Validate() error {
	if p.Delay < 0 {
		return fmt.Errorf("retry delay must not be negative (got %s)", p.Delay)
	}
	if p.MaxAttempts < 0 {
		return fmt.Errorf("max attempts must not be negative (got %d)", p.MaxAttempts)
	}
	if p.MaxDelay < 0 {
		return fmt.Errorf("max delay must not be negative (got %s)", p.MaxDelay)
	}
	return nil
}

// Decide maps an outcome to the loop's next action.
func (p RetryPolicy) Decide(o client.Outcome) Action {
	switch o.Kind {
	case client.KindSuccess:
		return ActionAdvance
	case client.KindRetryable, client.KindRateLimited:
		return ActionRetry
	default:
		return ActionAbort
	}
}

// Exhausted reports whether attempts consecutive failures on one page use up the budget.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}

// Backoff returns the wait before retry number retry (1-based) of the same page.
func (p RetryPolicy) Backoff(retry int, o client.Outcome) time.Duration {
	if retry < 1 {
		retry = 1
	}

	delay := p.Delay
	if p.Multiplier > 1 {
		scaled := float64(p.Delay) * math.Pow(p.Multiplier, float64(retry-1))
		if scaled >= float64(math.MaxInt64) {
			delay = time.Duration(math.MaxInt64)
		} else {
			delay = time.Duration(scaled)
		}
	}

	if p.HonorRetryAfter && o.Kind == client.KindRateLimited && o.RetryAfter > delay {
		delay = o.RetryAfter
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}
