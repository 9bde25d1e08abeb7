package shared

import (
	"context"
	"time"
)

// RetryPolicy grants a class of failures a bounded number of extra attempts.
//
// Each policy keeps its own budget, so an operation wrapped with several
// policies can retry once for an expired token and once for a dropped
// connection without either budget feeding the other.
type RetryPolicy struct {
	// Match reports whether this policy covers the error. A nil Match
	// covers every error.
	Match func(error) bool
	// Retries is the number of additional attempts after the first failure.
	Retries int
	// Pause is the wait between attempts.
	Pause time.Duration
	// Before runs before each retry, e.g. a forced token refresh. A
	// non-nil return aborts the retry and is returned to the caller.
	Before func(context.Context, error) error
}

func (p RetryPolicy) covers(err error) bool {
	return p.Match == nil || p.Match(err)
}

// Retry runs fn, re-running it while a policy with remaining budget covers
// the returned error. Policies are consulted in order; the first covering
// policy spends its budget. Returns the last error once every covering
// policy is exhausted, or nil on success.
func Retry(ctx context.Context, fn func(context.Context) error, policies ...RetryPolicy) error {
	spent := make([]int, len(policies))

	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		retried := false
		for i := range policies {
			p := policies[i]
			if !p.covers(err) || spent[i] >= p.Retries {
				continue
			}
			spent[i]++

			if p.Before != nil {
				if berr := p.Before(ctx, err); berr != nil {
					return berr
				}
			}
			if p.Pause > 0 {
				select {
				case <-time.After(p.Pause):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			retried = true
			break
		}

		if !retried {
			return err
		}
	}
}
