// Package retry implements the jittered-backoff retry policy spec §7
// assigns to CatalogConflict and transient StorageUnavailable: retried
// internally up to a small bound, all other kinds propagate immediately.
package retry

import (
	"context"
	"math/rand"
	"time"

	"code.deblane.dev/repod/modules/apierror"
)

// Policy bounds how many times and how long a retryable operation is
// retried.
type Policy struct {
	Limit   int
	Base    time.Duration
	Max     time.Duration
}

// Default is a sensible policy for both catalog serialization conflicts
// and object-storage transients.
func Default(limit int) Policy {
	return Policy{Limit: limit, Base: 20 * time.Millisecond, Max: 500 * time.Millisecond}
}

// Do runs fn, retrying with jittered exponential backoff while fn returns
// a retryable *apierror.Error, up to p.Limit attempts total. The last
// error (retryable or not) is returned if every attempt fails.
func Do(ctx context.Context, p Policy, fn func(attempt int) error) error {
	var err error
	for attempt := 0; attempt < max(p.Limit, 1); attempt++ {
		err = fn(attempt)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		if attempt == p.Limit-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(p, attempt)):
		}
	}
	return err
}

func isRetryable(err error) bool {
	e, ok := err.(*apierror.Error)
	if !ok {
		return false
	}
	return e.Retryable()
}

func backoff(p Policy, attempt int) time.Duration {
	d := p.Base << attempt
	if d > p.Max || d <= 0 {
		d = p.Max
	}
	// Full jitter: uniform in [0, d].
	return time.Duration(rand.Int63n(int64(d) + 1))
}
