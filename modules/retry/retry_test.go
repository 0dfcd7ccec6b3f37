package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"code.deblane.dev/repod/modules/apierror"
)

func TestBackoffNeverExceedsPolicyMax(t *testing.T) {
	p := Policy{Limit: 10, Base: 20 * time.Millisecond, Max: 100 * time.Millisecond}
	for attempt := 0; attempt < 10; attempt++ {
		for i := 0; i < 20; i++ {
			d := backoff(p, attempt)
			if d < 0 || d > p.Max {
				t.Fatalf("backoff(attempt=%d) = %v, want in [0, %v]", attempt, d, p.Max)
			}
		}
	}
}

func TestDoReturnsNilOnFirstSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Default(3), func(attempt int) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesRetryableErrorUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Default(5), func(attempt int) error {
		calls++
		if attempt < 2 {
			return apierror.New(apierror.CatalogConflict, "TEST_CONFLICT", "retry me")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoStopsAfterLimitAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Default(3), func(attempt int) error {
		calls++
		return apierror.New(apierror.StorageUnavailable, "TEST_UNAVAILABLE", "still down")
	})
	if err == nil {
		t.Fatal("Do: want error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (policy limit)", calls)
	}
}

func TestDoDoesNotRetryNonRetryableKind(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Default(5), func(attempt int) error {
		calls++
		return apierror.New(apierror.MalformedPackage, "TEST_MALFORMED", "not retryable")
	})
	if !apierror.Is(err, apierror.MalformedPackage) {
		t.Fatalf("err = %v, want MalformedPackage", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry for non-retryable kind)", calls)
	}
}

func TestDoDoesNotRetryPlainErrors(t *testing.T) {
	calls := 0
	plain := errors.New("boom")
	err := Do(context.Background(), Default(5), func(attempt int) error {
		calls++
		return plain
	})
	if !errors.Is(err, plain) {
		t.Fatalf("err = %v, want %v", err, plain)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Default(5), func(attempt int) error {
		calls++
		if attempt == 0 {
			cancel()
		}
		return apierror.New(apierror.CatalogConflict, "TEST_CONFLICT", "retry me")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
