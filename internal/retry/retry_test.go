package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoWithRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := DoWithRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success after 3 calls, got %d calls err %v", calls, err)
	}
}

func TestDoWithRetryStopsOnPermanent(t *testing.T) {
	boom := errors.New("bad request")
	calls := 0
	err := DoWithRetry(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return Permanent(boom)
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected single call returning boom, got %d calls err %v", calls, err)
	}
}

func TestDoWithRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := DoWithRetry(ctx, 3, time.Millisecond, func() error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
