package deps

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastRetryPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, BaseDelay: time.Millisecond, MaxJitter: time.Millisecond}
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("succeeds_first_try", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), fastRetryPolicy(3), func() error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("RetryWithBackoff() error = %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("succeeds_after_failures", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), fastRetryPolicy(3), func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("RetryWithBackoff() error = %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("returns_last_error", func(t *testing.T) {
		calls := 0
		var retries []time.Duration
		policy := fastRetryPolicy(3)
		policy.OnRetry = func(err error, wait time.Duration) {
			retries = append(retries, wait)
		}

		err := RetryWithBackoff(context.Background(), policy, func() error {
			calls++
			return fmt.Errorf("attempt %d failed", calls)
		})
		if calls != 4 {
			t.Errorf("calls = %d, want 4", calls)
		}
		if err == nil || err.Error() != "attempt 4 failed" {
			t.Errorf("error = %v, want last attempt's error", err)
		}
		if len(retries) != 3 {
			t.Errorf("OnRetry called %d times, want 3", len(retries))
		}
	})

	t.Run("zero_retries", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), fastRetryPolicy(0), func() error {
			calls++
			return errors.New("boom")
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("cancelled_context_stops", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		policy := RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour}

		done := make(chan error, 1)
		go func() {
			done <- RetryWithBackoff(ctx, policy, func() error {
				calls++
				return errors.New("fail")
			})
		}()

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if err == nil {
				t.Fatal("expected error after cancellation")
			}
		case <-time.After(5 * time.Second):
			t.Fatal("RetryWithBackoff did not stop on cancellation")
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})
}

func TestJitteredExponential(t *testing.T) {
	b := &jitteredExponential{base: 100 * time.Millisecond}

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Errorf("attempt %d: NextBackOff() = %s, want %s", i, got, w)
		}
	}

	b.Reset()
	if got := b.NextBackOff(); got != 100*time.Millisecond {
		t.Errorf("after Reset: NextBackOff() = %s, want 100ms", got)
	}

	j := &jitteredExponential{base: time.Second, jitter: 500 * time.Millisecond}
	for i := 0; i < 20; i++ {
		j.Reset()
		got := j.NextBackOff()
		if got < time.Second || got >= 1500*time.Millisecond {
			t.Fatalf("jittered delay %s outside [1s, 1.5s)", got)
		}
	}
}
