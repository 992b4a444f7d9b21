package deps

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxJitter  = time.Second
)

// RetryPolicy configures RetryWithBackoff.
type RetryPolicy struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // delay before the first retry, doubled each time
	MaxJitter  time.Duration // upper bound of the random delay added per retry
	// OnRetry, when set, is called before each wait.
	OnRetry func(err error, wait time.Duration)
}

// DefaultRetryPolicy returns 3 retries, 1s base delay and up to 1s jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxJitter:  DefaultMaxJitter,
	}
}

// jitteredExponential yields BaseDelay*2^attempt + rand[0, MaxJitter).
type jitteredExponential struct {
	base    time.Duration
	jitter  time.Duration
	attempt int
}

func (b *jitteredExponential) NextBackOff() time.Duration {
	d := b.base << b.attempt
	b.attempt++
	if b.jitter > 0 {
		d += rand.N(b.jitter)
	}
	return d
}

func (b *jitteredExponential) Reset() {
	b.attempt = 0
}

// RetryWithBackoff calls fn up to MaxRetries+1 times, waiting
// BaseDelay*2^attempt plus jitter between attempts. The error of the last
// attempt is returned unchanged; a cancelled ctx stops early.
func RetryWithBackoff(ctx context.Context, policy RetryPolicy, fn func() error) error {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(&jitteredExponential{base: policy.BaseDelay, jitter: policy.MaxJitter}),
		backoff.WithMaxTries(uint(policy.MaxRetries) + 1),
		backoff.WithMaxElapsedTime(0),
	}
	if policy.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(policy.OnRetry))
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	}, opts...)
	return err
}
