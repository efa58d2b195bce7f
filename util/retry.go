// Package util contains process helpers shared by the commands.
package util

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
)

// Retrier retries an operation with exponential backoff until it succeeds,
// runs out of attempts or time, or ctx is canceled.
type Retrier struct {
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
	// MaxElapsedTime stops retrying once exceeded. Zero never stops.
	MaxElapsedTime time.Duration
	// MaxTries caps the number of attempts. Zero or less means no cap.
	MaxTries int
	// ShouldRetry reports whether err is worth another attempt. Nil retries every error.
	ShouldRetry func(err error) bool
	// Notify is called after each failed attempt with the delay before the next one.
	Notify func(err error, next time.Duration)
}

// NewRetrier returns a Retrier suited to waiting for a backend to come up.
func NewRetrier() *Retrier {
	return &Retrier{
		InitialInterval:     time.Second,
		MaxInterval:         10 * time.Second,
		Multiplier:          1.5,
		RandomizationFactor: 0.5,
		MaxElapsedTime:      time.Minute,
	}
}

// Retry calls f until it returns nil or the Retrier gives up, and returns
// f's last error.
func (r *Retrier) Retry(ctx context.Context, f func() error) error {
	return backoff.RetryNotify(func() error {
		err := f()
		if err != nil && r.ShouldRetry != nil && !r.ShouldRetry(err) {
			return &backoff.PermanentError{Err: err}
		}
		return err
	}, r.backoff(ctx), r.notify)
}

func (r *Retrier) backoff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = &backoff.ExponentialBackOff{
		InitialInterval:     r.InitialInterval,
		MaxInterval:         r.MaxInterval,
		Multiplier:          r.Multiplier,
		RandomizationFactor: r.RandomizationFactor,
		MaxElapsedTime:      r.MaxElapsedTime,
		Clock:               backoff.SystemClock,
	}
	if r.MaxTries > 0 {
		b = backoff.WithMaxRetries(b, uint64(r.MaxTries-1))
	}
	return backoff.WithContext(b, ctx)
}

func (r *Retrier) notify(err error, d time.Duration) {
	if r.Notify != nil {
		r.Notify(err, d)
	}
}
