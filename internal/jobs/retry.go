package jobs

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"nurseconnect-registration/internal/config"
)

var (
	ErrSoftTimeLimit = errors.New("job exceeded soft time limit")
	ErrHardTimeLimit = errors.New("job exceeded hard time limit")
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// RetryPolicy is exponential backoff with full jitter: attempt n waits a
// random whole number of seconds in [0, min(2^n, BackoffMax)].
type RetryPolicy struct {
	MaxRetries    int
	BackoffMax    time.Duration
	SoftTimeLimit time.Duration
	HardTimeLimit time.Duration

	randIntn func(n int) int
}

func NewRetryPolicy(cfg config.JobsConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:    cfg.MaxRetries,
		BackoffMax:    cfg.BackoffMax,
		SoftTimeLimit: cfg.SoftTimeLimit,
		HardTimeLimit: cfg.HardTimeLimit,
		randIntn:      rand.Intn,
	}
}

// Retryable reports whether a failed attempt should be retried. Everything
// except errors marked Permanent is, soft time limits included.
func (p RetryPolicy) Retryable(err error, attempt int) bool {
	if err == nil || IsPermanent(err) {
		return false
	}
	return attempt < p.MaxRetries
}

// Backoff returns the delay before retry number attempt+1.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	maxSeconds := int(p.BackoffMax / time.Second)
	ceiling := maxSeconds
	if attempt < 30 {
		if exp := 1 << attempt; exp < maxSeconds {
			ceiling = exp
		}
	}
	intn := p.randIntn
	if intn == nil {
		intn = rand.Intn
	}
	return time.Duration(intn(ceiling+1)) * time.Second
}

// Run calls fn with a context that expires at the soft limit. If fn has not
// returned by the hard limit the attempt is abandoned.
func (p RetryPolicy) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	softCtx, cancel := context.WithTimeout(ctx, p.SoftTimeLimit)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(softCtx)
	}()

	hard := time.NewTimer(p.HardTimeLimit)
	defer hard.Stop()

	select {
	case err := <-done:
		if err != nil && errors.Is(softCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return errors.Join(ErrSoftTimeLimit, err)
		}
		return err
	case <-hard.C:
		return ErrHardTimeLimit
	case <-ctx.Done():
		return ctx.Err()
	}
}
