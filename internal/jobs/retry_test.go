package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"nurseconnect-registration/internal/config"
)

func maxJitter(n int) int { return n - 1 }

func TestBackoffCeiling(t *testing.T) {
	p := NewRetryPolicy(config.JobsConfig{MaxRetries: 15, BackoffMax: 600 * time.Second})
	p.randIntn = maxJitter

	assert.Equal(t, 1*time.Second, p.Backoff(0))
	assert.Equal(t, 8*time.Second, p.Backoff(3))
	assert.Equal(t, 512*time.Second, p.Backoff(9))
	assert.Equal(t, 600*time.Second, p.Backoff(10))
	assert.Equal(t, 600*time.Second, p.Backoff(40))

	p.randIntn = func(int) int { return 0 }
	assert.Equal(t, time.Duration(0), p.Backoff(5))
}

func TestRetryable(t *testing.T) {
	p := NewRetryPolicy(config.JobsConfig{MaxRetries: 15})
	boom := errors.New("boom")

	assert.True(t, p.Retryable(boom, 0))
	assert.True(t, p.Retryable(boom, 14))
	assert.False(t, p.Retryable(boom, 15))
	assert.False(t, p.Retryable(Permanent(boom), 0))
	assert.False(t, p.Retryable(nil, 0))
	assert.Nil(t, Permanent(nil))
	assert.ErrorIs(t, Permanent(boom), boom)
}

func TestRunSoftTimeLimit(t *testing.T) {
	p := NewRetryPolicy(config.JobsConfig{SoftTimeLimit: 10 * time.Millisecond, HardTimeLimit: time.Second})

	err := p.Run(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, ErrSoftTimeLimit)
	assert.True(t, p.Retryable(err, 0))
}

func TestRunHardTimeLimit(t *testing.T) {
	p := NewRetryPolicy(config.JobsConfig{SoftTimeLimit: 10 * time.Millisecond, HardTimeLimit: 30 * time.Millisecond})
	release := make(chan struct{})
	defer close(release)

	err := p.Run(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, ErrHardTimeLimit)
}

func TestRunPassesResult(t *testing.T) {
	p := NewRetryPolicy(config.JobsConfig{SoftTimeLimit: time.Second, HardTimeLimit: 2 * time.Second})
	assert.NoError(t, p.Run(context.Background(), func(ctx context.Context) error { return nil }))

	boom := errors.New("boom")
	err := p.Run(context.Background(), func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrSoftTimeLimit)
}
