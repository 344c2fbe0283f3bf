package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetrier(attempts int, onRetry func(int, error, time.Duration)) *Retrier {
	return New(
		WithMaxAttempts(attempts),
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(2*time.Millisecond),
		WithJitter(0),
		WithOnRetry(onRetry),
	)
}

func TestRetrier_SucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	var retried []int
	r := fastRetrier(3, func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) })

	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetrier_ReturnsLastErrorWhenAttemptsRunOut(t *testing.T) {
	calls := 0
	r := fastRetrier(2, nil)

	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("still down")
	})

	assert.EqualError(t, err, "still down")
	assert.Equal(t, 2, calls)
}

func TestRetrier_PermanentStopsImmediately(t *testing.T) {
	cause := errors.New("breaker open")
	calls := 0
	r := fastRetrier(5, nil)

	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(cause)
	})

	assert.Same(t, cause, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsPermanent(err))
	assert.True(t, IsPermanent(Permanent(cause)))
	assert.NoError(t, Permanent(nil))
}

func TestRetrier_StopsOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := fastRetrier(3, nil).Do(ctx, func(context.Context) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestRetrier_DelayIsCapped(t *testing.T) {
	r := New(WithInitialDelay(time.Second), WithMaxDelay(3*time.Second), WithJitter(0))

	assert.Equal(t, time.Second, r.delay(1))
	assert.Equal(t, 2*time.Second, r.delay(2))
	assert.Equal(t, 3*time.Second, r.delay(5))
}
