package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff(attempts int) *Backoff {
	return &Backoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   1.5,
		MaxAttempts:  attempts,
	}
}

func TestBackoff_SuccessAfterRetries(t *testing.T) {
	calls := 0
	err := fastBackoff(10).Do(context.Background(), func(attempt int) error {
		calls++
		if attempt < 3 {
			return fmt.Errorf("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoff_ImmediateSuccess(t *testing.T) {
	err := DefaultBackoff().Do(context.Background(), func(_ int) error {
		return nil
	})
	assert.NoError(t, err)
}

func TestBackoff_PermanentError(t *testing.T) {
	calls := 0
	err := DefaultBackoff().Do(context.Background(), func(_ int) error {
		calls++
		return Permanent(fmt.Errorf("fatal"))
	})

	assert.EqualError(t, err, "fatal")
	assert.Equal(t, 1, calls, "permanent error should stop after 1 call")
}

func TestBackoff_MaxAttempts(t *testing.T) {
	inner := errors.New("always fails")
	calls := 0
	err := fastBackoff(3).Do(context.Background(), func(_ int) error {
		calls++
		return inner
	})

	assert.EqualError(t, err, "giving up after 3 attempts: always fails")
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, 3, calls)
}

func TestOnce_ReturnsErrorUnwrapped(t *testing.T) {
	inner := errors.New("refused")
	calls := 0
	err := Once().Do(context.Background(), func(_ int) error {
		calls++
		return inner
	})

	assert.Same(t, inner, err)
	assert.Equal(t, 1, calls)
}

func TestBackoff_OnRetry(t *testing.T) {
	b := fastBackoff(3)
	var seen []int
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		seen = append(seen, attempt)
		assert.Error(t, err)
		assert.Positive(t, wait)
	}

	_ = b.Do(context.Background(), func(_ int) error { return fmt.Errorf("fail") })

	// No notification after the final attempt.
	assert.Equal(t, []int{1, 2}, seen)
}

func TestBackoff_ContextCancelled(t *testing.T) {
	b := &Backoff{
		InitialDelay: 5 * time.Second,
		MaxAttempts:  100,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := b.Do(ctx, func(_ int) error {
		return fmt.Errorf("fail")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"permanent", Permanent(fmt.Errorf("x")), true},
		{"wrapped permanent", fmt.Errorf("dial: %w", Permanent(fmt.Errorf("x"))), true},
		{"not permanent", fmt.Errorf("x"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPermanent(tt.err))
		})
	}
}

func TestJitter_Range(t *testing.T) {
	d := 100 * time.Millisecond
	lower := time.Duration(float64(d) * 0.74)
	upper := time.Duration(float64(d) * 1.26)
	for i := 0; i < 100; i++ {
		j := addJitter(d)
		assert.True(t, j >= lower && j <= upper, "jitter %v out of expected range [%v, %v]", j, lower, upper)
	}
}

func TestBackoff_ZeroConfig(t *testing.T) {
	// Zero-value delays fall back to sensible defaults internally.
	b := &Backoff{MaxAttempts: 2}
	calls := 0

	start := time.Now()
	_ = b.Do(context.Background(), func(_ int) error {
		calls++
		return fmt.Errorf("fail")
	})
	elapsed := time.Since(start)

	assert.Equal(t, 2, calls)
	// Should have waited ~1s (the default initial delay).
	assert.GreaterOrEqual(t, elapsed, 500*time.Millisecond)
}
