package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	}, Policy{Name: "test_success", Attempts: 5})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	exhausted := false
	err := Do(context.Background(), func() error {
		calls++
		return errBoom
	}, Policy{
		Name:      "test_fatal",
		Attempts:  5,
		Retryable: func(error) bool { return false },
		OnExhaust: func(error) { exhausted = true },
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
	assert.True(t, exhausted)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Do(ctx, func() error {
		cancel()
		return errBoom
	}, Policy{Name: "test_cancel", Attempts: 3, Backoff: ExpoJitter{Base: time.Hour}})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpoJitter_Capped(t *testing.T) {
	b := ExpoJitter{Base: 100 * time.Millisecond, Max: time.Second}
	assert.Equal(t, 100*time.Millisecond, b.Next(0))
	assert.Equal(t, 400*time.Millisecond, b.Next(2))
	assert.Equal(t, time.Second, b.Next(10))
}
