package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/recall/pkg/llm"
)

// fakeTimer records requested delays and fires immediately.
type fakeTimer struct {
	delays []time.Duration
	ch     chan time.Time
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{ch: make(chan time.Time, 1)}
}

func (t *fakeTimer) Start(d time.Duration) {
	t.delays = append(t.delays, d)
	t.ch <- time.Now()
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time {
	return t.ch
}

func testPolicy(timer *fakeTimer) llm.RetryPolicy {
	return llm.RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     10 * time.Second,
		Timer:           timer,
	}
}

func TestRetryPolicy_SucceedsFirstAttempt(t *testing.T) {
	timer := newFakeTimer()
	calls := 0

	err := testPolicy(timer).Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, timer.delays)
}

func TestRetryPolicy_RecoversAfterFailure(t *testing.T) {
	timer := newFakeTimer()
	calls := 0

	err := testPolicy(timer).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	// backoff doubles from the initial interval
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, timer.delays)
}

func TestRetryPolicy_ExhaustsBudget(t *testing.T) {
	timer := newFakeTimer()
	calls := 0
	cause := errors.New("provider down")

	err := testPolicy(timer).Do(context.Background(), func() error {
		calls++
		return cause
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, calls)
	assert.Len(t, timer.delays, 2)
}

func TestRetryPolicy_CapsInterval(t *testing.T) {
	timer := newFakeTimer()
	policy := llm.RetryPolicy{
		MaxAttempts:     6,
		InitialInterval: 1 * time.Second,
		MaxInterval:     4 * time.Second,
		Timer:           timer,
	}

	err := policy.Do(context.Background(), func() error {
		return errors.New("always")
	})

	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		4 * time.Second,
		4 * time.Second,
	}, timer.delays)
}
