package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// scriptedRunner fails with the scripted errors in order, then succeeds.
type scriptedRunner struct {
	errs     []error
	attempts int
}

func (r *scriptedRunner) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	r.attempts++
	if r.attempts <= len(r.errs) {
		return r.errs[r.attempts-1]
	}
	return nil
}

func TestExecutor_RetriesTransientThenCommits(t *testing.T) {
	runner := &scriptedRunner{errs: []error{
		status.Error(codes.Aborted, "too much contention"),
		status.Error(codes.Aborted, "too much contention"),
	}}

	var observed []struct {
		attempt int
		delay   time.Duration
	}
	opts := &ExecuteOptions{
		BaseDelay: time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			observed = append(observed, struct {
				attempt int
				delay   time.Duration
			}{attempt, delay})
		},
	}

	err := NewExecutor(runner).Execute(context.Background(), noopWork, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, runner.attempts, "should commit on the third attempt")

	require.Len(t, observed, 2)
	assert.Equal(t, 1, observed[0].attempt)
	assert.Equal(t, 2, observed[1].attempt)
	assert.Equal(t, time.Millisecond, observed[0].delay)
	assert.Equal(t, 2*time.Millisecond, observed[1].delay, "delay should double")
}

func TestExecutor_FatalErrorFailsImmediately(t *testing.T) {
	fatal := status.Error(codes.PermissionDenied, "no access")
	runner := &scriptedRunner{errs: []error{fatal, fatal, fatal}}

	retried := 0
	opts := &ExecuteOptions{
		BaseDelay: time.Millisecond,
		OnRetry:   func(int, error, time.Duration) { retried++ },
	}

	err := NewExecutor(runner).Execute(context.Background(), noopWork, opts)
	require.Error(t, err)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.Equal(t, 1, runner.attempts)
	assert.Zero(t, retried, "observer must not fire for fatal errors")
}

func TestExecutor_ExhaustionReturnsLastErrorUnchanged(t *testing.T) {
	last := status.Error(codes.DeadlineExceeded, "deadline exceeded on attempt 3")
	runner := &scriptedRunner{errs: []error{
		status.Error(codes.Aborted, "conflict"),
		status.Error(codes.Aborted, "conflict"),
		last,
	}}

	err := NewExecutor(runner).Execute(context.Background(), noopWork, &ExecuteOptions{BaseDelay: time.Millisecond})
	require.Error(t, err)
	assert.Equal(t, 3, runner.attempts)
	assert.Same(t, last, err, "last error must propagate unwrapped")
}

func TestExecutor_BusinessErrorIsNotRetried(t *testing.T) {
	sentinel := errors.New("key already used")
	runner := &scriptedRunner{errs: []error{sentinel, sentinel}}

	err := NewExecutor(runner).Execute(context.Background(), noopWork, &ExecuteOptions{BaseDelay: time.Millisecond})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, runner.attempts)
}

func TestExecutor_MessageHeuristicRetries(t *testing.T) {
	runner := &scriptedRunner{errs: []error{
		errors.New("rpc timed out waiting for backend"),
	}}

	err := NewExecutor(runner).Execute(context.Background(), noopWork, &ExecuteOptions{BaseDelay: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 2, runner.attempts)
}

func TestExecutor_PanickingObserverDoesNotAlterControlFlow(t *testing.T) {
	runner := &scriptedRunner{errs: []error{
		status.Error(codes.Aborted, "conflict"),
	}}
	opts := &ExecuteOptions{
		BaseDelay: time.Millisecond,
		OnRetry:   func(int, error, time.Duration) { panic("observer bug") },
	}

	err := NewExecutor(runner).Execute(context.Background(), noopWork, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, runner.attempts)
}

func TestExecutor_ContextCancelledDuringBackoff(t *testing.T) {
	runner := &scriptedRunner{errs: []error{
		status.Error(codes.Aborted, "conflict"),
		status.Error(codes.Aborted, "conflict"),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewExecutor(runner).Execute(ctx, noopWork, &ExecuteOptions{BaseDelay: time.Hour})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, runner.attempts)
}

func TestIsRetryable(t *testing.T) {
	t.Run("retryable codes", func(t *testing.T) {
		for _, code := range []codes.Code{codes.Aborted, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Internal} {
			assert.True(t, IsRetryable(status.Error(code, "boom")), code.String())
		}
	})

	t.Run("fatal codes", func(t *testing.T) {
		for _, code := range []codes.Code{codes.NotFound, codes.AlreadyExists, codes.PermissionDenied, codes.InvalidArgument} {
			assert.False(t, IsRetryable(status.Error(code, "boom")), code.String())
		}
	})

	t.Run("message fallback", func(t *testing.T) {
		assert.True(t, IsRetryable(errors.New("write conflict on document")))
		assert.True(t, IsRetryable(errors.New("request timed out")))
		assert.False(t, IsRetryable(errors.New("user not found")))
		assert.False(t, IsRetryable(nil))
	})
}

func noopWork(ctx context.Context, tx Tx) error { return nil }
