package store

import (
	"context"
	"log"
	"time"
)

const (
	// DefaultMaxRetries is the total number of transaction attempts.
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the backoff before the second attempt; it doubles
	// on every further attempt.
	DefaultBaseDelay = 100 * time.Millisecond
)

// TxFunc is one unit of transactional work. It may be re-run, so it must not
// have side effects outside the transaction handle.
type TxFunc func(ctx context.Context, tx Tx) error

// RetryObserver is notified before each retry with the attempt that just
// failed, its error, and the delay about to be slept.
type RetryObserver func(attempt int, err error, delay time.Duration)

// ExecuteOptions tune a single Execute call. Zero values fall back to the
// defaults.
type ExecuteOptions struct {
	MaxRetries int
	BaseDelay  time.Duration
	OnRetry    RetryObserver
}

// Executor runs transactional work with bounded retries and exponential
// backoff. Only transient store failures are retried; everything else
// propagates immediately.
type Executor struct {
	runner TransactionRunner
}

func NewExecutor(runner TransactionRunner) *Executor {
	return &Executor{runner: runner}
}

// Execute runs work in a fresh store transaction per attempt. On success
// exactly one commit took effect. After retries are exhausted the last error
// is returned unchanged.
func (e *Executor) Execute(ctx context.Context, work TxFunc, opts *ExecuteOptions) error {
	maxRetries := DefaultMaxRetries
	baseDelay := DefaultBaseDelay
	var onRetry RetryObserver

	if opts != nil {
		if opts.MaxRetries > 0 {
			maxRetries = opts.MaxRetries
		}
		if opts.BaseDelay > 0 {
			baseDelay = opts.BaseDelay
		}
		onRetry = opts.OnRetry
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := e.runner.RunTransaction(ctx, work)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt == maxRetries {
			break
		}

		delay := baseDelay << (attempt - 1)
		notifyRetry(onRetry, attempt, err, delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}

// notifyRetry shields the retry loop from a misbehaving observer.
func notifyRetry(onRetry RetryObserver, attempt int, err error, delay time.Duration) {
	if onRetry == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[warn] operation=tx_retry message=retry observer panicked: %v", r)
		}
	}()
	onRetry(attempt, err, delay)
}
