package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// MaxBatchOps is the hard cap on writes queued in one batch.
const MaxBatchOps = 400

var (
	ErrBatchAlreadyActive = errors.New("a batch is already active")
	ErrNoActiveBatch      = errors.New("no active batch")
	ErrBatchSizeExceeded  = fmt.Errorf("batch size limit of %d operations exceeded", MaxBatchOps)
)

// BatchCommitError reports a failed commit. The queue has already been reset;
// retrying is the caller's responsibility.
type BatchCommitError struct {
	Ops []BatchOp
	Err error
}

func (e *BatchCommitError) Error() string {
	return fmt.Sprintf("batch commit of %d operations failed: %v", len(e.Ops), e.Err)
}

func (e *BatchCommitError) Unwrap() error { return e.Err }

// BatchResult summarizes a successful commit.
type BatchResult struct {
	OperationsCount int
	Duration        time.Duration
}

// BatchQueue accumulates document writes and commits them as one
// all-or-nothing unit outside of a transaction. It has no cross-document
// conflict detection, so it is reserved for bulk, independent writes.
type BatchQueue struct {
	mu        sync.Mutex
	committer BatchCommitter
	active    bool
	ops       []BatchOp
}

func NewBatchQueue(committer BatchCommitter) *BatchQueue {
	return &BatchQueue{committer: committer}
}

// Start opens a new batch. Batches do not nest.
func (q *BatchQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active {
		return ErrBatchAlreadyActive
	}
	q.active = true
	q.ops = q.ops[:0]
	return nil
}

func (q *BatchQueue) Create(collection, id string, data map[string]interface{}) error {
	return q.enqueue(BatchOp{Kind: BatchCreate, Collection: collection, ID: id, Data: data})
}

func (q *BatchQueue) Set(collection, id string, data map[string]interface{}) error {
	return q.enqueue(BatchOp{Kind: BatchSet, Collection: collection, ID: id, Data: data})
}

func (q *BatchQueue) Update(collection, id string, data map[string]interface{}) error {
	return q.enqueue(BatchOp{Kind: BatchUpdate, Collection: collection, ID: id, Data: data})
}

func (q *BatchQueue) Delete(collection, id string) error {
	return q.enqueue(BatchOp{Kind: BatchDelete, Collection: collection, ID: id})
}

func (q *BatchQueue) enqueue(op BatchOp) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.active {
		return ErrNoActiveBatch
	}
	// The cap is fatal, not retried. Everything queued so far stays queued so
	// the caller can still commit or roll back.
	if len(q.ops) >= MaxBatchOps {
		return ErrBatchSizeExceeded
	}
	q.ops = append(q.ops, op)
	return nil
}

// Len reports how many operations are currently queued.
func (q *BatchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Commit applies every queued operation in one shot. On failure the queue is
// reset and the returned BatchCommitError carries the cause and the attempted
// operations.
func (q *BatchQueue) Commit(ctx context.Context) (*BatchResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.active {
		return nil, ErrNoActiveBatch
	}

	ops := make([]BatchOp, len(q.ops))
	copy(ops, q.ops)
	q.active = false
	q.ops = nil

	start := time.Now()
	if err := q.committer.CommitBatch(ctx, ops); err != nil {
		return nil, &BatchCommitError{Ops: ops, Err: err}
	}

	return &BatchResult{
		OperationsCount: len(ops),
		Duration:        time.Since(start),
	}, nil
}

// Rollback discards the queued operations without touching the store.
func (q *BatchQueue) Rollback() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.active {
		return ErrNoActiveBatch
	}
	q.active = false
	q.ops = nil
	return nil
}
