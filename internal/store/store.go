// Package store abstracts the document database behind a small interface:
// keyed collections of documents, single-attempt transactions, and batched
// writes. Production runs against Firestore; tests and local tooling run
// against the in-memory implementation.
package store

import "context"

// Document is a single document read from a collection. Exists is false when
// no document is stored under the requested id; Data is nil in that case.
type Document struct {
	ID     string
	Exists bool
	Data   map[string]interface{}
}

// Reader provides point reads from collections.
type Reader interface {
	Get(ctx context.Context, collection, id string) (Document, error)
}

// Writer provides the four mutation verbs. Create fails with an AlreadyExists
// code if the document is present; Update fails with NotFound if it is not.
type Writer interface {
	Create(ctx context.Context, collection, id string, data map[string]interface{}) error
	Set(ctx context.Context, collection, id string, data map[string]interface{}) error
	Update(ctx context.Context, collection, id string, data map[string]interface{}) error
	Delete(ctx context.Context, collection, id string) error
}

// Tx is the accessor handed to a transaction function. All reads observe a
// consistent snapshot; writes are applied atomically at commit or not at all.
type Tx interface {
	Reader
	Writer
}

// TransactionRunner runs a single transaction attempt. Retrying is the
// Executor's job, so implementations must not retry internally.
type TransactionRunner interface {
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// BatchCommitter applies a group of queued writes as one all-or-nothing
// commit, without cross-document conflict detection.
type BatchCommitter interface {
	CommitBatch(ctx context.Context, ops []BatchOp) error
}

// Store is the full document-store client surface used by the services.
type Store interface {
	Reader
	Writer
	TransactionRunner
	BatchCommitter

	// List returns every document in a collection. It is a full scan and is
	// only used by admin read paths and the expiry sweep.
	List(ctx context.Context, collection string) ([]Document, error)
}

type serverTimestamp struct{}

// ServerTimestamp is a field value sentinel resolved to the store's write
// time at commit.
var ServerTimestamp = serverTimestamp{}

type deleteField struct{}

// DeleteField is a field value sentinel that removes the field on Update.
var DeleteField = deleteField{}

type arrayUnion struct {
	elems []interface{}
}

// ArrayUnion is a field value sentinel that unions elems into the stored
// array, skipping elements already present.
func ArrayUnion(elems ...interface{}) arrayUnion {
	return arrayUnion{elems: elems}
}

// BatchOpKind identifies the mutation verb of a queued batch operation.
type BatchOpKind string

const (
	BatchCreate BatchOpKind = "create"
	BatchSet    BatchOpKind = "set"
	BatchUpdate BatchOpKind = "update"
	BatchDelete BatchOpKind = "delete"
)

// BatchOp is one queued write in a batch.
type BatchOp struct {
	Kind       BatchOpKind
	Collection string
	ID         string
	Data       map[string]interface{}
}
