package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MemStore is a thread-safe in-memory Store with the same semantics as the
// Firestore adapter: create-if-absent, update-requires-existing, sentinel
// resolution, and optimistic transaction conflict detection. It backs tests
// and local tooling.
type MemStore struct {
	mu sync.Mutex
	// collection -> id -> fields
	data map[string]map[string]map[string]interface{}
	// collection -> id -> commit version, bumped on every write
	versions map[string]map[string]int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		data:     make(map[string]map[string]map[string]interface{}),
		versions: make(map[string]map[string]int64),
	}
}

func (m *MemStore) Get(ctx context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(collection, id), nil
}

func (m *MemStore) Create(ctx context.Context, collection, id string, data map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(BatchOp{Kind: BatchCreate, Collection: collection, ID: id, Data: data})
}

func (m *MemStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(BatchOp{Kind: BatchSet, Collection: collection, ID: id, Data: data})
}

func (m *MemStore) Update(ctx context.Context, collection, id string, data map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(BatchOp{Kind: BatchUpdate, Collection: collection, ID: id, Data: data})
}

func (m *MemStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(BatchOp{Kind: BatchDelete, Collection: collection, ID: id})
}

func (m *MemStore) List(ctx context.Context, collection string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.data[collection]))
	for id := range m.data[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, m.getLocked(collection, id))
	}
	return docs, nil
}

// RunTransaction runs fn with buffered writes and commits them only if none
// of the documents fn read changed in the meantime. A lost race surfaces as
// an Aborted status, same as Firestore, so the Executor's classification
// applies unchanged. Reads observe committed state, not the buffered writes.
func (m *MemStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{store: m, reads: make(map[docKey]int64)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, version := range tx.reads {
		if m.versionLocked(key.collection, key.id) != version {
			return status.Error(codes.Aborted, "transaction contention: document changed during transaction")
		}
	}
	return m.applyAllLocked(tx.writes)
}

// CommitBatch applies ops all-or-nothing, without conflict detection.
func (m *MemStore) CommitBatch(ctx context.Context, ops []BatchOp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyAllLocked(ops)
}

type docKey struct {
	collection string
	id         string
}

type memTx struct {
	store  *MemStore
	reads  map[docKey]int64
	writes []BatchOp
}

func (t *memTx) Get(ctx context.Context, collection, id string) (Document, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	t.reads[docKey{collection, id}] = t.store.versionLocked(collection, id)
	return t.store.getLocked(collection, id), nil
}

func (t *memTx) Create(ctx context.Context, collection, id string, data map[string]interface{}) error {
	t.writes = append(t.writes, BatchOp{Kind: BatchCreate, Collection: collection, ID: id, Data: data})
	return nil
}

func (t *memTx) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	t.writes = append(t.writes, BatchOp{Kind: BatchSet, Collection: collection, ID: id, Data: data})
	return nil
}

func (t *memTx) Update(ctx context.Context, collection, id string, data map[string]interface{}) error {
	t.writes = append(t.writes, BatchOp{Kind: BatchUpdate, Collection: collection, ID: id, Data: data})
	return nil
}

func (t *memTx) Delete(ctx context.Context, collection, id string) error {
	t.writes = append(t.writes, BatchOp{Kind: BatchDelete, Collection: collection, ID: id})
	return nil
}

// --- internals, all requiring m.mu ---

func (m *MemStore) getLocked(collection, id string) Document {
	fields, ok := m.data[collection][id]
	if !ok {
		return Document{ID: id}
	}
	return Document{ID: id, Exists: true, Data: copyFields(fields)}
}

func (m *MemStore) versionLocked(collection, id string) int64 {
	return m.versions[collection][id]
}

// applyAllLocked validates every op before applying any, so a batch or a
// transaction commit is all-or-nothing.
func (m *MemStore) applyAllLocked(ops []BatchOp) error {
	// Validation works against the pre-commit state plus earlier ops in the
	// same group, tracked by id.
	created := make(map[docKey]bool)
	deleted := make(map[docKey]bool)
	for _, op := range ops {
		key := docKey{op.Collection, op.ID}
		_, exists := m.data[op.Collection][op.ID]
		exists = (exists || created[key]) && !deleted[key]

		switch op.Kind {
		case BatchCreate:
			if exists {
				return status.Errorf(codes.AlreadyExists, "document %s/%s already exists", op.Collection, op.ID)
			}
			created[key] = true
			deleted[key] = false
		case BatchUpdate:
			if !exists {
				return status.Errorf(codes.NotFound, "document %s/%s not found", op.Collection, op.ID)
			}
		case BatchSet:
			created[key] = true
			deleted[key] = false
		case BatchDelete:
			deleted[key] = true
		default:
			return status.Errorf(codes.InvalidArgument, "unknown operation %q", op.Kind)
		}
	}

	for _, op := range ops {
		if err := m.applyLocked(op); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemStore) applyLocked(op BatchOp) error {
	if m.data[op.Collection] == nil {
		m.data[op.Collection] = make(map[string]map[string]interface{})
	}
	if m.versions[op.Collection] == nil {
		m.versions[op.Collection] = make(map[string]int64)
	}

	existing, exists := m.data[op.Collection][op.ID]

	switch op.Kind {
	case BatchCreate:
		if exists {
			return status.Errorf(codes.AlreadyExists, "document %s/%s already exists", op.Collection, op.ID)
		}
		m.data[op.Collection][op.ID] = resolveFields(nil, op.Data)
	case BatchSet:
		m.data[op.Collection][op.ID] = resolveFields(nil, op.Data)
	case BatchUpdate:
		if !exists {
			return status.Errorf(codes.NotFound, "document %s/%s not found", op.Collection, op.ID)
		}
		m.data[op.Collection][op.ID] = resolveFields(existing, op.Data)
	case BatchDelete:
		delete(m.data[op.Collection], op.ID)
	default:
		return status.Errorf(codes.InvalidArgument, "unknown operation %q", op.Kind)
	}

	m.versions[op.Collection][op.ID]++
	return nil
}

// resolveFields merges data into a copy of existing, resolving the sentinel
// values the way the real store does at commit time.
func resolveFields(existing, data map[string]interface{}) map[string]interface{} {
	out := copyFields(existing)
	if out == nil {
		out = make(map[string]interface{}, len(data))
	}

	for k, v := range data {
		switch t := v.(type) {
		case serverTimestamp:
			out[k] = time.Now().UTC()
		case deleteField:
			delete(out, k)
		case arrayUnion:
			out[k] = unionInto(out[k], t.elems)
		default:
			out[k] = v
		}
	}
	return out
}

func unionInto(current interface{}, elems []interface{}) []interface{} {
	var merged []interface{}
	switch cur := current.(type) {
	case []interface{}:
		merged = append(merged, cur...)
	case []string:
		for _, s := range cur {
			merged = append(merged, s)
		}
	}

	for _, e := range elems {
		found := false
		for _, existing := range merged {
			if existing == e {
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, e)
		}
	}
	return merged
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch t := v.(type) {
		case []interface{}:
			cp := make([]interface{}, len(t))
			copy(cp, t)
			out[k] = cp
		case []string:
			cp := make([]string, len(t))
			copy(cp, t)
			out[k] = cp
		case map[string]interface{}:
			out[k] = copyFields(t)
		default:
			out[k] = v
		}
	}
	return out
}
