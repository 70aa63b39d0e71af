package store

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore adapts a Firestore client to the Store interface. Store
// error codes pass through untouched so the executor and the error normalizer
// can classify them.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) doc(collection, id string) *firestore.DocumentRef {
	return s.client.Collection(collection).Doc(id)
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := s.doc(collection, id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Document{ID: id}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return Document{ID: id, Exists: true, Data: snap.Data()}, nil
}

func (s *FirestoreStore) Create(ctx context.Context, collection, id string, data map[string]interface{}) error {
	_, err := s.doc(collection, id).Create(ctx, translateData(data))
	return err
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	_, err := s.doc(collection, id).Set(ctx, translateData(data))
	return err
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, data map[string]interface{}) error {
	_, err := s.doc(collection, id).Update(ctx, translateUpdates(data))
	return err
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.doc(collection, id).Delete(ctx)
	return err
}

// RunTransaction runs fn in a single Firestore transaction attempt. The SDK's
// built-in retry loop is disabled; the Executor owns retry policy.
func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{store: s, tx: t})
	}, firestore.MaxAttempts(1))
}

func (s *FirestoreStore) CommitBatch(ctx context.Context, ops []BatchOp) error {
	batch := s.client.Batch()
	for _, op := range ops {
		ref := s.doc(op.Collection, op.ID)
		switch op.Kind {
		case BatchCreate:
			batch.Create(ref, translateData(op.Data))
		case BatchSet:
			batch.Set(ref, translateData(op.Data))
		case BatchUpdate:
			batch.Update(ref, translateUpdates(op.Data))
		case BatchDelete:
			batch.Delete(ref)
		default:
			return fmt.Errorf("unknown batch operation %q", op.Kind)
		}
	}
	_, err := batch.Commit(ctx)
	return err
}

func (s *FirestoreStore) List(ctx context.Context, collection string) ([]Document, error) {
	iter := s.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	var docs []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Exists: true, Data: snap.Data()})
	}
	return docs, nil
}

// firestoreTx scopes the mutation verbs to one transaction attempt.
type firestoreTx struct {
	store *FirestoreStore
	tx    *firestore.Transaction
}

func (t *firestoreTx) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := t.tx.Get(t.store.doc(collection, id))
	if status.Code(err) == codes.NotFound {
		return Document{ID: id}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("tx get %s/%s: %w", collection, id, err)
	}
	return Document{ID: id, Exists: true, Data: snap.Data()}, nil
}

func (t *firestoreTx) Create(ctx context.Context, collection, id string, data map[string]interface{}) error {
	return t.tx.Create(t.store.doc(collection, id), translateData(data))
}

func (t *firestoreTx) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	return t.tx.Set(t.store.doc(collection, id), translateData(data))
}

func (t *firestoreTx) Update(ctx context.Context, collection, id string, data map[string]interface{}) error {
	return t.tx.Update(t.store.doc(collection, id), translateUpdates(data))
}

func (t *firestoreTx) Delete(ctx context.Context, collection, id string) error {
	return t.tx.Delete(t.store.doc(collection, id))
}

func translateValue(v interface{}) interface{} {
	switch t := v.(type) {
	case serverTimestamp:
		return firestore.ServerTimestamp
	case deleteField:
		return firestore.Delete
	case arrayUnion:
		return firestore.ArrayUnion(t.elems...)
	default:
		return v
	}
}

func translateData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = translateValue(v)
	}
	return out
}

func translateUpdates(data map[string]interface{}) []firestore.Update {
	updates := make([]firestore.Update, 0, len(data))
	for k, v := range data {
		updates = append(updates, firestore.Update{Path: k, Value: translateValue(v)})
	}
	// Deterministic order keeps write payloads stable across attempts.
	sort.Slice(updates, func(i, j int) bool { return updates[i].Path < updates[j].Path })
	return updates
}
