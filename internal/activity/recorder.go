// Package activity writes the append-only userActivity audit log. Entries
// are write-only from the backend's point of view; nothing here reads them
// back.
package activity

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/quizdeck/quizdeck-backend/internal/store"
)

const Collection = "userActivity"

// Entry is one audit row. Details is free-form and small.
type Entry struct {
	UID     string
	Action  string
	Details map[string]interface{}
}

type Recorder struct {
	store store.Store
	batch *store.BatchQueue
}

func NewRecorder(st store.Store) *Recorder {
	return &Recorder{
		store: st,
		batch: store.NewBatchQueue(st),
	}
}

func entryData(e Entry) map[string]interface{} {
	data := map[string]interface{}{
		"uid":       e.UID,
		"action":    e.Action,
		"timestamp": store.ServerTimestamp,
	}
	if len(e.Details) > 0 {
		data["details"] = e.Details
	}
	return data
}

// Record appends one entry outside of any transaction. Audit logging is
// best-effort: failures are logged, not returned.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if err := r.store.Create(ctx, Collection, uuid.New().String(), entryData(e)); err != nil {
		log.Printf("[warn] operation=activity_record uid=%s action=%s error=%v", e.UID, e.Action, err)
	}
}

// RecordTx appends one entry inside the caller's transaction, so the audit
// row commits together with the operation it describes.
func (r *Recorder) RecordTx(ctx context.Context, tx store.Tx, e Entry) error {
	return tx.Create(ctx, Collection, uuid.New().String(), entryData(e))
}

// RecordBulk appends many entries through the batch write queue. Appends are
// independent, which is exactly the batch queue's territory.
func (r *Recorder) RecordBulk(ctx context.Context, entries []Entry) (*store.BatchResult, error) {
	if err := r.batch.Start(); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := r.batch.Create(Collection, uuid.New().String(), entryData(e)); err != nil {
			_ = r.batch.Rollback()
			return nil, err
		}
	}
	return r.batch.Commit(ctx)
}
