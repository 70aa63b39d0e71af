package activity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdeck/quizdeck-backend/internal/store"
)

func TestRecord(t *testing.T) {
	ms := store.NewMemStore()
	r := NewRecorder(ms)
	ctx := context.Background()

	r.Record(ctx, Entry{
		UID:     "u1",
		Action:  "access_key_redeemed",
		Details: map[string]interface{}{"key": "ABCD-EFGH-1234"},
	})

	docs, err := ms.List(ctx, Collection)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "u1", docs[0].String("uid"))
	assert.Equal(t, "access_key_redeemed", docs[0].String("action"))
	_, hasTimestamp := docs[0].Time("timestamp")
	assert.True(t, hasTimestamp)
	assert.Equal(t, "ABCD-EFGH-1234", store.Document{Data: docs[0].Map("details")}.String("key"))
}

func TestRecordTx_CommitsWithTransaction(t *testing.T) {
	ms := store.NewMemStore()
	r := NewRecorder(ms)
	ctx := context.Background()

	err := ms.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Set(ctx, "users", "u1", map[string]interface{}{"role": "student"}); err != nil {
			return err
		}
		return r.RecordTx(ctx, tx, Entry{UID: "u1", Action: "role_granted"})
	})
	require.NoError(t, err)

	docs, err := ms.List(ctx, Collection)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestRecordTx_DiscardedWhenTransactionFails(t *testing.T) {
	ms := store.NewMemStore()
	r := NewRecorder(ms)
	ctx := context.Background()

	boom := assert.AnError
	err := ms.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := r.RecordTx(ctx, tx, Entry{UID: "u1", Action: "order_created"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	docs, err := ms.List(ctx, Collection)
	require.NoError(t, err)
	assert.Empty(t, docs, "audit row must not outlive a failed transaction")
}

func TestRecordBulk(t *testing.T) {
	ms := store.NewMemStore()
	r := NewRecorder(ms)
	ctx := context.Background()

	entries := make([]Entry, 25)
	for i := range entries {
		entries[i] = Entry{UID: "u1", Action: "api_request"}
	}

	result, err := r.RecordBulk(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, 25, result.OperationsCount)

	docs, err := ms.List(ctx, Collection)
	require.NoError(t, err)
	assert.Len(t, docs, 25)
}

func TestRecordBulk_RejectsOversizedRuns(t *testing.T) {
	ms := store.NewMemStore()
	r := NewRecorder(ms)

	entries := make([]Entry, store.MaxBatchOps+1)
	for i := range entries {
		entries[i] = Entry{UID: "u1", Action: "api_request"}
	}

	_, err := r.RecordBulk(context.Background(), entries)
	require.ErrorIs(t, err, store.ErrBatchSizeExceeded)

	docs, err := ms.List(context.Background(), Collection)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
