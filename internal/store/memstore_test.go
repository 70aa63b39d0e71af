package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMemStore_CreateAndGet(t *testing.T) {
	ms := NewMemStore()
	ctx := context.Background()

	require.NoError(t, ms.Create(ctx, "users", "u1", map[string]interface{}{"role": "student"}))

	doc, err := ms.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.True(t, doc.Exists)
	assert.Equal(t, "student", doc.String("role"))

	err = ms.Create(ctx, "users", "u1", map[string]interface{}{"role": "teacher"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	missing, err := ms.Get(ctx, "users", "nope")
	require.NoError(t, err)
	assert.False(t, missing.Exists)
}

func TestMemStore_UpdateRequiresExisting(t *testing.T) {
	ms := NewMemStore()
	err := ms.Update(context.Background(), "users", "ghost", map[string]interface{}{"role": "admin"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestMemStore_Sentinels(t *testing.T) {
	ms := NewMemStore()
	ctx := context.Background()

	t.Run("server timestamp", func(t *testing.T) {
		before := time.Now().UTC()
		require.NoError(t, ms.Create(ctx, "orders", "o1", map[string]interface{}{
			"createdAt": ServerTimestamp,
		}))
		doc, err := ms.Get(ctx, "orders", "o1")
		require.NoError(t, err)
		created, ok := doc.Time("createdAt")
		require.True(t, ok)
		assert.False(t, created.Before(before))
	})

	t.Run("array union deduplicates", func(t *testing.T) {
		require.NoError(t, ms.Create(ctx, "users", "u1", map[string]interface{}{
			"unlockedQuizzes": []interface{}{"q1"},
		}))
		require.NoError(t, ms.Update(ctx, "users", "u1", map[string]interface{}{
			"unlockedQuizzes": ArrayUnion("q1", "q2"),
		}))
		doc, err := ms.Get(ctx, "users", "u1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"q1", "q2"}, doc.Strings("unlockedQuizzes"))
	})

	t.Run("delete field", func(t *testing.T) {
		require.NoError(t, ms.Create(ctx, "users", "u2", map[string]interface{}{
			"role":          "teacher",
			"roleExpiresAt": time.Now(),
		}))
		require.NoError(t, ms.Update(ctx, "users", "u2", map[string]interface{}{
			"roleExpiresAt": DeleteField,
		}))
		doc, err := ms.Get(ctx, "users", "u2")
		require.NoError(t, err)
		_, ok := doc.Data["roleExpiresAt"]
		assert.False(t, ok)
	})
}

func TestMemStore_TransactionCommitsAtomically(t *testing.T) {
	ms := NewMemStore()
	ctx := context.Background()
	require.NoError(t, ms.Create(ctx, "users", "u1", map[string]interface{}{"role": "student"}))

	err := ms.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		doc, err := tx.Get(ctx, "users", "u1")
		require.NoError(t, err)
		require.True(t, doc.Exists)

		if err := tx.Update(ctx, "users", "u1", map[string]interface{}{"role": "teacher"}); err != nil {
			return err
		}
		return tx.Create(ctx, "roleChanges", "rc1", map[string]interface{}{"uid": "u1"})
	})
	require.NoError(t, err)

	user, err := ms.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "teacher", user.String("role"))

	change, err := ms.Get(ctx, "roleChanges", "rc1")
	require.NoError(t, err)
	assert.True(t, change.Exists)
}

func TestMemStore_TransactionErrorDiscardsWrites(t *testing.T) {
	ms := NewMemStore()
	ctx := context.Background()

	boom := status.Error(codes.FailedPrecondition, "validation failed")
	err := ms.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		require.NoError(t, tx.Set(ctx, "users", "u1", map[string]interface{}{"role": "admin"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	doc, err := ms.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.False(t, doc.Exists)
}

func TestMemStore_TransactionConflictAborts(t *testing.T) {
	ms := NewMemStore()
	ctx := context.Background()
	require.NoError(t, ms.Create(ctx, "accessKeys", "K1", map[string]interface{}{"status": "new"}))

	err := ms.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Get(ctx, "accessKeys", "K1"); err != nil {
			return err
		}
		// A concurrent writer sneaks in between read and commit.
		require.NoError(t, ms.Update(ctx, "accessKeys", "K1", map[string]interface{}{"status": "redeemed"}))
		return tx.Update(ctx, "accessKeys", "K1", map[string]interface{}{"status": "redeemed"})
	})
	require.Error(t, err)
	assert.Equal(t, codes.Aborted, status.Code(err))
	assert.True(t, IsRetryable(err), "conflicts must be retryable")
}

func TestMemStore_ConcurrentTransactionsSingleWinner(t *testing.T) {
	ms := NewMemStore()
	ctx := context.Background()
	require.NoError(t, ms.Create(ctx, "counters", "c1", map[string]interface{}{"n": int64(0)}))

	const workers = 8
	var wg sync.WaitGroup
	exec := NewExecutor(ms)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = exec.Execute(ctx, func(ctx context.Context, tx Tx) error {
				doc, err := tx.Get(ctx, "counters", "c1")
				if err != nil {
					return err
				}
				n, _ := doc.Data["n"].(int64)
				return tx.Update(ctx, "counters", "c1", map[string]interface{}{"n": n + 1})
			}, &ExecuteOptions{MaxRetries: 20, BaseDelay: time.Millisecond})
		}()
	}
	wg.Wait()

	doc, err := ms.Get(ctx, "counters", "c1")
	require.NoError(t, err)
	n, _ := doc.Data["n"].(int64)
	assert.Equal(t, int64(workers), n, "every increment must be applied exactly once")
}
