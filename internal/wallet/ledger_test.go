package wallet

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scramblenaija/scramble-be/internal/logging"
	"github.com/scramblenaija/scramble-be/internal/models"
	"github.com/scramblenaija/scramble-be/internal/storage"
	"github.com/scramblenaija/scramble-be/internal/storage/memory"
)

func newTestLedger(t *testing.T) (*Ledger, *memory.Store, models.User) {
	t.Helper()
	store := memory.NewStore()
	user, err := store.CreateUser(context.Background(), models.User{
		Username: "ada",
		Email:    "ada@example.com",
		Role:     models.RoleStudent,
		Balance:  500,
	})
	require.NoError(t, err)
	return NewLedger(store, logging.Discard()), store, user
}

func TestApplyDeltaCreditAndDebit(t *testing.T) {
	ledger, _, user := newTestLedger(t)
	ctx := context.Background()

	balance, err := ledger.ApplyDelta(ctx, user.ID, 200, "contest-win", "key-1")
	require.NoError(t, err)
	require.Equal(t, int64(700), balance)

	balance, err = ledger.ApplyDelta(ctx, user.ID, -300, "withdrawal", "key-2")
	require.NoError(t, err)
	require.Equal(t, int64(400), balance)
}

func TestApplyDeltaRejectsOverdraft(t *testing.T) {
	ledger, _, user := newTestLedger(t)

	_, err := ledger.ApplyDelta(context.Background(), user.ID, -501, "withdrawal", "key-1")
	require.ErrorIs(t, err, storage.ErrInsufficientFunds)

	balance, err := ledger.ApplyDelta(context.Background(), user.ID, -500, "withdrawal", "key-2")
	require.NoError(t, err)
	require.Equal(t, int64(0), balance)
}

func TestApplyDeltaIdempotency(t *testing.T) {
	ledger, _, user := newTestLedger(t)
	ctx := context.Background()

	first, err := ledger.ApplyDelta(ctx, user.ID, 250, "contest-win", "contest-win:7")
	require.NoError(t, err)
	require.Equal(t, int64(750), first)

	// A replay with the same key must not double-pay.
	replay, err := ledger.ApplyDelta(ctx, user.ID, 250, "contest-win", "contest-win:7")
	require.NoError(t, err)
	require.Equal(t, int64(750), replay)

	entries, err := ledger.Entries(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestApplyDeltaValidatesInput(t *testing.T) {
	ledger, _, user := newTestLedger(t)

	_, err := ledger.ApplyDelta(context.Background(), user.ID, 0, "noop", "key")
	require.ErrorIs(t, err, ErrBadDelta)

	_, err = ledger.ApplyDelta(context.Background(), user.ID, 10, "credit", "")
	require.ErrorIs(t, err, ErrBadDelta)
}

// The balance after any sequence of applied deltas equals the initial
// balance plus the sum of the deltas that succeeded, under concurrency.
func TestApplyDeltaConcurrentSum(t *testing.T) {
	ledger, store, user := newTestLedger(t)
	ctx := context.Background()

	const workers = 50
	errCh := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("credit-%d", n)
			_, err := ledger.ApplyDelta(ctx, user.ID, 10, "activity", key)
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	got, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(500+workers*10), got.Balance)

	entries, err := ledger.Entries(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, workers)
}
