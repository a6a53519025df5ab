package contest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scramblenaija/scramble-be/internal/logging"
	"github.com/scramblenaija/scramble-be/internal/models"
	"github.com/scramblenaija/scramble-be/internal/storage"
	"github.com/scramblenaija/scramble-be/internal/storage/memory"
)

func TestDeclareWinnerRace(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	settler := NewSettler(store, logging.Discard())

	c, err := store.CreateContest(ctx, models.Contest{
		RoundNumber:   1,
		Reward:        500,
		StartTime:     time.Now().Add(-time.Minute),
		TimerDuration: 10 * time.Minute,
	})
	require.NoError(t, err)

	const contenders = 20
	users := make([]models.User, contenders)
	for i := range users {
		u, err := store.CreateUser(ctx, models.User{
			Username: fmt.Sprintf("user%d", i),
			Email:    fmt.Sprintf("user%d@example.com", i),
			Role:     models.RoleStudent,
		})
		require.NoError(t, err)
		users[i] = u
	}

	// Every contender races the same settlement; the loser path must be a
	// synchronous ErrAlreadyWon with no side effects.
	var wg sync.WaitGroup
	settlements := make(chan Settlement, contenders)
	failures := make(chan error, contenders)
	for _, u := range users {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			s, err := settler.DeclareWinner(ctx, userID, c.ID, 3)
			if err != nil {
				failures <- err
				return
			}
			settlements <- s
		}(u.ID)
	}
	wg.Wait()
	close(settlements)
	close(failures)

	require.Len(t, settlements, 1)
	won := <-settlements
	require.Equal(t, int64(500), won.Reward)
	require.Equal(t, int64(500), won.NewBalance)

	require.Len(t, failures, contenders-1)
	for err := range failures {
		require.ErrorIs(t, err, storage.ErrAlreadyWon)
	}

	settled, err := store.GetContest(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, settled.WinnerID)
	require.Equal(t, won.UserID, *settled.WinnerID)

	results, err := store.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].IsWinner)
	require.Equal(t, won.UserID, results[0].UserID)

	// Only the winner's balance moved.
	for _, u := range users {
		got, err := store.FindByID(ctx, u.ID)
		require.NoError(t, err)
		if u.ID == won.UserID {
			require.Equal(t, int64(500), got.Balance)
		} else {
			require.Equal(t, int64(0), got.Balance, "loser %s was credited", u.Username)
		}
	}
}

func TestDeclareWinnerRetryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	settler := NewSettler(store, logging.Discard())

	u, err := store.CreateUser(ctx, models.User{Username: "ada", Email: "ada@example.com", Role: models.RoleStudent})
	require.NoError(t, err)
	c, err := store.CreateContest(ctx, models.Contest{
		RoundNumber:   1,
		Reward:        500,
		StartTime:     time.Now().Add(-time.Minute),
		TimerDuration: 10 * time.Minute,
	})
	require.NoError(t, err)

	_, err = settler.DeclareWinner(ctx, u.ID, c.ID, 3)
	require.NoError(t, err)

	// A retried settlement of an already-settled contest loses the
	// compare-and-set; the ledger key would block a double credit even if
	// it did not.
	_, err = settler.DeclareWinner(ctx, u.ID, c.ID, 3)
	require.True(t, errors.Is(err, storage.ErrAlreadyWon))

	got, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(500), got.Balance)

	entries, err := store.LedgerEntries(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestDeclareWinnerExpiredContest(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	settler := NewSettler(store, logging.Discard())

	u, err := store.CreateUser(ctx, models.User{Username: "ada", Email: "ada@example.com", Role: models.RoleStudent})
	require.NoError(t, err)
	c, err := store.CreateContest(ctx, models.Contest{
		RoundNumber:   1,
		Reward:        500,
		StartTime:     time.Now().Add(-time.Hour),
		TimerDuration: 10 * time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, store.ExpireContest(ctx, c.ID, time.Now()))

	_, err = settler.DeclareWinner(ctx, u.ID, c.ID, 3)
	require.ErrorIs(t, err, storage.ErrContestClosed)

	got, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), got.Balance)
}
