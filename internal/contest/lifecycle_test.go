package contest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scramblenaija/scramble-be/internal/logging"
	"github.com/scramblenaija/scramble-be/internal/models"
	"github.com/scramblenaija/scramble-be/internal/storage"
	"github.com/scramblenaija/scramble-be/internal/storage/memory"
)

func TestContestStateDerivation(t *testing.T) {
	start := time.Now()
	c := models.Contest{StartTime: start, TimerDuration: 10 * time.Minute}

	require.Equal(t, models.ContestScheduled, c.State(start.Add(-time.Minute)))
	require.Equal(t, models.ContestOpen, c.State(start))
	require.Equal(t, models.ContestOpen, c.State(start.Add(9*time.Minute)))
	require.Equal(t, models.ContestExpired, c.State(start.Add(10*time.Minute)))

	winner := int64(3)
	c.WinnerID = &winner
	require.Equal(t, models.ContestClosed, c.State(start))
}

func TestTimeRemaining(t *testing.T) {
	start := time.Now()
	c := models.Contest{StartTime: start, TimerDuration: 5 * time.Minute}

	// Full duration at start, strictly decreasing, clamped at zero.
	require.Equal(t, 5*time.Minute, TimeRemaining(c, start))
	require.Equal(t, 3*time.Minute, TimeRemaining(c, start.Add(2*time.Minute)))
	require.Equal(t, time.Duration(0), TimeRemaining(c, start.Add(5*time.Minute)))
	require.Equal(t, time.Duration(0), TimeRemaining(c, start.Add(time.Hour)))
}

func TestCurrentPicksEarliestOpenContest(t *testing.T) {
	store := memory.NewStore()
	lc := NewLifecycle(store, logging.Discard())
	ctx := context.Background()
	now := time.Now()

	later, err := store.CreateContest(ctx, models.Contest{
		RoundNumber: 2, Reward: 300, StartTime: now.Add(time.Hour), TimerDuration: 10 * time.Minute,
	})
	require.NoError(t, err)
	earlier, err := store.CreateContest(ctx, models.Contest{
		RoundNumber: 1, Reward: 500, StartTime: now.Add(-time.Minute), TimerDuration: 10 * time.Minute,
	})
	require.NoError(t, err)

	current, err := lc.Current(ctx, now)
	require.NoError(t, err)
	require.Equal(t, earlier.ID, current.ID)

	// Once the earlier round is expired, selection moves to the next one.
	require.NoError(t, lc.Expire(ctx, earlier.ID, now))
	current, err = lc.Current(ctx, now)
	require.NoError(t, err)
	require.Equal(t, later.ID, current.ID)
}

func TestCurrentNoContest(t *testing.T) {
	lc := NewLifecycle(memory.NewStore(), logging.Discard())
	_, err := lc.Current(context.Background(), time.Now())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSweepExpiredMarksStaleContests(t *testing.T) {
	store := memory.NewStore()
	lc := NewLifecycle(store, logging.Discard())
	ctx := context.Background()
	now := time.Now()

	stale, err := store.CreateContest(ctx, models.Contest{
		RoundNumber: 1, Reward: 100, StartTime: now.Add(-time.Hour), TimerDuration: 10 * time.Minute,
	})
	require.NoError(t, err)
	live, err := store.CreateContest(ctx, models.Contest{
		RoundNumber: 2, Reward: 100, StartTime: now.Add(-time.Minute), TimerDuration: 10 * time.Minute,
	})
	require.NoError(t, err)

	n, err := lc.SweepExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := store.GetContest(ctx, stale.ID)
	require.NoError(t, err)
	require.Equal(t, models.ContestExpired, got.State(now))

	got, err = store.GetContest(ctx, live.ID)
	require.NoError(t, err)
	require.Equal(t, models.ContestOpen, got.State(now))
}

func TestExpireRefusesSettledContest(t *testing.T) {
	store := memory.NewStore()
	lc := NewLifecycle(store, logging.Discard())
	ctx := context.Background()
	now := time.Now()

	user, err := store.CreateUser(ctx, models.User{Username: "w", Email: "w@example.com", Role: models.RoleStudent})
	require.NoError(t, err)
	c, err := store.CreateContest(ctx, models.Contest{
		RoundNumber: 1, Reward: 100, StartTime: now.Add(-time.Minute), TimerDuration: 10 * time.Minute,
	})
	require.NoError(t, err)

	_, err = store.SettleContest(ctx, c.ID, user.ID, 100, 3, "contest-win:1", now)
	require.NoError(t, err)

	err = lc.Expire(ctx, c.ID, now)
	require.ErrorIs(t, err, storage.ErrAlreadyWon)
}
