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

type stubGate struct {
	eligible bool
}

func (g stubGate) IsEligible(context.Context, int64, time.Time) (bool, error) {
	return g.eligible, nil
}

type adjudicatorFixture struct {
	store   *memory.Store
	adj     *Adjudicator
	user    models.User
	contest models.Contest
}

func newAdjudicatorFixture(t *testing.T, eligible bool) adjudicatorFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	log := logging.Discard()

	user, err := store.CreateUser(ctx, models.User{
		Username: "ada", Email: "ada@example.com", Role: models.RoleStudent,
	})
	require.NoError(t, err)

	c, err := store.CreateContest(ctx, models.Contest{
		RoundNumber:   1,
		Reward:        500,
		StartTime:     time.Now().Add(-time.Minute),
		TimerDuration: 10 * time.Minute,
	})
	require.NoError(t, err)

	for _, q := range []models.Question{
		{ContestID: c.ID, Text: "Capital of Nigeria?", CorrectAnswer: "Abuja"},
		{ContestID: c.ID, Text: "Largest city in Nigeria?", CorrectAnswer: "Lagos"},
		{ContestID: c.ID, Text: "Currency of Nigeria?", CorrectAnswer: "Naira"},
	} {
		_, err := store.CreateQuestion(ctx, q)
		require.NoError(t, err)
	}

	settler := NewSettler(store, log)
	adj := NewAdjudicator(store, stubGate{eligible: eligible}, settler, log)
	return adjudicatorFixture{store: store, adj: adj, user: user, contest: c}
}

func TestSubmitAnswerFullRun(t *testing.T) {
	f := newAdjudicatorFixture(t, true)
	ctx := context.Background()

	// A wrong answer leaves progress where it was and allows a retry.
	sub, err := f.adj.SubmitAnswer(ctx, f.user.ID, f.contest.ID, 0, "Kano")
	require.NoError(t, err)
	require.Equal(t, OutcomeIncorrect, sub.Outcome)
	require.Equal(t, 0, sub.NextIndex)

	// Matching is case-insensitive and ignores surrounding whitespace.
	sub, err = f.adj.SubmitAnswer(ctx, f.user.ID, f.contest.ID, 0, "  abuja ")
	require.NoError(t, err)
	require.Equal(t, OutcomeAdvance, sub.Outcome)
	require.Equal(t, 1, sub.NextIndex)

	sub, err = f.adj.SubmitAnswer(ctx, f.user.ID, f.contest.ID, 1, "Lagos")
	require.NoError(t, err)
	require.Equal(t, OutcomeAdvance, sub.Outcome)
	require.Equal(t, 2, sub.NextIndex)

	sub, err = f.adj.SubmitAnswer(ctx, f.user.ID, f.contest.ID, 2, "Naira")
	require.NoError(t, err)
	require.Equal(t, OutcomeWon, sub.Outcome)
	require.Equal(t, int64(500), sub.Reward)
	require.Equal(t, int64(500), sub.NewBalance)

	u, err := f.store.FindByID(ctx, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(500), u.Balance)

	results, err := f.store.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].IsWinner)
	require.Equal(t, f.user.ID, results[0].UserID)
	require.Equal(t, 3, results[0].Score)
}

func TestSubmitAnswerStaleIndex(t *testing.T) {
	f := newAdjudicatorFixture(t, true)
	ctx := context.Background()

	// Submitting for a question ahead of server progress is rejected and
	// mutates nothing, even with the right answer.
	sub, err := f.adj.SubmitAnswer(ctx, f.user.ID, f.contest.ID, 2, "Naira")
	require.ErrorIs(t, err, storage.ErrStaleProgress)
	require.Equal(t, 0, sub.NextIndex)

	progress, err := f.store.Progress(ctx, f.user.ID, f.contest.ID)
	require.NoError(t, err)
	require.Equal(t, 0, progress)

	u, err := f.store.FindByID(ctx, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), u.Balance)

	results, err := f.store.ListResults(ctx)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSubmitAnswerRequiresSubscription(t *testing.T) {
	f := newAdjudicatorFixture(t, false)

	_, err := f.adj.SubmitAnswer(context.Background(), f.user.ID, f.contest.ID, 0, "Abuja")
	require.ErrorIs(t, err, ErrNotEligible)
}

func TestSubmitAnswerClosedContest(t *testing.T) {
	f := newAdjudicatorFixture(t, true)
	ctx := context.Background()

	other, err := f.store.CreateUser(ctx, models.User{
		Username: "bola", Email: "bola@example.com", Role: models.RoleStudent,
	})
	require.NoError(t, err)
	_, err = f.store.SettleContest(ctx, f.contest.ID, other.ID, 500, 3, "contest-win:1", time.Now())
	require.NoError(t, err)

	// After settlement the round is closed to everyone else.
	_, err = f.adj.SubmitAnswer(ctx, f.user.ID, f.contest.ID, 0, "Abuja")
	require.ErrorIs(t, err, storage.ErrContestClosed)
}

func TestSubmitAnswerScheduledContest(t *testing.T) {
	f := newAdjudicatorFixture(t, true)
	ctx := context.Background()

	future, err := f.store.CreateContest(ctx, models.Contest{
		RoundNumber:   2,
		Reward:        500,
		StartTime:     time.Now().Add(time.Hour),
		TimerDuration: 10 * time.Minute,
	})
	require.NoError(t, err)

	_, err = f.adj.SubmitAnswer(ctx, f.user.ID, future.ID, 0, "Abuja")
	require.ErrorIs(t, err, storage.ErrContestClosed)
}

func TestSubmitAnswerExpiredContest(t *testing.T) {
	f := newAdjudicatorFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.store.ExpireContest(ctx, f.contest.ID, time.Now()))

	_, err := f.adj.SubmitAnswer(ctx, f.user.ID, f.contest.ID, 0, "Abuja")
	require.ErrorIs(t, err, storage.ErrContestClosed)
}
