package contest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scramblenaija/scramble-be/internal/storage"
)

// Settlement is the outcome of a won declare-winner race.
type Settlement struct {
	ContestID  int64
	UserID     int64
	Reward     int64
	NewBalance int64
}

// Settler coordinates winner declaration: contest winner compare-and-set,
// reward credit, and history recording, delegated to the store as one
// indivisible transaction. Exactly one of N simultaneous callers wins; the
// rest get ErrAlreadyWon synchronously with zero side effects.
type Settler struct {
	store storage.ContestStore
	log   *logrus.Entry
}

// NewSettler constructs a settlement coordinator.
func NewSettler(store storage.ContestStore, log *logrus.Entry) *Settler {
	return &Settler{store: store, log: log}
}

// DeclareWinner settles the contest for the given user. The ledger
// idempotency key is derived from the contest id, so a retried settlement
// for the same contest can never double-pay.
func (s *Settler) DeclareWinner(ctx context.Context, userID, contestID int64, score int) (Settlement, error) {
	c, err := s.store.GetContest(ctx, contestID)
	if err != nil {
		return Settlement{}, err
	}

	key := "contest-win:" + strconv.FormatInt(contestID, 10)
	newBalance, err := s.store.SettleContest(ctx, contestID, userID, c.Reward, score, key, time.Now())
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyWon) || errors.Is(err, storage.ErrContestClosed) {
			return Settlement{}, err
		}
		return Settlement{}, fmt.Errorf("settle contest %d: %w", contestID, err)
	}

	s.log.WithFields(logrus.Fields{
		"contest_id": contestID,
		"user_id":    userID,
		"reward":     c.Reward,
	}).Info("winner settled")
	return Settlement{
		ContestID:  contestID,
		UserID:     userID,
		Reward:     c.Reward,
		NewBalance: newBalance,
	}, nil
}
