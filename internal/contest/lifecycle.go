// Package contest holds the settlement engine: contest lifecycle, answer
// adjudication, and the winner settlement transaction.
package contest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scramblenaija/scramble-be/internal/models"
	"github.com/scramblenaija/scramble-be/internal/storage"
)

// Lifecycle owns contest state and timing.
type Lifecycle struct {
	store storage.ContestStore
	log   *logrus.Entry
}

// NewLifecycle constructs a lifecycle manager over the given store.
func NewLifecycle(store storage.ContestStore, log *logrus.Entry) *Lifecycle {
	return &Lifecycle{store: store, log: log}
}

// Current returns the earliest-starting contest that can still be won,
// or storage.ErrNotFound when none is scheduled or open.
func (l *Lifecycle) Current(ctx context.Context, now time.Time) (models.Contest, error) {
	return l.store.CurrentContest(ctx, now)
}

// TimeRemaining is how long the contest can still be won, floor-clamped at
// zero. At start it equals the full timer duration.
func TimeRemaining(c models.Contest, now time.Time) time.Duration {
	remaining := c.Deadline().Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expire marks a winnerless contest expired. A contest that already has a
// winner cannot be expired.
func (l *Lifecycle) Expire(ctx context.Context, contestID int64, at time.Time) error {
	if err := l.store.ExpireContest(ctx, contestID, at); err != nil {
		return err
	}
	l.log.WithField("contest_id", contestID).Info("contest expired without winner")
	return nil
}

// SweepExpired marks every winnerless contest past its deadline expired.
func (l *Lifecycle) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	n, err := l.store.ExpireStaleContests(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire stale contests: %w", err)
	}
	if n > 0 {
		l.log.WithField("count", n).Info("expired stale contests")
	}
	return n, nil
}

// RunSweeper expires stale contests on the given interval until ctx ends.
func (l *Lifecycle) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := l.SweepExpired(ctx, now); err != nil {
				l.log.WithError(err).Warn("contest expiry sweep failed")
			}
		}
	}
}
