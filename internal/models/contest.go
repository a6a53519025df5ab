package models

import "time"

// ContestState is the lifecycle position of a contest at a point in time.
type ContestState string

const (
	// ContestScheduled means the contest has not started yet.
	ContestScheduled ContestState = "scheduled"
	// ContestOpen means the contest is accepting answers.
	ContestOpen ContestState = "open"
	// ContestClosed means a winner has been settled.
	ContestClosed ContestState = "closed"
	// ContestExpired means the timer ran out with no winner.
	ContestExpired ContestState = "expired"
)

// Contest is one timed quiz round with a single reward and at most one winner.
// WinnerID is set exactly once, by the settlement transaction, and never
// changes afterwards.
type Contest struct {
	ID            int64         `json:"id"`
	RoundNumber   int           `json:"round_number"`
	Reward        int64         `json:"reward"`
	StartTime     time.Time     `json:"start_time"`
	TimerDuration time.Duration `json:"timer_duration"`
	WinnerID      *int64        `json:"winner_id,omitempty"`
	ExpiredAt     *time.Time    `json:"expired_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Deadline is the instant after which the contest can no longer be won.
func (c Contest) Deadline() time.Time {
	return c.StartTime.Add(c.TimerDuration)
}

// State derives the lifecycle state of the contest at the given instant.
// A settled winner always means closed, regardless of the clock.
func (c Contest) State(now time.Time) ContestState {
	switch {
	case c.WinnerID != nil:
		return ContestClosed
	case c.ExpiredAt != nil:
		return ContestExpired
	case now.Before(c.StartTime):
		return ContestScheduled
	case now.Before(c.Deadline()):
		return ContestOpen
	default:
		return ContestExpired
	}
}

// Question belongs to exactly one contest and is immutable after creation.
// Ordering within a contest is by ID, matching creation order.
type Question struct {
	ID            int64  `json:"id"`
	ContestID     int64  `json:"contest_id"`
	Text          string `json:"text"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

// Result records one user's finished attempt at a contest. At most one
// result per contest carries IsWinner=true; the settlement transaction is
// the only writer of winning rows.
type Result struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	ContestID  int64     `json:"contest_id"`
	Score      int       `json:"score"`
	Reward     int64     `json:"reward"`
	IsWinner   bool      `json:"is_winner"`
	FinishTime time.Time `json:"finish_time"`
}

// WinnerRow is a result joined with user and contest fields for the public
// winners listing.
type WinnerRow struct {
	ResultID    int64     `json:"id"`
	ContestID   int64     `json:"contest_id"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	RoundNumber int       `json:"round_number"`
	Reward      int64     `json:"reward"`
	FinishTime  time.Time `json:"finish_time"`
}
