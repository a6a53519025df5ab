package storage

import (
	"context"
	"errors"
	"time"

	"github.com/scramblenaija/scramble-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrAlreadyWon indicates the contest winner slot was taken by someone else.
// It is terminal for the losing caller; no ledger or result effects occur.
var ErrAlreadyWon = errors.New("contest already won")

// ErrInsufficientFunds indicates a debit would drive the balance negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrStaleProgress indicates the submitted question index does not match the
// server-tracked progress for the user.
var ErrStaleProgress = errors.New("stale progress")

// ErrContestClosed indicates the contest is not open for answers.
var ErrContestClosed = errors.New("contest not open")

// UserStore captures identity persistence used by auth and admin handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id int64) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	Leaderboard(ctx context.Context) ([]models.User, error)
}

// WalletStore owns all balance mutation. Every method that moves money is
// atomic: either the ledger entry, the balance change, and any companion
// write all land, or none do.
type WalletStore interface {
	// ApplyDelta moves the user's balance by amount and appends a ledger
	// entry. For a given idempotency key the delta is applied at most once;
	// replays return the current balance with no further effect. A debit
	// that would leave the balance negative fails with ErrInsufficientFunds.
	ApplyDelta(ctx context.Context, userID, amount int64, reason, idempotencyKey string) (int64, error)

	// LedgerEntries returns the user's ledger, newest first.
	LedgerEntries(ctx context.Context, userID int64) ([]models.LedgerEntry, error)

	// ActivateSubscription debits fee and extends the subscription by d,
	// measured from the later of now and the current expiry, as one
	// transaction. ErrInsufficientFunds leaves both balance and expiry
	// untouched.
	ActivateSubscription(ctx context.Context, userID, fee int64, d time.Duration, now time.Time, idempotencyKey string) (time.Time, error)

	CreateWithdrawal(ctx context.Context, w models.Withdrawal) (models.Withdrawal, error)
	WithdrawalsByUser(ctx context.Context, userID int64) ([]models.Withdrawal, error)
	ListWithdrawals(ctx context.Context) ([]models.Withdrawal, error)

	// ApproveWithdrawal flips a pending withdrawal to approved and debits
	// the amount exactly once. Approving twice is a no-op returning the
	// already-approved record.
	ApproveWithdrawal(ctx context.Context, id string) (models.Withdrawal, error)
}

// ContestStore owns contests, questions, per-user progress, and results.
type ContestStore interface {
	CreateContest(ctx context.Context, c models.Contest) (models.Contest, error)
	GetContest(ctx context.Context, id int64) (models.Contest, error)
	ListContests(ctx context.Context) ([]models.Contest, error)
	DeleteContest(ctx context.Context, id int64) error

	// CurrentContest returns the earliest-starting contest that has no
	// winner and is not expired, or ErrNotFound.
	CurrentContest(ctx context.Context, now time.Time) (models.Contest, error)

	// ExpireContest marks a winnerless contest expired at the given instant.
	// It fails with ErrAlreadyWon if a winner was settled in the meantime.
	ExpireContest(ctx context.Context, id int64, at time.Time) error

	// ExpireStaleContests expires every winnerless contest whose deadline
	// has passed, returning how many were marked.
	ExpireStaleContests(ctx context.Context, now time.Time) (int, error)

	CreateQuestion(ctx context.Context, q models.Question) (models.Question, error)
	Questions(ctx context.Context, contestID int64) ([]models.Question, error)
	DeleteQuestion(ctx context.Context, id int64) error

	// Progress returns the server-tracked next question index for the user,
	// zero if the user has not answered yet.
	Progress(ctx context.Context, userID, contestID int64) (int, error)

	// AdvanceProgress moves the user's progress from fromIndex to
	// fromIndex+1. A mismatch with the stored index fails with
	// ErrStaleProgress and changes nothing.
	AdvanceProgress(ctx context.Context, userID, contestID int64, fromIndex int) error

	// SettleContest is the winner transaction: compare-and-set the contest
	// winner from null to userID, credit reward through the ledger under
	// the given idempotency key, and record the winning result, all
	// indivisibly. Losing the compare-and-set fails with ErrAlreadyWon and
	// leaves zero observable effect. Returns the winner's new balance.
	SettleContest(ctx context.Context, contestID, userID, reward int64, score int, idempotencyKey string, at time.Time) (int64, error)

	ResultsByUser(ctx context.Context, userID int64) ([]models.Result, error)
	ListResults(ctx context.Context) ([]models.Result, error)
	DeleteResult(ctx context.Context, id int64) error
	Winners(ctx context.Context) ([]models.WinnerRow, error)
}

// Store is the full persistence surface the server wires against.
type Store interface {
	UserStore
	WalletStore
	ContestStore
	Close()
}
