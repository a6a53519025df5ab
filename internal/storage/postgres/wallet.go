package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/scramblenaija/scramble-be/internal/models"
	"github.com/scramblenaija/scramble-be/internal/storage"
)

// ApplyDelta moves the user's balance and appends a ledger entry in one
// transaction. The unique idempotency key makes replays harmless: the ledger
// insert wins or loses atomically, and the balance only moves when it wins.
func (s *Store) ApplyDelta(ctx context.Context, userID, amount int64, reason, idempotencyKey string) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	newBalance, applied, err := applyDeltaTx(ctx, tx, userID, amount, reason, idempotencyKey)
	if err != nil {
		return 0, err
	}
	if !applied {
		// Duplicate key: report the balance as it stands, change nothing.
		return newBalance, tx.Commit(ctx)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return newBalance, nil
}

// applyDeltaTx performs the ledger insert and conditional balance update
// inside the caller's transaction. It reports applied=false when the
// idempotency key already exists.
func applyDeltaTx(ctx context.Context, tx pgx.Tx, userID, amount int64, reason, idempotencyKey string) (int64, bool, error) {
	var entryID int64
	err := tx.QueryRow(ctx, `
		INSERT INTO ledger_entries (user_id, amount, reason, idempotency_key)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id;`,
		userID, amount, reason, idempotencyKey).Scan(&entryID)
	if errors.Is(err, pgx.ErrNoRows) {
		var balance int64
		if err := tx.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1;`, userID).Scan(&balance); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, false, storage.ErrNotFound
			}
			return 0, false, err
		}
		return balance, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("insert ledger entry: %w", err)
	}

	// The row lock taken here serializes concurrent deltas per user; the
	// predicate rejects debits past zero without a read-modify-write race.
	var newBalance int64
	err = tx.QueryRow(ctx, `
		UPDATE users SET balance = balance + $1
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance;`,
		amount, userID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1);`, userID).Scan(&exists); err != nil {
			return 0, false, err
		}
		if !exists {
			return 0, false, storage.ErrNotFound
		}
		return 0, false, storage.ErrInsufficientFunds
	}
	if err != nil {
		return 0, false, fmt.Errorf("update balance: %w", err)
	}
	return newBalance, true, nil
}

// LedgerEntries returns the user's ledger, newest first.
func (s *Store) LedgerEntries(ctx context.Context, userID int64) ([]models.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, amount, reason, idempotency_key, created_at
		FROM ledger_entries WHERE user_id = $1 ORDER BY id DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Reason, &e.IdempotencyKey, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ActivateSubscription debits the fee and extends the expiry in one
// transaction. The row lock on the user serializes competing activations.
func (s *Store) ActivateSubscription(ctx context.Context, userID, fee int64, d time.Duration, now time.Time, idempotencyKey string) (time.Time, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var current *time.Time
	err = tx.QueryRow(ctx, `SELECT subscription_expiry FROM users WHERE id = $1 FOR UPDATE;`, userID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, storage.ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}

	_, applied, err := applyDeltaTx(ctx, tx, userID, -fee, "subscription-fee", idempotencyKey)
	if err != nil {
		return time.Time{}, err
	}
	if !applied {
		// Replayed activation: the expiry was already extended, leave it.
		if err := tx.Commit(ctx); err != nil {
			return time.Time{}, fmt.Errorf("commit: %w", err)
		}
		if current != nil {
			return *current, nil
		}
		return now, nil
	}

	// Extend from the current expiry when a subscription is still running.
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	expiry := base.Add(d)

	if _, err := tx.Exec(ctx, `UPDATE users SET subscription_expiry = $1 WHERE id = $2;`, expiry, userID); err != nil {
		return time.Time{}, fmt.Errorf("set expiry: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, fmt.Errorf("commit: %w", err)
	}
	return expiry, nil
}

// CreateWithdrawal files a pending withdrawal request.
func (s *Store) CreateWithdrawal(ctx context.Context, w models.Withdrawal) (models.Withdrawal, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO withdrawals (id, user_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, amount, status, created_at;`,
		w.ID, w.UserID, w.Amount, models.WithdrawalPending)
	return scanWithdrawal(row)
}

// WithdrawalsByUser returns the user's withdrawal requests, newest first.
func (s *Store) WithdrawalsByUser(ctx context.Context, userID int64) ([]models.Withdrawal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, amount, status, created_at
		FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWithdrawals(rows)
}

// ListWithdrawals returns every withdrawal request, newest first.
func (s *Store) ListWithdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, amount, status, created_at
		FROM withdrawals ORDER BY created_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWithdrawals(rows)
}

// ApproveWithdrawal debits the amount and flips the status in one
// transaction. The ledger idempotency key is derived from the withdrawal
// id, so a double approval cannot debit twice.
func (s *Store) ApproveWithdrawal(ctx context.Context, id string) (models.Withdrawal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Withdrawal{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT id, user_id, amount, status, created_at
		FROM withdrawals WHERE id = $1 FOR UPDATE;`, id)
	w, err := scanWithdrawal(row)
	if err != nil {
		return models.Withdrawal{}, err
	}
	if w.Status == models.WithdrawalApproved {
		return w, tx.Commit(ctx)
	}

	if _, _, err := applyDeltaTx(ctx, tx, w.UserID, -w.Amount, "withdrawal", "withdrawal:"+w.ID); err != nil {
		return models.Withdrawal{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE withdrawals SET status = $1 WHERE id = $2;`, models.WithdrawalApproved, w.ID); err != nil {
		return models.Withdrawal{}, fmt.Errorf("approve withdrawal: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Withdrawal{}, fmt.Errorf("commit: %w", err)
	}
	w.Status = models.WithdrawalApproved
	return w, nil
}

func collectWithdrawals(rows pgx.Rows) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	for rows.Next() {
		var w models.Withdrawal
		if err := rows.Scan(&w.ID, &w.UserID, &w.Amount, &w.Status, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanWithdrawal(row pgx.Row) (models.Withdrawal, error) {
	var w models.Withdrawal
	if err := row.Scan(&w.ID, &w.UserID, &w.Amount, &w.Status, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Withdrawal{}, storage.ErrNotFound
		}
		return models.Withdrawal{}, err
	}
	return w, nil
}
