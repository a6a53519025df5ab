// Package wallet owns balance movement. Every change to a user's balance
// goes through the ledger, which makes it auditable and idempotent.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/scramblenaija/scramble-be/internal/models"
	"github.com/scramblenaija/scramble-be/internal/storage"
)

// ErrBadDelta rejects zero-amount or keyless ledger calls.
var ErrBadDelta = errors.New("ledger delta needs a non-zero amount and an idempotency key")

// Ledger applies signed balance deltas through the wallet store.
type Ledger struct {
	store storage.WalletStore
	log   *logrus.Entry
}

// NewLedger constructs a ledger over the given store.
func NewLedger(store storage.WalletStore, log *logrus.Entry) *Ledger {
	return &Ledger{store: store, log: log}
}

// ApplyDelta moves the user's balance by amount under the idempotency key.
// For a given key the delta lands at most once; replays return the current
// balance. Debits that would go negative fail with ErrInsufficientFunds.
func (l *Ledger) ApplyDelta(ctx context.Context, userID, amount int64, reason, idempotencyKey string) (int64, error) {
	if amount == 0 || idempotencyKey == "" {
		return 0, ErrBadDelta
	}
	newBalance, err := l.store.ApplyDelta(ctx, userID, amount, reason, idempotencyKey)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientFunds) {
			return 0, err
		}
		return 0, fmt.Errorf("apply delta: %w", err)
	}
	l.log.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount,
		"reason":  reason,
		"balance": newBalance,
	}).Info("ledger delta applied")
	return newBalance, nil
}

// Entries returns the user's ledger, newest first.
func (l *Ledger) Entries(ctx context.Context, userID int64) ([]models.LedgerEntry, error) {
	return l.store.LedgerEntries(ctx, userID)
}
