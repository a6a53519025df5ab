package models

import "time"

// Withdrawal statuses. Approval is terminal and debits the wallet exactly once.
const (
	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
)

// Withdrawal is a user's request to cash out part of their balance.
type Withdrawal struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// LedgerEntry is one immutable, signed balance movement. The idempotency key
// is unique across the ledger, which is what makes retried credits safe.
type LedgerEntry struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Amount         int64     `json:"amount"`
	Reason         string    `json:"reason"`
	IdempotencyKey string    `json:"idempotency_key"`
	CreatedAt      time.Time `json:"created_at"`
}
