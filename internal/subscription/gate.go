// Package subscription decides who is entitled to play and sells access.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/scramblenaija/scramble-be/internal/models"
	"github.com/scramblenaija/scramble-be/internal/storage"
)

// Gate answers eligibility questions and activates paid subscriptions.
type Gate struct {
	users    storage.UserStore
	wallet   storage.WalletStore
	fee      int64
	duration time.Duration
	log      *logrus.Entry
}

// NewGate constructs a gate charging fee minor units for d of access.
func NewGate(users storage.UserStore, wallet storage.WalletStore, fee int64, d time.Duration, log *logrus.Entry) *Gate {
	return &Gate{users: users, wallet: wallet, fee: fee, duration: d, log: log}
}

// Fee returns the configured subscription fee in minor units.
func (g *Gate) Fee() int64 { return g.fee }

// IsEligible reports whether the user's subscription covers the instant at.
func (g *Gate) IsEligible(ctx context.Context, userID int64, at time.Time) (bool, error) {
	user, err := g.users.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.Subscribed(at), nil
}

// Status returns the user's subscription expiry, if any.
func (g *Gate) Status(ctx context.Context, userID int64, at time.Time) (models.User, bool, error) {
	user, err := g.users.FindByID(ctx, userID)
	if err != nil {
		return models.User{}, false, err
	}
	return user, user.Subscribed(at), nil
}

// Activate debits the fee and extends the subscription, all or nothing.
// When the balance cannot cover the fee it fails with ErrInsufficientFunds
// and the user record is untouched.
func (g *Gate) Activate(ctx context.Context, userID int64) (time.Time, error) {
	key := "subscription:" + uuid.NewString()
	expiry, err := g.wallet.ActivateSubscription(ctx, userID, g.fee, g.duration, time.Now(), key)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientFunds) {
			return time.Time{}, err
		}
		return time.Time{}, fmt.Errorf("activate subscription: %w", err)
	}
	g.log.WithFields(logrus.Fields{
		"user_id": userID,
		"fee":     g.fee,
		"expiry":  expiry,
	}).Info("subscription activated")
	return expiry, nil
}

// ErrMissingReference rejects external activations without a payment reference.
var ErrMissingReference = errors.New("payment reference required")

// ActivateExternal handles a payment confirmed by the provider: the fee is
// credited to the wallet as received money, then the usual activation debit
// runs. Both legs are keyed on the provider transaction reference, so a
// redelivered webhook neither credits nor extends twice.
func (g *Gate) ActivateExternal(ctx context.Context, userID int64, txRef string) (time.Time, error) {
	if strings.TrimSpace(txRef) == "" {
		return time.Time{}, ErrMissingReference
	}
	if _, err := g.wallet.ApplyDelta(ctx, userID, g.fee, "payment-received", "flw:"+txRef); err != nil {
		return time.Time{}, fmt.Errorf("record payment %s: %w", txRef, err)
	}
	expiry, err := g.wallet.ActivateSubscription(ctx, userID, g.fee, g.duration, time.Now(), "subscription:flw:"+txRef)
	if err != nil {
		return time.Time{}, fmt.Errorf("activate subscription for payment %s: %w", txRef, err)
	}
	g.log.WithFields(logrus.Fields{
		"user_id": userID,
		"tx_ref":  txRef,
		"expiry":  expiry,
	}).Info("subscription activated from external payment")
	return expiry, nil
}
