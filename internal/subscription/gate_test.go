package subscription

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

const weekly = 7 * 24 * time.Hour

func newTestGate(t *testing.T, fee, balance int64) (*Gate, *memory.Store, models.User) {
	t.Helper()
	store := memory.NewStore()
	user, err := store.CreateUser(context.Background(), models.User{
		Username: "bola",
		Email:    "bola@example.com",
		Role:     models.RoleStudent,
		Balance:  balance,
	})
	require.NoError(t, err)
	return NewGate(store, store, fee, weekly, logging.Discard()), store, user
}

func TestActivateDebitsAndSetsExpiry(t *testing.T) {
	gate, store, user := newTestGate(t, 1000, 2500)
	ctx := context.Background()

	before := time.Now()
	expiry, err := gate.Activate(ctx, user.ID)
	require.NoError(t, err)
	require.WithinDuration(t, before.Add(weekly), expiry, 5*time.Second)

	got, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1500), got.Balance)
	require.NotNil(t, got.SubscriptionExpiry)

	eligible, err := gate.IsEligible(ctx, user.ID, time.Now())
	require.NoError(t, err)
	require.True(t, eligible)
}

// Activation is all-or-nothing: a fee above the balance changes neither the
// balance nor the expiry.
func TestActivateInsufficientFunds(t *testing.T) {
	gate, store, user := newTestGate(t, 1000, 500)
	ctx := context.Background()

	_, err := gate.Activate(ctx, user.ID)
	require.ErrorIs(t, err, storage.ErrInsufficientFunds)

	got, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(500), got.Balance)
	require.Nil(t, got.SubscriptionExpiry)

	eligible, err := gate.IsEligible(ctx, user.ID, time.Now())
	require.NoError(t, err)
	require.False(t, eligible)
}

func TestActivateExtendsRunningSubscription(t *testing.T) {
	gate, _, user := newTestGate(t, 1000, 5000)
	ctx := context.Background()

	first, err := gate.Activate(ctx, user.ID)
	require.NoError(t, err)

	second, err := gate.Activate(ctx, user.ID)
	require.NoError(t, err)
	require.WithinDuration(t, first.Add(weekly), second, time.Second)
}

func TestEligibilityEndsAtExpiry(t *testing.T) {
	gate, _, user := newTestGate(t, 1000, 1000)
	ctx := context.Background()

	expiry, err := gate.Activate(ctx, user.ID)
	require.NoError(t, err)

	eligible, err := gate.IsEligible(ctx, user.ID, expiry.Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, eligible)

	// Eligibility is strict: at the expiry instant the gate says no.
	eligible, err = gate.IsEligible(ctx, user.ID, expiry)
	require.NoError(t, err)
	require.False(t, eligible)
}

// External payments credit the fee before the activation debit, so the
// wallet balance is a net no-op and a redelivered event changes nothing.
func TestActivateExternalNetsToZero(t *testing.T) {
	gate, store, user := newTestGate(t, 1000, 0)
	ctx := context.Background()

	first, err := gate.ActivateExternal(ctx, user.ID, "tx-abc")
	require.NoError(t, err)

	got, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), got.Balance)

	eligible, err := gate.IsEligible(ctx, user.ID, time.Now())
	require.NoError(t, err)
	require.True(t, eligible)

	entries, err := store.LedgerEntries(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Redelivery with the same reference is a no-op on every axis.
	second, err := gate.ActivateExternal(ctx, user.ID, "tx-abc")
	require.NoError(t, err)
	require.Equal(t, first, second)

	got, err = store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), got.Balance)

	entries, err = store.LedgerEntries(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestActivateExternalRequiresReference(t *testing.T) {
	gate, _, user := newTestGate(t, 1000, 0)
	_, err := gate.ActivateExternal(context.Background(), user.ID, " ")
	require.ErrorIs(t, err, ErrMissingReference)
}

func TestIsEligibleUnknownUser(t *testing.T) {
	gate, _, _ := newTestGate(t, 1000, 0)
	_, err := gate.IsEligible(context.Background(), 999, time.Now())
	require.ErrorIs(t, err, storage.ErrNotFound)
}
