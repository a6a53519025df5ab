package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scramblenaija/scramble-be/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "scramble-test", time.Hour)

	token, err := tm.Generate(models.User{ID: 42, Role: models.RoleAdmin})
	require.NoError(t, err)

	identity, err := tm.Parse(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), identity.UserID)
	require.Equal(t, models.RoleAdmin, identity.Role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("secret", "scramble-test", time.Hour)
	other := NewTokenManager("different-secret", "scramble-test", time.Hour)

	token, err := tm.Generate(models.User{ID: 1, Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = other.Parse(token)
	require.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	tm := NewTokenManager("secret", "issuer-a", time.Hour)
	other := NewTokenManager("secret", "issuer-b", time.Hour)

	token, err := tm.Generate(models.User{ID: 1, Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = other.Parse(token)
	require.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager("secret", "scramble-test", -time.Minute)

	token, err := tm.Generate(models.User{ID: 1, Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = tm.Parse(token)
	require.Error(t, err)
}
