package auth_test

import (
	"testing"
	"time"

	"github.com/otzivi/authcore/internal/auth"
	"github.com/otzivi/authcore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "pending-token-test-secret-32bytes!"

func TestPendingToken_RoundTrip(t *testing.T) {
	tm := auth.NewPendingTokenManager(testSecret, 5*time.Minute)

	tokenString, err := tm.Generate("account-1", "/products/42", true)
	require.NoError(t, err)

	claims, err := tm.Validate(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "account-1", claims.AccountID)
	assert.Equal(t, "/products/42", claims.ReturnTo)
	assert.True(t, claims.RememberMe)
}

func TestPendingToken_ExpiredRejected(t *testing.T) {
	tm := auth.NewPendingTokenManager(testSecret, -1*time.Minute)

	tokenString, err := tm.Generate("account-1", "/", false)
	require.NoError(t, err)

	_, err = tm.Validate(tokenString)
	assert.ErrorIs(t, err, models.ErrPendingExpired)
}

func TestPendingToken_TamperedRejected(t *testing.T) {
	tm := auth.NewPendingTokenManager(testSecret, 5*time.Minute)

	tokenString, err := tm.Generate("account-1", "/", false)
	require.NoError(t, err)

	_, err = tm.Validate(tokenString + "x")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestPendingToken_WrongSecretRejected(t *testing.T) {
	tm := auth.NewPendingTokenManager(testSecret, 5*time.Minute)
	other := auth.NewPendingTokenManager("a-different-secret-of-equal-size!", 5*time.Minute)

	tokenString, err := tm.Generate("account-1", "/", false)
	require.NoError(t, err)

	_, err = other.Validate(tokenString)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestPendingToken_GarbageRejected(t *testing.T) {
	tm := auth.NewPendingTokenManager(testSecret, 5*time.Minute)

	_, err := tm.Validate("not-a-token")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
