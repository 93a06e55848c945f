package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super_secret_for_tests_0123456789"

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	userID := uuid.New()

	token, err := m.Issue(userID, "test@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Parse(token)
	require.NoError(t, err)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestTokenManager_Expired(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	issuedAt := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issuedAt }

	token, err := m.Issue(uuid.New(), "test@example.com")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, err := NewTokenManager(testSecret, time.Hour).Issue(uuid.New(), "a@b.co")
	require.NoError(t, err)

	_, err = NewTokenManager("another_secret_for_tests_987654321", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsMalformedAndUnsigned(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for _, token := range []string{"", "not.a.token", unsigned} {
		_, err := m.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
	}
}

func TestTokenManager_MissingSecret(t *testing.T) {
	_, err := NewTokenManager("", time.Hour).Issue(uuid.New(), "a@b.co")
	assert.Error(t, err)
}
