package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePairRoundTrip(t *testing.T) {
	m := NewJWTManager(JWTConfig{Secret: "secret", Expiry: time.Hour, Issuer: "flashprint"})

	pair, err := m.GeneratePair(42, "admin@flashprint.test", 3)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), pair.ExpiresAt, 5*time.Second)

	access, err := m.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), access.UserID)
	assert.Equal(t, TokenTypeAccess, access.TokenType)
	assert.Equal(t, 3, access.TokenVersion)
	assert.Equal(t, pair.AccessJTI, access.ID)

	refresh, err := m.ValidateToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, refresh.TokenType)
	assert.NotEqual(t, access.ID, refresh.ID)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewJWTManager(JWTConfig{Secret: "one"})
	verifier := NewJWTManager(JWTConfig{Secret: "two"})

	token, _, err := issuer.GenerateAccessToken(1, "a@flashprint.test", 0)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenReportsExpiry(t *testing.T) {
	m := NewJWTManager(JWTConfig{Secret: "secret"})

	token, _, _, err := m.generate(1, "a@flashprint.test", TokenTypeAccess, 0, -time.Minute)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
