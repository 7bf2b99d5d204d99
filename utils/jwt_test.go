package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccessToken(t *testing.T) {
	token, err := SignTestToken([]byte("secret"), "u-1", "cashier", "pizza-co", time.Hour)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "cashier", claims.Role)
	assert.Equal(t, "pizza-co", claims.TenantSlug)
}

func TestTokenUsable(t *testing.T) {
	valid, err := SignTestToken([]byte("secret"), "u-1", "cashier", "pizza-co", time.Hour)
	require.NoError(t, err)
	expired, err := SignTestToken([]byte("secret"), "u-1", "cashier", "pizza-co", -time.Minute)
	require.NoError(t, err)

	assert.NoError(t, TokenUsable(valid, time.Now()))
	assert.ErrorIs(t, TokenUsable(expired, time.Now()), ErrExpiredToken)
	assert.ErrorIs(t, TokenUsable("", time.Now()), ErrMissingToken)
	assert.Error(t, TokenUsable("not-a-jwt", time.Now()))
}
