// internal/auth/auth_test.go
package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewIssuer("secret", "bidblitz.com")

	token, err := issuer.CreateToken(Claims{
		Username: "Virat Kohli",
		RoomID:   "ab34cd56",
		Role:     "leader",
	})
	require.NoError(t, err)

	claims, err := issuer.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "Virat Kohli", claims.Username)
	assert.Equal(t, "ab34cd56", claims.RoomID)
	assert.Equal(t, "leader", claims.Role)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewIssuer("secret-a", "bidblitz.com").CreateToken(Claims{
		Username: "X", RoomID: "r", Role: "player",
	})
	require.NoError(t, err)

	_, err = NewIssuer("secret-b", "bidblitz.com").VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	token, err := NewIssuer("secret", "elsewhere.com").CreateToken(Claims{
		Username: "X", RoomID: "r", Role: "player",
	})
	require.NoError(t, err)

	_, err = NewIssuer("secret", "bidblitz.com").VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyRejectsIncompleteClaims(t *testing.T) {
	issuer := NewIssuer("secret", "bidblitz.com")
	token, err := issuer.CreateToken(Claims{Username: "X", RoomID: "r"})
	require.NoError(t, err)

	_, err = issuer.VerifyToken(token)
	assert.Error(t, err, "empty role must be rejected")
}
