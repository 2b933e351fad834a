package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestOperatorTokenRoundTrip(t *testing.T) {
	secret := "test-secret"

	token, err := GenerateOperatorToken(secret)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateJWT(token, secret)
	require.NoError(t, err)
	assert.True(t, IsOperatorClaims(claims))
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	token, err := GenerateOperatorToken("right-secret")
	require.NoError(t, err)

	_, err = ValidateJWT(token, "wrong-secret")
	assert.Error(t, err)
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	_, err := ValidateJWT("not-a-token", "secret")
	assert.Error(t, err)
}

func TestIsOperatorClaimsRequiresRole(t *testing.T) {
	assert.False(t, IsOperatorClaims(map[string]any{"role": "viewer"}))
	assert.False(t, IsOperatorClaims(map[string]any{}))
}

func TestCheckOperatorPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, CheckOperatorPassword("hunter2", string(hash)))
	assert.Error(t, CheckOperatorPassword("wrong", string(hash)))
	assert.Error(t, CheckOperatorPassword("hunter2", ""))
}

func TestGenerateSecureKeyLength(t *testing.T) {
	key, err := GenerateSecureKey(64)
	require.NoError(t, err)
	assert.Len(t, key, 64)
}
