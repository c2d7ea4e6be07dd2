package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("test-secret", "u1", "admin@sekolah.sch.id", "admin", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT("test-secret", token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "admin@sekolah.sch.id", claims.Email)
	assert.Equal(t, "admin", claims.Role)
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	token, err := GenerateJWT("test-secret", "u1", "admin@sekolah.sch.id", "admin", time.Hour)
	require.NoError(t, err)

	_, err = ValidateJWT("other-secret", token)
	assert.Error(t, err)
}

func TestValidateJWTRejectsExpired(t *testing.T) {
	token, err := GenerateJWT("test-secret", "u1", "admin@sekolah.sch.id", "admin", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateJWT("test-secret", token)
	assert.Error(t, err)
}
