package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smktahasus/psb_api/internal/utils"
	"github.com/smktahasus/psb_api/pkg/supabase"
)

type fakeVerifier struct {
	tokens map[string]*supabase.User
}

func (f *fakeVerifier) GetUser(_ context.Context, accessToken string) (*supabase.User, error) {
	if u, ok := f.tokens[accessToken]; ok {
		return u, nil
	}
	return nil, errors.New("invalid JWT")
}

func TestVerifyAcceptsLocalToken(t *testing.T) {
	const secret = "test-secret"
	token, err := utils.GenerateJWT(secret, "admin-1", "admin@smktahasus.sch.id", "admin", time.Hour)
	require.NoError(t, err)

	m := NewJWTMiddleware(secret, nil)
	ident, err := m.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", ident.UserID)
	assert.Equal(t, "admin@smktahasus.sch.id", ident.Email)
	assert.Equal(t, "admin", ident.Role)
}

func TestVerifyFallsBackToHostedToken(t *testing.T) {
	remote := &fakeVerifier{tokens: map[string]*supabase.User{
		"hosted-access-token": {ID: "uuid-remote", Email: "panitia@smktahasus.sch.id"},
	}}
	m := NewJWTMiddleware("test-secret", remote)

	ident, err := m.Verify(context.Background(), "hosted-access-token")
	require.NoError(t, err)
	assert.Equal(t, "uuid-remote", ident.UserID)
	assert.Equal(t, "panitia@smktahasus.sch.id", ident.Email)
}

func TestVerifyRejectsUnknownToken(t *testing.T) {
	m := NewJWTMiddleware("test-secret", &fakeVerifier{})
	_, err := m.Verify(context.Background(), "garbage")
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}
