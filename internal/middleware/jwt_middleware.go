package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smktahasus/psb_api/internal/utils"
	"github.com/smktahasus/psb_api/pkg/supabase"
)

// UserVerifier checks a hosted-auth access token.
type UserVerifier interface {
	GetUser(ctx context.Context, accessToken string) (*supabase.User, error)
}

// JWTMiddleware guards dashboard routes. It accepts locally issued tokens and
// hosted-auth tokens, in that order.
type JWTMiddleware struct {
	secret string
	remote UserVerifier
}

func NewJWTMiddleware(secret string, remote UserVerifier) *JWTMiddleware {
	return &JWTMiddleware{secret: secret, remote: remote}
}

// Identity is the verified caller of a guarded route.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// Verify accepts a locally issued token first, then a hosted-auth access
// token. Both dashboard routes and the SSE stream authenticate through it.
func (m *JWTMiddleware) Verify(ctx context.Context, token string) (Identity, error) {
	if claims, err := utils.ValidateJWT(m.secret, token); err == nil {
		return Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
	}
	if m.remote != nil {
		if user, err := m.remote.GetUser(ctx, token); err == nil {
			return Identity{UserID: user.ID, Email: user.Email}, nil
		}
	}
	return Identity{}, utils.ErrInvalidToken
}

func (m *JWTMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(c, 401, "UNAUTHORIZED", "Missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.Error(c, 401, "UNAUTHORIZED", "Invalid authorization header")
			c.Abort()
			return
		}

		ident, err := m.Verify(c.Request.Context(), parts[1])
		if err != nil {
			utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", ident.UserID)
		c.Set("email", ident.Email)
		c.Set("role", ident.Role)
		c.Next()
	}
}
