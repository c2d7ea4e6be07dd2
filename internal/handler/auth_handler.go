package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smktahasus/psb_api/internal/service"
	"github.com/smktahasus/psb_api/internal/utils"
)

// AuthHandler serves dashboard login and logout.
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_BODY", "Email dan password wajib diisi")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), strings.ToLower(strings.TrimSpace(body.Email)), body.Password)
	if err != nil {
		if errors.Is(err, utils.ErrRateLimited) {
			utils.Error(c, http.StatusTooManyRequests, "RATE_LIMITED", userMessage(err))
			return
		}
		utils.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", userMessage(err))
		return
	}
	utils.Success(c, http.StatusOK, "Login berhasil", result)
}

// Logout handles POST /v1/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 {
		h.auth.Logout(c.Request.Context(), parts[1])
	}
	utils.Success(c, http.StatusOK, "Logout berhasil", nil)
}

// Session handles GET /v1/auth/session. It runs behind the JWT middleware,
// which puts the verified identity on the context.
func (h *AuthHandler) Session(c *gin.Context) {
	utils.Success(c, http.StatusOK, "OK", gin.H{
		"user_id": c.GetString("user_id"),
		"email":   c.GetString("email"),
		"role":    c.GetString("role"),
	})
}

// userMessage strips the sentinel prefix, leaving the localized text.
func userMessage(err error) string {
	msg := err.Error()
	if _, rest, found := strings.Cut(msg, ": "); found {
		return rest
	}
	return msg
}
