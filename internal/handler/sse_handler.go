package handler

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/smktahasus/psb_api/internal/middleware"
	"github.com/smktahasus/psb_api/internal/sse"
	"github.com/smktahasus/psb_api/internal/utils"
)

// TokenVerifier authenticates a raw token the same way the dashboard routes
// do, local tokens first then hosted-auth tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (middleware.Identity, error)
}

// SSEHandler handles Server-Sent Events for dashboard real-time updates.
type SSEHandler struct {
	hub      *sse.Hub
	verifier TokenVerifier
}

func NewSSEHandler(hub *sse.Hub, verifier TokenVerifier) *SSEHandler {
	return &SSEHandler{hub: hub, verifier: verifier}
}

// Stream handles GET /v1/admin/sse?token=<jwt>
// EventSource API cannot set custom headers, so the token is passed via
// query param and verified with the same dual path as the other admin routes.
func (h *SSEHandler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.Error(c, 401, "UNAUTHORIZED", "Missing token query parameter")
		return
	}

	ident, err := h.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	clientID := fmt.Sprintf("admin-%s-%d", ident.UserID, time.Now().UnixNano())

	// SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering

	client := h.hub.Register(clientID)
	defer h.hub.Unregister(clientID)

	c.SSEvent("connected", gin.H{
		"clientId":  clientID,
		"message":   "SSE connection established",
		"timestamp": time.Now().Format(time.RFC3339),
	})
	c.Writer.Flush()

	log.Info().Str("client_id", clientID).Str("email", ident.Email).Msg("Dashboard SSE stream started")

	c.Stream(func(w io.Writer) bool {
		select {
		case data, ok := <-client.Events:
			if !ok {
				return false
			}
			c.SSEvent("registration", string(data))
			return true
		case <-time.After(30 * time.Second):
			c.SSEvent("ping", gin.H{"timestamp": time.Now().Format(time.RFC3339)})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
