package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/smktahasus/psb_api/internal/draft"
	"github.com/smktahasus/psb_api/internal/utils"
	"github.com/smktahasus/psb_api/pkg/supabase"
)

// HealthHandler reports service and dependency health.
type HealthHandler struct {
	db      *sqlx.DB
	drafts  *draft.Store
	remote  *supabase.Client
	table   string
	appName string
	started time.Time
}

func NewHealthHandler(db *sqlx.DB, drafts *draft.Store, remote *supabase.Client, table, appName string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		drafts:  drafts,
		remote:  remote,
		table:   table,
		appName: appName,
		started: time.Now(),
	}
}

// Health handles GET /health. Degraded dependencies are reported but keep the
// endpoint at 200; only a dead database makes the service unhealthy.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	checks := gin.H{}
	healthy := true

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "down"
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if h.drafts.Available(ctx) {
		checks["draft_store"] = "ok"
	} else {
		checks["draft_store"] = "degraded"
	}

	if h.remote == nil {
		checks["supabase"] = "disabled"
	} else if err := h.remote.CheckConnection(ctx, h.table); err != nil {
		checks["supabase"] = "unreachable"
	} else {
		checks["supabase"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	utils.Success(c, status, "OK", gin.H{
		"app":    h.appName,
		"uptime": time.Since(h.started).Round(time.Second).String(),
		"checks": checks,
	})
}
