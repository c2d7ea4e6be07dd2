package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smktahasus/psb_api/internal/models"
	"github.com/smktahasus/psb_api/internal/repository"
	"github.com/smktahasus/psb_api/internal/service"
	"github.com/smktahasus/psb_api/internal/utils"
)

// DashboardHandler serves the admin views.
type DashboardHandler struct {
	dashboard    *service.DashboardService
	registration *service.RegistrationService
}

func NewDashboardHandler(dashboard *service.DashboardService, registration *service.RegistrationService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, registration: registration}
}

// List handles GET /v1/admin/registrations.
func (h *DashboardHandler) List(c *gin.Context) {
	filter := listFilterFromQuery(c)
	views, total, err := h.dashboard.List(filter)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "INTERNAL", "Gagal memuat data pendaftaran")
		return
	}
	utils.SuccessWithPagination(c, http.StatusOK, "OK", views, filter.Page, filter.Limit, total)
}

// Detail handles GET /v1/admin/registrations/:id.
func (h *DashboardHandler) Detail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_ID", "ID tidak valid")
		return
	}
	view, err := h.dashboard.Detail(id)
	if err != nil {
		if errors.Is(err, utils.ErrRegistrationMissing) {
			utils.Error(c, http.StatusNotFound, "NOT_FOUND", "Pendaftaran tidak ditemukan")
			return
		}
		utils.Error(c, http.StatusInternalServerError, "INTERNAL", "Gagal memuat pendaftaran")
		return
	}
	utils.Success(c, http.StatusOK, "OK", view)
}

// UpdateStatus handles PATCH /v1/admin/registrations/:id/status.
func (h *DashboardHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_ID", "ID tidak valid")
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || !validStatus(body.Status) {
		utils.Error(c, http.StatusBadRequest, "INVALID_STATUS", "Status tidak dikenal")
		return
	}
	reg, err := h.registration.UpdateStatus(id, body.Status)
	if err != nil {
		if errors.Is(err, utils.ErrRegistrationMissing) {
			utils.Error(c, http.StatusNotFound, "NOT_FOUND", "Pendaftaran tidak ditemukan")
			return
		}
		utils.Error(c, http.StatusInternalServerError, "INTERNAL", "Gagal memperbarui status")
		return
	}
	utils.Success(c, http.StatusOK, "Status diperbarui", reg)
}

// Delete handles DELETE /v1/admin/registrations/:id.
func (h *DashboardHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_ID", "ID tidak valid")
		return
	}
	if err := h.dashboard.Delete(id, c.GetString("email")); err != nil {
		if errors.Is(err, utils.ErrRegistrationMissing) {
			utils.Error(c, http.StatusNotFound, "NOT_FOUND", "Pendaftaran tidak ditemukan")
			return
		}
		utils.Error(c, http.StatusInternalServerError, "INTERNAL", "Gagal menghapus pendaftaran")
		return
	}
	utils.Success(c, http.StatusOK, "Pendaftaran dihapus", nil)
}

// Stats handles GET /v1/admin/stats.
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.dashboard.Stats()
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "INTERNAL", "Gagal memuat statistik")
		return
	}
	utils.Success(c, http.StatusOK, "OK", stats)
}

// Export handles GET /v1/admin/registrations/export as a CSV download.
func (h *DashboardHandler) Export(c *gin.Context) {
	filter := listFilterFromQuery(c)
	data, err := h.dashboard.ExportCSV(filter, c.GetString("email"))
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "INTERNAL", "Gagal mengekspor data")
		return
	}
	filename := "pendaftaran-" + time.Now().Format("2006-01-02") + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}

func listFilterFromQuery(c *gin.Context) repository.ListFilter {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	return repository.ListFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	}
}

func validStatus(s string) bool {
	switch s {
	case models.StatusSubmitted, models.StatusPending, models.StatusApproved, models.StatusRejected:
		return true
	}
	return false
}
