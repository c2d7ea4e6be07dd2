package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smktahasus/psb_api/internal/draft"
	"github.com/smktahasus/psb_api/internal/form"
	"github.com/smktahasus/psb_api/internal/models"
	"github.com/smktahasus/psb_api/internal/service"
	"github.com/smktahasus/psb_api/internal/utils"
)

// FormHandler serves the multi-step registration form API.
type FormHandler struct {
	sessions     *form.Manager
	drafts       *draft.Store
	registration *service.RegistrationService
}

func NewFormHandler(sessions *form.Manager, drafts *draft.Store, registration *service.RegistrationService) *FormHandler {
	return &FormHandler{
		sessions:     sessions,
		drafts:       drafts,
		registration: registration,
	}
}

// CreateSession handles POST /v1/form/sessions.
func (h *FormHandler) CreateSession(c *gin.Context) {
	s := h.sessions.Create()
	utils.Success(c, http.StatusCreated, "Sesi formulir dibuat", gin.H{
		"view":      form.Snapshot(s),
		"step":      s.CurrentStep(),
		"has_draft": h.drafts.HasData(c.Request.Context(), s.ID()),
	})
}

// GetSession handles GET /v1/form/sessions/:id.
func (h *FormHandler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	utils.Success(c, http.StatusOK, "OK", gin.H{
		"view": form.Snapshot(s),
		"step": s.CurrentStep(),
		"data": s.Data(),
	})
}

// UpdateFields handles POST /v1/form/sessions/:id/fields. Values are saved to
// the draft store as they arrive; a failed save degrades, not errors.
func (h *FormHandler) UpdateFields(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var values models.Record
	if err := c.ShouldBindJSON(&values); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_BODY", "Isi permintaan tidak valid")
		return
	}
	if err := s.SetFields(values); err != nil {
		utils.Error(c, http.StatusConflict, "ALREADY_SUBMITTED", err.Error())
		return
	}
	saved := s.SaveDraft(c.Request.Context())
	utils.Success(c, http.StatusOK, "Data tersimpan", gin.H{
		"draft_saved": saved,
		"view":        form.Snapshot(s),
	})
}

// Next handles POST /v1/form/sessions/:id/next.
func (h *FormHandler) Next(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	result, err := s.Next()
	if err != nil {
		utils.Error(c, http.StatusConflict, "ALREADY_SUBMITTED", err.Error())
		return
	}
	utils.Success(c, http.StatusOK, "OK", gin.H{
		"validation": result,
		"view":       form.Snapshot(s),
		"step":       s.CurrentStep(),
	})
}

// Previous handles POST /v1/form/sessions/:id/previous.
func (h *FormHandler) Previous(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Previous()
	utils.Success(c, http.StatusOK, "OK", gin.H{
		"view": form.Snapshot(s),
		"step": s.CurrentStep(),
	})
}

// Show handles POST /v1/form/sessions/:id/show.
func (h *FormHandler) Show(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var body struct {
		Step int `json:"step"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_BODY", "Isi permintaan tidak valid")
		return
	}
	if err := s.Show(body.Step); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_STEP", err.Error())
		return
	}
	utils.Success(c, http.StatusOK, "OK", gin.H{
		"view": form.Snapshot(s),
		"step": s.CurrentStep(),
	})
}

// Submit handles POST /v1/form/sessions/:id/submit.
func (h *FormHandler) Submit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	outcome, err := s.Submit(c.Request.Context(), h.registration.Submit)
	if err != nil {
		if errors.Is(err, form.ErrSubmitInFlight) {
			utils.Error(c, http.StatusConflict, "SUBMIT_IN_FLIGHT", err.Error())
			return
		}
		utils.Error(c, http.StatusConflict, "ALREADY_SUBMITTED", err.Error())
		return
	}
	if outcome.FailedStep >= 0 {
		utils.Success(c, http.StatusOK, "Ada isian yang belum valid", gin.H{
			"outcome": outcome,
			"view":    form.Snapshot(s),
			"step":    s.CurrentStep(),
		})
		return
	}
	if !outcome.Result.Success {
		utils.Error(c, http.StatusBadGateway, "SUBMIT_FAILED", outcome.Result.Message)
		return
	}
	utils.Success(c, http.StatusOK, "Pendaftaran berhasil dikirim", gin.H{
		"outcome": outcome,
		"view":    form.Snapshot(s),
	})
}

// SaveDraft handles POST /v1/form/sessions/:id/draft.
func (h *FormHandler) SaveDraft(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if saved := s.SaveDraft(c.Request.Context()); !saved {
		utils.Error(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Penyimpanan draf sedang tidak tersedia")
		return
	}
	utils.Success(c, http.StatusOK, "Draf tersimpan", nil)
}

// RestoreDraft handles POST /v1/form/sessions/:id/draft/restore.
func (h *FormHandler) RestoreDraft(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if !s.RestoreDraft(c.Request.Context()) {
		utils.Error(c, http.StatusNotFound, "DRAFT_NOT_FOUND", "Tidak ada draf tersimpan")
		return
	}
	utils.Success(c, http.StatusOK, "Draf dipulihkan", gin.H{
		"view": form.Snapshot(s),
		"data": s.Data(),
	})
}

// ClearDraft handles DELETE /v1/form/sessions/:id/draft.
func (h *FormHandler) ClearDraft(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.ClearDraft(c.Request.Context())
	utils.Success(c, http.StatusOK, "Draf dihapus", nil)
}

// DraftInfo handles GET /v1/form/sessions/:id/draft.
func (h *FormHandler) DraftInfo(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	info := h.drafts.GetInfo(c.Request.Context(), s.ID())
	utils.Success(c, http.StatusOK, "OK", info)
}

// ExportDraft handles GET /v1/form/sessions/:id/draft/export as a download.
func (h *FormHandler) ExportDraft(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	data := h.drafts.Export(c.Request.Context(), s.ID())
	if data == nil {
		utils.Error(c, http.StatusNotFound, "DRAFT_NOT_FOUND", "Tidak ada draf tersimpan")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+draft.ExportFilename+`"`)
	c.Data(http.StatusOK, "application/json", data)
}

// ImportDraft handles POST /v1/form/sessions/:id/draft/import.
func (h *FormHandler) ImportDraft(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var payload any
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_BODY", "File backup tidak valid")
		return
	}
	if err := h.drafts.Import(c.Request.Context(), s.ID(), payload); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_BACKUP", "File backup tidak valid")
		return
	}
	s.RestoreDraft(c.Request.Context())
	utils.Success(c, http.StatusOK, "Draf diimpor", gin.H{
		"view": form.Snapshot(s),
		"data": s.Data(),
	})
}

func (h *FormHandler) session(c *gin.Context) (*form.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, form.ErrSessionNotFound) {
			utils.Error(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Sesi tidak ditemukan")
		} else {
			utils.Error(c, http.StatusInternalServerError, "INTERNAL", "Terjadi kesalahan")
		}
		return nil, false
	}
	return s, true
}
