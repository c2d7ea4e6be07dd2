package service

import (
	"bytes"
	"encoding/csv"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smktahasus/psb_api/internal/models"
	"github.com/smktahasus/psb_api/internal/repository"
	"github.com/smktahasus/psb_api/internal/security"
)

// maskedFields maps payload keys to the masking rule applied before any
// dashboard read. Raw identifiers only leave the store in the CSV export,
// which is audited.
var maskedFields = map[string]func(string) string{
	"nik_siswa":  security.MaskNIK,
	"nik_ayah":   security.MaskNIK,
	"nik_ibu":    security.MaskNIK,
	"no_kk":      security.MaskNIK,
	"nisn":       security.MaskNISN,
	"no_hp":      security.MaskPhone,
	"no_hp_ortu": security.MaskPhone,
}

// RegistrationView is a dashboard row with PII masked.
type RegistrationView struct {
	ID              int64         `json:"id"`
	NomorRegistrasi string        `json:"nomorRegistrasi"`
	Status          string        `json:"status"`
	SubmittedVia    string        `json:"submittedVia"`
	Synced          bool          `json:"synced"`
	CreatedAt       time.Time     `json:"createdAt"`
	Data            models.Record `json:"data"`
}

// DashboardService serves the admin views over locally stored registrations.
type DashboardService struct {
	repo *repository.RegistrationRepository
}

func NewDashboardService(repo *repository.RegistrationRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// List returns a masked page of registrations with the total count.
func (s *DashboardService) List(filter repository.ListFilter) ([]RegistrationView, int, error) {
	regs, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, err
	}
	views := make([]RegistrationView, 0, len(regs))
	for i := range regs {
		views = append(views, s.toView(&regs[i]))
	}
	return views, total, nil
}

// Detail returns one masked registration.
func (s *DashboardService) Detail(id int64) (*RegistrationView, error) {
	reg, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	view := s.toView(reg)
	return &view, nil
}

// Stats returns the dashboard counters.
func (s *DashboardService) Stats() (*repository.Stats, error) {
	return s.repo.GetStats()
}

// Delete removes a registration permanently. The action is audited with the
// registration number, never the payload.
func (s *DashboardService) Delete(id int64, actor string) error {
	reg, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	security.AuditEvent("delete_registration", actor, reg.NomorRegistrasi)
	return nil
}

func (s *DashboardService) toView(reg *models.Registration) RegistrationView {
	data, err := reg.DecodePayload()
	if err != nil {
		log.Error().Err(err).Int64("id", reg.ID).Msg("stored payload failed to decode")
		data = models.Record{}
	}
	for field, mask := range maskedFields {
		if v := data.String(field); v != "" {
			data[field] = mask(v)
		}
	}
	return RegistrationView{
		ID:              reg.ID,
		NomorRegistrasi: reg.NomorRegistrasi,
		Status:          reg.Status,
		SubmittedVia:    reg.SubmittedVia,
		Synced:          reg.Synced,
		CreatedAt:       reg.CreatedAt,
		Data:            data,
	}
}

// ExportCSV writes every registration matching the filter as CSV, unmasked.
// Each export is recorded in the audit log with the acting admin.
func (s *DashboardService) ExportCSV(filter repository.ListFilter, actor string) ([]byte, error) {
	filter.Page = 1
	filter.Limit = 100

	var all []models.Registration
	for {
		regs, total, err := s.repo.List(filter)
		if err != nil {
			return nil, err
		}
		all = append(all, regs...)
		if len(all) >= total || len(regs) == 0 {
			break
		}
		filter.Page++
	}

	columns := collectColumns(all)
	header := append([]string{"nomor_registrasi", "status", "submitted_via", "created_at"}, columns...)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for i := range all {
		reg := &all[i]
		data, err := reg.DecodePayload()
		if err != nil {
			data = models.Record{}
		}
		row := []string{
			reg.NomorRegistrasi,
			reg.Status,
			reg.SubmittedVia,
			reg.CreatedAt.Format(time.RFC3339),
		}
		for _, col := range columns {
			row = append(row, data.String(col))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	security.AuditEvent("export_csv", actor, "registrations exported")
	return buf.Bytes(), nil
}

// collectColumns gathers payload keys across rows so the CSV stays rectangular
// even when older rows miss newer fields.
func collectColumns(regs []models.Registration) []string {
	seen := map[string]bool{}
	for i := range regs {
		data, err := regs[i].DecodePayload()
		if err != nil {
			continue
		}
		for k := range data {
			if k == "nomor_registrasi" || k == "status" || k == "created_at" {
				continue
			}
			seen[k] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns
}
