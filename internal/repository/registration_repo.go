package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/smktahasus/psb_api/internal/models"
	"github.com/smktahasus/psb_api/internal/utils"
)

// RegistrationRepository handles data access for locally persisted
// registrations.
type RegistrationRepository struct {
	db *sqlx.DB
}

func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create inserts a registration row. A duplicate registration number maps to
// ErrRegistrationExists.
func (r *RegistrationRepository) Create(reg *models.Registration) error {
	const q = `
        INSERT INTO registrations (
            nomor_registrasi, payload, status, submitted_via,
            synced, sync_attempts, sync_error, synced_at, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
        RETURNING id, created_at`

	err := r.db.QueryRow(q,
		reg.NomorRegistrasi, []byte(reg.Payload), reg.Status, reg.SubmittedVia,
		reg.Synced, reg.SyncAttempts, reg.SyncError, reg.SyncedAt,
	).Scan(&reg.ID, &reg.CreatedAt)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return utils.ErrRegistrationExists
	}
	return err
}

// GetByID fetches a single registration.
func (r *RegistrationRepository) GetByID(id int64) (*models.Registration, error) {
	var reg models.Registration
	err := r.db.Get(&reg, `SELECT * FROM registrations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrRegistrationMissing
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// GetByNumber fetches a registration by its registration number.
func (r *RegistrationRepository) GetByNumber(number string) (*models.Registration, error) {
	var reg models.Registration
	err := r.db.Get(&reg, `SELECT * FROM registrations WHERE nomor_registrasi = $1`, number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrRegistrationMissing
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// ExistsByNumber reports whether a registration number is already taken
// locally.
func (r *RegistrationRepository) ExistsByNumber(number string) (bool, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM registrations WHERE nomor_registrasi = $1`, number)
	return count > 0, err
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// List returns a page of registrations, newest first, with the total count
// for pagination.
func (r *RegistrationRepository) List(filter ListFilter) ([]models.Registration, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}

	where := []string{"1=1"}
	args := []interface{}{}
	idx := 1
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, filter.Status)
		idx++
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(nomor_registrasi ILIKE $%d OR payload->>'nama_lengkap' ILIKE $%d)", idx, idx))
		args = append(args, "%"+filter.Search+"%")
		idx++
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.Get(&total, `SELECT COUNT(*) FROM registrations WHERE `+cond, args...); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf(`SELECT * FROM registrations WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		cond, idx, idx+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	regs := []models.Registration{}
	if err := r.db.Select(&regs, q, args...); err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

// UpdateStatus moves a registration through the review workflow.
func (r *RegistrationRepository) UpdateStatus(id int64, status string) error {
	res, err := r.db.Exec(`UPDATE registrations SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrRegistrationMissing
	}
	return nil
}

// GetPendingSync returns rows not yet pushed to the remote table, oldest
// first, capped so one worker tick stays bounded.
func (r *RegistrationRepository) GetPendingSync(limit int) ([]models.Registration, error) {
	if limit <= 0 {
		limit = 20
	}
	regs := []models.Registration{}
	err := r.db.Select(&regs, `
        SELECT * FROM registrations
        WHERE synced = FALSE
        ORDER BY created_at ASC
        LIMIT $1`, limit)
	return regs, err
}

// MarkSynced records a successful remote push.
func (r *RegistrationRepository) MarkSynced(id int64, at time.Time) error {
	_, err := r.db.Exec(`
        UPDATE registrations
        SET synced = TRUE, sync_error = NULL, synced_at = $2, updated_at = NOW()
        WHERE id = $1`, id, at)
	return err
}

// MarkSyncFailed bumps the attempt counter and stores the last error.
func (r *RegistrationRepository) MarkSyncFailed(id int64, syncErr string) error {
	_, err := r.db.Exec(`
        UPDATE registrations
        SET sync_attempts = sync_attempts + 1, sync_error = $2, updated_at = NOW()
        WHERE id = $1`, id, syncErr)
	return err
}

// Stats aggregates registration counts for the dashboard.
type Stats struct {
	Total    int `db:"total" json:"total"`
	Pending  int `db:"pending" json:"pending"`
	Approved int `db:"approved" json:"approved"`
	Rejected int `db:"rejected" json:"rejected"`
	Unsynced int `db:"unsynced" json:"unsynced"`
}

// GetStats computes the dashboard counters in one query.
func (r *RegistrationRepository) GetStats() (*Stats, error) {
	var stats Stats
	err := r.db.Get(&stats, `
        SELECT
            COUNT(*) AS total,
            COUNT(*) FILTER (WHERE status IN ('submitted', 'pending')) AS pending,
            COUNT(*) FILTER (WHERE status = 'approved') AS approved,
            COUNT(*) FILTER (WHERE status = 'rejected') AS rejected,
            COUNT(*) FILTER (WHERE synced = FALSE) AS unsynced
        FROM registrations`)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Delete removes a registration row.
func (r *RegistrationRepository) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrRegistrationMissing
	}
	return nil
}
