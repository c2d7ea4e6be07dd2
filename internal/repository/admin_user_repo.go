package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/smktahasus/psb_api/internal/models"
	"github.com/smktahasus/psb_api/internal/utils"
)

// AdminUserRepository handles data access for dashboard accounts.
type AdminUserRepository struct {
	db *sqlx.DB
}

func NewAdminUserRepository(db *sqlx.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// GetByEmail fetches an active account by email.
func (r *AdminUserRepository) GetByEmail(email string) (*models.AdminUser, error) {
	var user models.AdminUser
	err := r.db.Get(&user, `SELECT * FROM admin_users WHERE email = $1 AND is_active = TRUE`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a dashboard account.
func (r *AdminUserRepository) Create(user *models.AdminUser) error {
	const q = `
        INSERT INTO admin_users (email, password_hash, name, role, is_active, created_at)
        VALUES ($1, $2, $3, $4, TRUE, NOW())
        RETURNING id, created_at`
	return r.db.QueryRow(q, user.Email, user.PasswordHash, user.Name, user.Role).
		Scan(&user.ID, &user.CreatedAt)
}

// UpdateLastLogin stamps a successful login.
func (r *AdminUserRepository) UpdateLastLogin(id int, at time.Time) error {
	_, err := r.db.Exec(`UPDATE admin_users SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}
