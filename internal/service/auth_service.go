package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/smktahasus/psb_api/internal/config"
	"github.com/smktahasus/psb_api/internal/models"
	"github.com/smktahasus/psb_api/internal/security"
	"github.com/smktahasus/psb_api/internal/utils"
	"github.com/smktahasus/psb_api/pkg/supabase"
)

const tokenTTL = 24 * time.Hour

// dummyHash is compared against when the account does not exist, keeping the
// timing of unknown-user and wrong-password failures alike.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// AuthClient is the slice of the hosted auth API the service uses.
type AuthClient interface {
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// LoginResult is what a successful login hands back to the dashboard.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role,omitempty"`
	Provider  string    `json:"provider"`
}

// Login providers.
const (
	ProviderSupabase = "supabase"
	ProviderLocal    = "local"
)

// AdminStore is the slice of the admin-user repository the service uses.
type AdminStore interface {
	GetByEmail(email string) (*models.AdminUser, error)
	Create(user *models.AdminUser) error
	UpdateLastLogin(id int, at time.Time) error
}

// AuthService authenticates dashboard users against the hosted auth service,
// falling back to local bcrypt accounts when it is unreachable or
// unconfigured. Attempts are rate limited per email.
type AuthService struct {
	remote  AuthClient
	users   AdminStore
	limiter *security.RateLimiter

	jwtSecret string
}

func NewAuthService(remote AuthClient, users AdminStore, limiter *security.RateLimiter, jwtSecret string) *AuthService {
	return &AuthService{
		remote:    remote,
		users:     users,
		limiter:   limiter,
		jwtSecret: jwtSecret,
	}
}

// Login authenticates and returns an access token. The error message is
// always safe to show the user.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if !s.limiter.Allow(email) {
		security.AuditEvent("login_rate_limited", email, "")
		return nil, fmt.Errorf("%w: %s", utils.ErrRateLimited, s.limiter.LimitMessage(email))
	}

	if s.remote != nil {
		result, err := s.loginRemote(ctx, email, password)
		if err == nil {
			s.limiter.Reset(email)
			security.AuditEvent("login_success", email, ProviderSupabase)
			return result, nil
		}
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			// The auth service answered and refused. Do not fall back, or a
			// disabled hosted account could still log in locally.
			security.AuditEvent("login_failed", email, ProviderSupabase)
			return nil, fmt.Errorf("%w: %s", utils.ErrInvalidCredentials, security.SafeErrorMessage(err))
		}
		log.Warn().Err(err).Msg("hosted auth unreachable, trying local accounts")
	}

	result, err := s.loginLocal(email, password)
	if err != nil {
		security.AuditEvent("login_failed", email, ProviderLocal)
		return nil, fmt.Errorf("%w: %s", utils.ErrInvalidCredentials, security.MsgAuthError)
	}
	s.limiter.Reset(email)
	security.AuditEvent("login_success", email, ProviderLocal)
	return result, nil
}

func (s *AuthService) loginRemote(ctx context.Context, email, password string) (*LoginResult, error) {
	session, err := s.remote.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     session.AccessToken,
		ExpiresAt: session.ExpiresAt(time.Now()),
		Email:     session.User.Email,
		Provider:  ProviderSupabase,
	}, nil
}

func (s *AuthService) loginLocal(email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		// Burn a comparison anyway so a missing account costs the same as a
		// wrong password.
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return nil, utils.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, utils.ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(s.jwtSecret, fmt.Sprintf("%d", user.ID), user.Email, user.Role, tokenTTL)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateLastLogin(user.ID, time.Now()); err != nil {
		log.Warn().Err(err).Str("email", email).Msg("failed to stamp last login")
	}
	return &LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(tokenTTL),
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Provider:  ProviderLocal,
	}, nil
}

// Logout invalidates a hosted session. Local JWTs simply expire; the call
// still audits the event.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if s.remote != nil {
		if err := s.remote.SignOut(ctx, token); err != nil {
			log.Debug().Err(err).Msg("hosted sign-out failed")
		}
	}
	security.AuditEvent("logout", "", "")
}

// EnsureBootstrapAdmin provisions the configured admin account if it does
// not exist yet. Without it a fresh deployment has no local fallback login.
func (s *AuthService) EnsureBootstrapAdmin(cfg config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		log.Debug().Msg("no bootstrap admin configured")
		return nil
	}
	if _, err := s.users.GetByEmail(cfg.Email); err == nil {
		return nil
	} else if !errors.Is(err, utils.ErrInvalidCredentials) {
		return err
	}
	if _, err := s.CreateLocalAdmin(cfg.Email, cfg.Password, cfg.Name, "admin"); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	log.Info().Str("email", cfg.Email).Msg("bootstrap admin account created")
	return nil
}

// CreateLocalAdmin provisions a fallback dashboard account.
func (s *AuthService) CreateLocalAdmin(email, password, name, role string) (*models.AdminUser, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.AdminUser{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}
	security.AuditEvent("admin_created", email, role)
	return user, nil
}
