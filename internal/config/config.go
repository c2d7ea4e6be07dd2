package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters: every component
// receives the values it needs at construction time instead of re-deriving
// defaults at each call site.
type Config struct {
	Port      string
	Env       string
	AppName   string
	JWTSecret string

	DB         DatabaseConfig
	Redis      RedisConfig
	Supabase   SupabaseConfig
	Draft      DraftConfig
	Submit     SubmitConfig
	Validation ValidationConfig
	RateLimit  RateLimitConfig
	Worker     WorkerConfig
	Admin      AdminConfig
}

// AdminConfig seeds a fallback dashboard account at startup, so the local
// login path works before anyone provisions accounts by hand. Empty values
// skip the bootstrap.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

// DatabaseConfig contains PostgreSQL connection parameters for the local
// fallback store.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// SupabaseConfig contains the hosted table/auth service credentials and the
// registration table name.
type SupabaseConfig struct {
	URL     string
	AnonKey string
	Table   string
}

// DraftConfig contains the key names under which a session's draft and its
// last-save timestamp are stored.
type DraftConfig struct {
	DataKey string
	TimeKey string
	TTL     time.Duration
}

// SubmitConfig contains retry and identifier-uniqueness parameters for the
// remote submitter.
type SubmitConfig struct {
	MaxRetries         int
	RetryDelay         time.Duration
	UniquenessAttempts int
	UniquenessWait     time.Duration
}

// ValidationConfig contains tunable validation bounds.
type ValidationConfig struct {
	PhoneMinDigits int
	PhoneMaxDigits int
}

// RateLimitConfig contains login rate-limit parameters.
type RateLimitConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	SyncInterval time.Duration
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.AppName = getEnv("APP_NAME", "PSB SMK Tahasus Plus Al Mardliyah")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Supabase
	cfg.Supabase = SupabaseConfig{
		URL:     getEnv("SUPABASE_URL", ""),
		AnonKey: getEnv("SUPABASE_ANON_KEY", ""),
		Table:   getEnv("SUPABASE_TABLE", "registrasi_siswa"),
	}

	// Draft storage keys
	cfg.Draft = DraftConfig{
		DataKey: getEnv("DRAFT_DATA_KEY", "psb_form_data"),
		TimeKey: getEnv("DRAFT_TIME_KEY", "psb_last_save"),
	}

	// Submission retry policy
	cfg.Submit = SubmitConfig{
		MaxRetries:         getEnvInt("SUBMIT_MAX_RETRIES", 3),
		UniquenessAttempts: getEnvInt("SUBMIT_UNIQUENESS_ATTEMPTS", 5),
	}

	// Validation bounds
	cfg.Validation = ValidationConfig{
		PhoneMinDigits: getEnvInt("PHONE_MIN_DIGITS", 10),
		PhoneMaxDigits: getEnvInt("PHONE_MAX_DIGITS", 13),
	}

	// Login rate limiting
	cfg.RateLimit = RateLimitConfig{
		MaxAttempts: getEnvInt("RATE_LIMIT_MAX_ATTEMPTS", 5),
	}

	// Bootstrap admin account
	cfg.Admin = AdminConfig{
		Email:    getEnv("ADMIN_EMAIL", ""),
		Password: getEnv("ADMIN_PASSWORD", ""),
		Name:     getEnv("ADMIN_NAME", "Administrator"),
	}

	// Durations
	var err error
	if cfg.Draft.TTL, err = parseDurationEnv("DRAFT_TTL", "168h"); err != nil {
		return nil, fmt.Errorf("invalid DRAFT_TTL: %w", err)
	}
	if cfg.Submit.RetryDelay, err = parseDurationEnv("SUBMIT_RETRY_DELAY", "1s"); err != nil {
		return nil, fmt.Errorf("invalid SUBMIT_RETRY_DELAY: %w", err)
	}
	if cfg.Submit.UniquenessWait, err = parseDurationEnv("SUBMIT_UNIQUENESS_WAIT", "100ms"); err != nil {
		return nil, fmt.Errorf("invalid SUBMIT_UNIQUENESS_WAIT: %w", err)
	}
	if cfg.RateLimit.Window, err = parseDurationEnv("RATE_LIMIT_WINDOW", "15m"); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}
	if cfg.Worker.SyncInterval, err = parseDurationEnv("SYNC_INTERVAL", "5m"); err != nil {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
	}

	// Required settings checked last so errors name the missing variable.
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for dashboard authentication")
	}

	if cfg.Supabase.URL != "" && !strings.Contains(cfg.Supabase.URL, "supabase.co") {
		return nil, fmt.Errorf("SUPABASE_URL does not look like a Supabase project URL: %s", cfg.Supabase.URL)
	}

	if cfg.Validation.PhoneMinDigits <= 0 || cfg.Validation.PhoneMaxDigits < cfg.Validation.PhoneMinDigits {
		return nil, errors.New("invalid phone digit bounds: PHONE_MIN_DIGITS must be > 0 and <= PHONE_MAX_DIGITS")
	}

	return cfg, nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SupabaseEnabled reports whether the hosted table service is configured.
// When false the service degrades to the local fallback store only.
func (c *Config) SupabaseEnabled() bool {
	return c.Supabase.URL != "" && c.Supabase.AnonKey != ""
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
