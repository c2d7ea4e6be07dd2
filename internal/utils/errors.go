package utils

import "errors"

// Common application errors used across services.
var (
	ErrInvalidToken        = errors.New("INVALID_TOKEN")
	ErrInvalidCredentials  = errors.New("INVALID_CREDENTIALS")
	ErrRateLimited         = errors.New("RATE_LIMITED")
	ErrSessionNotFound     = errors.New("SESSION_NOT_FOUND")
	ErrRegistrationExists  = errors.New("REGISTRATION_EXISTS")
	ErrRegistrationMissing = errors.New("REGISTRATION_NOT_FOUND")
	ErrStorageUnavailable  = errors.New("STORAGE_UNAVAILABLE")
	ErrAccountDisabled     = errors.New("ACCOUNT_DISABLED")
)
