package submit

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smktahasus/psb_api/internal/config"
	"github.com/smktahasus/psb_api/internal/models"
)

const registrationPrefix = "PSB"

// TableClient is the slice of the remote table API the submitter needs.
type TableClient interface {
	CountByRegistrationNumber(ctx context.Context, number string) (int, error)
	InsertRecord(ctx context.Context, record models.Record) (map[string]any, error)
}

// Result describes the outcome of a submission attempt sequence.
type Result struct {
	Success            bool   `json:"success"`
	RegistrationNumber string `json:"registration_number,omitempty"`
	Message            string `json:"message,omitempty"`
	Attempts           int    `json:"attempts"`
}

// Submitter pushes prepared registration records to the remote table with
// bounded retries and a unique registration number.
type Submitter struct {
	client TableClient

	maxRetries         int
	retryDelay         time.Duration
	uniquenessAttempts int
	uniquenessWait     time.Duration

	now     func() time.Time
	randInt func(n int) int
}

func NewSubmitter(client TableClient, cfg config.SubmitConfig) *Submitter {
	return &Submitter{
		client:             client,
		maxRetries:         cfg.MaxRetries,
		retryDelay:         cfg.RetryDelay,
		uniquenessAttempts: cfg.UniquenessAttempts,
		uniquenessWait:     cfg.UniquenessWait,
		now:                time.Now,
		randInt:            rand.Intn,
	}
}

// PrepareRecord copies the form data into the shape the remote table expects.
// Numeric fields are coerced, empty values are dropped, and the submission
// metadata is stamped on.
func (s *Submitter) PrepareRecord(data models.Record) models.Record {
	prepared := models.Record{}
	for key, value := range data {
		if models.IsEmptyValue(value) {
			continue
		}
		switch {
		case models.IntegerFields[key]:
			if n, err := strconv.Atoi(fmt.Sprintf("%v", value)); err == nil {
				prepared[key] = n
			}
		case models.DecimalFields[key]:
			if f, err := strconv.ParseFloat(fmt.Sprintf("%v", value), 64); err == nil {
				prepared[key] = f
			}
		default:
			prepared[key] = value
		}
	}
	prepared["status"] = models.StatusSubmitted
	prepared["created_at"] = s.now().UTC().Format(time.RFC3339)
	return prepared
}

// CheckRegistrationExists asks the remote table whether a number is taken.
// A lookup failure counts as taken so the caller moves on to a fresh number.
func (s *Submitter) CheckRegistrationExists(ctx context.Context, number string) bool {
	count, err := s.client.CountByRegistrationNumber(ctx, number)
	if err != nil {
		log.Warn().Err(err).Str("nomor_registrasi", number).Msg("uniqueness check failed, treating number as taken")
		return true
	}
	return count > 0
}

// GenerateUniqueRegistrationNumber produces PSB plus the last 8 digits of the
// millisecond timestamp, verifying against the remote table. After the
// configured attempts it falls back to appending a random 4 digit suffix.
func (s *Submitter) GenerateUniqueRegistrationNumber(ctx context.Context) string {
	var candidate string
	for attempt := 0; attempt < s.uniquenessAttempts; attempt++ {
		candidate = s.timestampNumber()
		if !s.CheckRegistrationExists(ctx, candidate) {
			return candidate
		}
		select {
		case <-ctx.Done():
			attempt = s.uniquenessAttempts
		case <-time.After(s.uniquenessWait):
		}
	}
	fallback := candidate + fmt.Sprintf("%04d", s.randInt(10000))
	log.Warn().Str("nomor_registrasi", fallback).Msg("registration number collisions exhausted attempts, using random suffix")
	return fallback
}

func (s *Submitter) timestampNumber() string {
	ms := s.now().UnixMilli()
	digits := strconv.FormatInt(ms, 10)
	if len(digits) > 8 {
		digits = digits[len(digits)-8:]
	}
	return registrationPrefix + digits
}

// SubmitWithRetry inserts the record, retrying transient failures with a
// linearly growing delay. Schema and permission errors abort immediately.
func (s *Submitter) SubmitWithRetry(ctx context.Context, record models.Record) Result {
	number := record.String("nomor_registrasi")

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		log.Info().Int("attempt", attempt).Str("nomor_registrasi", number).Msg("submitting registration")

		inserted, err := s.client.InsertRecord(ctx, record)
		if err == nil {
			if v, ok := inserted["nomor_registrasi"].(string); ok && v != "" {
				number = v
			}
			log.Info().Int("attempt", attempt).Str("nomor_registrasi", number).Msg("registration submitted")
			return Result{
				Success:            true,
				RegistrationNumber: number,
				Attempts:           attempt,
			}
		}

		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Str("nomor_registrasi", number).Msg("submission attempt failed")

		if IsStructural(err) || IsDuplicate(err) {
			return Result{Success: false, Message: ClassifyError(err), Attempts: attempt}
		}
		if attempt < s.maxRetries {
			select {
			case <-ctx.Done():
				return Result{Success: false, Message: MsgNetwork, Attempts: attempt}
			case <-time.After(s.retryDelay * time.Duration(attempt)):
			}
		}
	}
	return Result{Success: false, Message: ClassifyError(lastErr), Attempts: s.maxRetries}
}
