package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smktahasus/psb_api/internal/models"
	"github.com/smktahasus/psb_api/internal/repository"
	"github.com/smktahasus/psb_api/internal/sse"
	"github.com/smktahasus/psb_api/internal/submit"
	"github.com/smktahasus/psb_api/internal/utils"
)

// MsgSavedLocally tells the applicant the registration was accepted even
// though the hosted table was unreachable.
const MsgSavedLocally = "Pendaftaran diterima dan disimpan. Nomor registrasi Anda tetap berlaku."

// RegistrationService orchestrates a completed form submission: remote push
// with retries, local persistence of record, and dashboard notification.
type RegistrationService struct {
	submitter *submit.Submitter
	repo      *repository.RegistrationRepository
	notifier  sse.RegistrationNotifier

	// remoteEnabled is false when no hosted table is configured; submissions
	// then settle locally and the sync worker has nothing to push.
	remoteEnabled bool
}

func NewRegistrationService(
	submitter *submit.Submitter,
	repo *repository.RegistrationRepository,
	notifier sse.RegistrationNotifier,
	remoteEnabled bool,
) *RegistrationService {
	return &RegistrationService{
		submitter:     submitter,
		repo:          repo,
		notifier:      notifier,
		remoteEnabled: remoteEnabled,
	}
}

// Submit prepares and pushes a completed form. The local row is the record
// of truth: it is written whether or not the remote push succeeded, and the
// sync worker later re-pushes rows the remote never saw.
func (s *RegistrationService) Submit(ctx context.Context, data models.Record) submit.Result {
	prepared := s.submitter.PrepareRecord(data)
	number := s.submitter.GenerateUniqueRegistrationNumber(ctx)
	prepared["nomor_registrasi"] = number

	var remote submit.Result
	if s.remoteEnabled {
		remote = s.submitter.SubmitWithRetry(ctx, prepared)
		if !remote.Success && remote.Message == submit.MsgDuplicate {
			// The number collided remotely despite the pre-check. Refuse
			// rather than mint a row the applicant cannot reference.
			return remote
		}
	}

	reg, err := s.persistLocal(prepared, number, remote)
	if err != nil {
		if errors.Is(err, utils.ErrRegistrationExists) {
			return submit.Result{Success: false, Message: submit.MsgDuplicate, Attempts: remote.Attempts}
		}
		log.Error().Err(err).Str("nomor_registrasi", number).Msg("local persistence failed")
		if !remote.Success {
			return submit.Result{Success: false, Message: submit.MsgGenericSubmit, Attempts: remote.Attempts}
		}
	}
	if reg != nil {
		s.notifier.NotifyRegistrationCreated(reg)
	}

	if s.remoteEnabled && !remote.Success {
		log.Warn().
			Str("nomor_registrasi", number).
			Str("reason", remote.Message).
			Msg("remote submission failed, accepted via local fallback")
		return submit.Result{
			Success:            true,
			RegistrationNumber: number,
			Message:            MsgSavedLocally,
			Attempts:           remote.Attempts,
		}
	}
	return submit.Result{
		Success:            true,
		RegistrationNumber: number,
		Attempts:           max(remote.Attempts, 1),
	}
}

func (s *RegistrationService) persistLocal(prepared models.Record, number string, remote submit.Result) (*models.Registration, error) {
	payload, err := json.Marshal(prepared)
	if err != nil {
		return nil, err
	}
	reg := &models.Registration{
		NomorRegistrasi: number,
		Payload:         payload,
		Status:          models.StatusSubmitted,
		SubmittedVia:    models.ViaFallback,
		Synced:          !s.remoteEnabled,
	}
	if remote.Success {
		now := time.Now()
		reg.SubmittedVia = models.ViaRemote
		reg.Synced = true
		reg.SyncedAt = &now
	} else if s.remoteEnabled && remote.Message != "" {
		reg.SyncError = &remote.Message
	}
	if err := s.repo.Create(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// UpdateStatus moves a registration through the review workflow and notifies
// connected dashboards.
func (s *RegistrationService) UpdateStatus(id int64, status string) (*models.Registration, error) {
	if err := s.repo.UpdateStatus(id, status); err != nil {
		return nil, err
	}
	reg, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyRegistrationStatusChanged(reg)
	return reg, nil
}
