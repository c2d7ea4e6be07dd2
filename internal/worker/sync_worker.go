package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smktahasus/psb_api/internal/models"
	"github.com/smktahasus/psb_api/internal/repository"
	"github.com/smktahasus/psb_api/internal/sse"
	"github.com/smktahasus/psb_api/internal/submit"
)

const syncBatchSize = 20

// SyncWorker re-pushes locally stored registrations the remote table never
// saw. Pushes go through the same retry and classification path as live
// submissions; a duplicate remotely means an earlier push landed, so the row
// is marked synced.
type SyncWorker struct {
	repo     *repository.RegistrationRepository
	remote   submit.TableClient
	notifier sse.RegistrationNotifier
	interval time.Duration
}

func NewSyncWorker(
	repo *repository.RegistrationRepository,
	remote submit.TableClient,
	notifier sse.RegistrationNotifier,
	interval time.Duration,
) *SyncWorker {
	return &SyncWorker{
		repo:     repo,
		remote:   remote,
		notifier: notifier,
		interval: interval,
	}
}

// Start begins the periodic sync loop until context is canceled.
func (w *SyncWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting registration sync worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Registration sync worker stopped")
			return
		}
	}
}

func (w *SyncWorker) run(ctx context.Context) {
	pending, err := w.repo.GetPendingSync(syncBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get unsynced registrations")
		return
	}
	if len(pending) == 0 {
		return
	}
	log.Info().Int("count", len(pending)).Msg("Syncing registrations to remote table")

	for i := range pending {
		if ctx.Err() != nil {
			return
		}
		w.syncOne(ctx, &pending[i])
	}
}

func (w *SyncWorker) syncOne(ctx context.Context, reg *models.Registration) {
	record, err := reg.DecodePayload()
	if err != nil {
		log.Error().Err(err).Int64("id", reg.ID).Msg("Unsynced registration has corrupt payload")
		_ = w.repo.MarkSyncFailed(reg.ID, "corrupt payload: "+err.Error())
		return
	}

	_, err = w.remote.InsertRecord(ctx, record)
	if err != nil && !submit.IsDuplicate(err) {
		log.Warn().Err(err).
			Int64("id", reg.ID).
			Str("nomor_registrasi", reg.NomorRegistrasi).
			Int("attempts", reg.SyncAttempts+1).
			Msg("Registration sync failed")
		_ = w.repo.MarkSyncFailed(reg.ID, submit.ClassifyError(err))
		return
	}

	now := time.Now()
	if err := w.repo.MarkSynced(reg.ID, now); err != nil {
		log.Error().Err(err).Int64("id", reg.ID).Msg("Failed to mark registration synced")
		return
	}
	reg.Synced = true
	reg.SyncedAt = &now
	w.notifier.NotifyRegistrationSynced(reg)
	log.Info().Str("nomor_registrasi", reg.NomorRegistrasi).Msg("Registration synced")
}
