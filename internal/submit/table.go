package submit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/smktahasus/psb_api/internal/models"
	"github.com/smktahasus/psb_api/internal/repository"
	"github.com/smktahasus/psb_api/pkg/supabase"
)

// SupabaseTable adapts the hosted REST table to the TableClient interface.
type SupabaseTable struct {
	client *supabase.Client
	table  string
}

func NewSupabaseTable(client *supabase.Client, table string) *SupabaseTable {
	return &SupabaseTable{client: client, table: table}
}

func (t *SupabaseTable) CountByRegistrationNumber(ctx context.Context, number string) (int, error) {
	rows, count, err := t.client.From(t.table).
		Select("nomor_registrasi").
		Eq("nomor_registrasi", number).
		Limit(1).
		Count().
		ExecuteWithCount(ctx)
	if err != nil {
		return 0, err
	}
	// Count is -1 when the Content-Range header is missing or unbounded;
	// fall back to the returned rows so an unknown count never reads as free.
	if count < 0 {
		return len(rows), nil
	}
	return count, nil
}

func (t *SupabaseTable) InsertRecord(ctx context.Context, record models.Record) (map[string]any, error) {
	rows, err := t.client.From(t.table).
		Insert(map[string]any(record)).
		Select().
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{}, nil
	}
	return rows[0], nil
}

// LocalTable backs the TableClient interface with the local database, used
// when the hosted table is not configured.
type LocalTable struct {
	repo *repository.RegistrationRepository
}

func NewLocalTable(repo *repository.RegistrationRepository) *LocalTable {
	return &LocalTable{repo: repo}
}

func (t *LocalTable) CountByRegistrationNumber(_ context.Context, number string) (int, error) {
	exists, err := t.repo.ExistsByNumber(number)
	if err != nil {
		return 0, err
	}
	if exists {
		return 1, nil
	}
	return 0, nil
}

func (t *LocalTable) InsertRecord(_ context.Context, record models.Record) (map[string]any, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	number := record.String("nomor_registrasi")
	now := time.Now()
	reg := &models.Registration{
		NomorRegistrasi: number,
		Payload:         payload,
		Status:          models.StatusSubmitted,
		SubmittedVia:    models.ViaFallback,
		Synced:          true,
		SyncedAt:        &now,
	}
	if err := t.repo.Create(reg); err != nil {
		return nil, err
	}
	return map[string]any{"id": reg.ID, "nomor_registrasi": number}, nil
}
