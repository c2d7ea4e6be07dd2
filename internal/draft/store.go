// Package draft persists in-progress registration records between visits.
// Each form session owns exactly one draft, stored under two keys: the
// serialized record and an ISO-8601 timestamp of the last save.
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smktahasus/psb_api/internal/cache"
	"github.com/smktahasus/psb_api/internal/config"
	"github.com/smktahasus/psb_api/internal/models"
)

// ExportFilename is the download name for draft snapshots.
const ExportFilename = "psb-data-backup.json"

// Store reads and writes drafts in the shared key-value space. Reads treat
// every stored value as possibly foreign: malformed data counts as "no
// draft" and is never propagated as an error.
type Store struct {
	kv      cache.KV
	dataKey string
	timeKey string
	ttl     time.Duration
}

// NewStore creates a draft store using the configured key names.
func NewStore(kv cache.KV, cfg config.DraftConfig) *Store {
	return &Store{
		kv:      kv,
		dataKey: cfg.DataKey,
		timeKey: cfg.TimeKey,
		ttl:     cfg.TTL,
	}
}

func (s *Store) dataKeyFor(session string) string {
	return fmt.Sprintf("%s:%s", s.dataKey, session)
}

func (s *Store) timeKeyFor(session string) string {
	return fmt.Sprintf("%s:%s", s.timeKey, session)
}

// Save serializes the record and writes it plus a timestamp. Storage
// failures are reported to the caller as false and logged as a degraded-mode
// warning; they never surface as errors.
func (s *Store) Save(ctx context.Context, session string, record models.Record) bool {
	data, err := json.Marshal(record)
	if err != nil {
		log.Error().Err(err).Str("session", session).Msg("Failed to serialize draft")
		return false
	}

	if err := s.kv.Set(ctx, s.dataKeyFor(session), string(data), s.ttl); err != nil {
		log.Warn().Err(err).Str("session", session).Msg("Draft storage unavailable - continuing without persistence")
		return false
	}

	if err := s.kv.Set(ctx, s.timeKeyFor(session), time.Now().Format(time.RFC3339), s.ttl); err != nil {
		log.Warn().Err(err).Str("session", session).Msg("Failed to record draft save time")
	}

	log.Debug().Str("session", session).Int("fields", len(record)).Msg("Draft saved")
	return true
}

// Load returns the saved record, or nil when no draft exists or the stored
// value cannot be parsed.
func (s *Store) Load(ctx context.Context, session string) models.Record {
	data, err := s.kv.Get(ctx, s.dataKeyFor(session))
	if err != nil {
		if err != cache.ErrNotFound {
			log.Warn().Err(err).Str("session", session).Msg("Failed to read draft")
		}
		return nil
	}

	var record models.Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		// A corrupt or foreign value is treated as absence.
		log.Warn().Err(err).Str("session", session).Msg("Stored draft is malformed, ignoring")
		return nil
	}

	return record
}

// Clear removes the draft and its timestamp.
func (s *Store) Clear(ctx context.Context, session string) bool {
	if err := s.kv.Delete(ctx, s.dataKeyFor(session), s.timeKeyFor(session)); err != nil {
		log.Warn().Err(err).Str("session", session).Msg("Failed to clear draft")
		return false
	}
	return true
}

// HasData reports whether a draft exists for the session.
func (s *Store) HasData(ctx context.Context, session string) bool {
	ok, err := s.kv.Exists(ctx, s.dataKeyFor(session))
	if err != nil {
		return false
	}
	return ok
}

// LastSaveTime returns the timestamp of the last save, or nil when unknown.
func (s *Store) LastSaveTime(ctx context.Context, session string) *time.Time {
	raw, err := s.kv.Get(ctx, s.timeKeyFor(session))
	if err != nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

// Size returns the stored draft size in bytes.
func (s *Store) Size(ctx context.Context, session string) int {
	data, err := s.kv.Get(ctx, s.dataKeyFor(session))
	if err != nil {
		return 0
	}
	return len(data)
}

// SizeFormatted converts the draft byte count to Bytes/KB/MB with two-decimal
// rounding at the largest unit with a count of at least one.
func (s *Store) SizeFormatted(ctx context.Context, session string) string {
	return FormatSize(s.Size(ctx, session))
}

// FormatSize renders a byte count as a human-readable string.
func FormatSize(bytes int) string {
	if bytes == 0 {
		return "0 Bytes"
	}

	const k = 1024
	units := []string{"Bytes", "KB", "MB"}

	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(k)))
	if i >= len(units) {
		i = len(units) - 1
	}

	value := math.Round(float64(bytes)/math.Pow(k, float64(i))*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + units[i]
}

// Export returns the current draft as a portable snapshot, pretty-printed
// for human inspection. Returns nil when there is nothing to export.
func (s *Store) Export(ctx context.Context, session string) []byte {
	record := s.Load(ctx, session)
	if record == nil {
		return nil
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		log.Error().Err(err).Str("session", session).Msg("Failed to export draft")
		return nil
	}
	return data
}

// Import accepts an external snapshot and stores it exactly as a freshly
// saved draft. Anything that is not a keyed mapping is rejected.
func (s *Store) Import(ctx context.Context, session string, data any) error {
	record, ok := data.(map[string]any)
	if !ok || record == nil {
		return fmt.Errorf("draft import: expected a keyed mapping, got %T", data)
	}

	if !s.Save(ctx, session, models.Record(record)) {
		return fmt.Errorf("draft import: storage unavailable")
	}
	return nil
}

// Available probes the backing store with a throwaway key.
func (s *Store) Available(ctx context.Context) bool {
	const probe = "__draft_probe__"
	if err := s.kv.Set(ctx, probe, "1", time.Minute); err != nil {
		return false
	}
	_ = s.kv.Delete(ctx, probe)
	return true
}

// Info summarizes the state of a session's draft for diagnostics.
type Info struct {
	Available     bool       `json:"available"`
	HasData       bool       `json:"hasData"`
	Size          int        `json:"size"`
	SizeFormatted string     `json:"sizeFormatted"`
	LastSave      *time.Time `json:"lastSave,omitempty"`
}

// GetInfo collects diagnostics for a session.
func (s *Store) GetInfo(ctx context.Context, session string) Info {
	size := s.Size(ctx, session)
	return Info{
		Available:     s.Available(ctx),
		HasData:       s.HasData(ctx, session),
		Size:          size,
		SizeFormatted: FormatSize(size),
		LastSave:      s.LastSaveTime(ctx, session),
	}
}
