package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Record is a flat mapping from form field name to scalar value. Values are
// strings as collected from the form; numeric fields are coerced to numbers
// by the submitter before the remote write.
type Record map[string]any

// IntegerFields are record keys coerced to integers before remote write.
var IntegerFields = map[string]bool{
	"anak_ke":        true,
	"jumlah_saudara": true,
}

// DecimalFields are record keys coerced to decimal numbers before remote write.
var DecimalFields = map[string]bool{
	"tinggi_badan": true,
	"berat_badan":  true,
}

// String returns the record value for key as a string, or "" when absent.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsEmptyValue reports whether a record value counts as absent: nil or a
// blank string. Such values are omitted from the record sent remotely.
func IsEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// Registration is a completed submission persisted in the local fallback
// store. Every submission lands here regardless of the remote outcome; rows
// with Synced=false are re-pushed to the remote table by the sync worker.
type Registration struct {
	ID              int64           `db:"id" json:"id"`
	NomorRegistrasi string          `db:"nomor_registrasi" json:"nomorRegistrasi"`
	Payload         json.RawMessage `db:"payload" json:"payload"`
	Status          string          `db:"status" json:"status"`
	SubmittedVia    string          `db:"submitted_via" json:"submittedVia"`
	Synced          bool            `db:"synced" json:"synced"`
	SyncAttempts    int             `db:"sync_attempts" json:"syncAttempts"`
	SyncError       *string         `db:"sync_error" json:"syncError,omitempty"`
	SyncedAt        *time.Time      `db:"synced_at" json:"syncedAt,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       *time.Time      `db:"updated_at" json:"updatedAt,omitempty"`
}

// Registration status values.
const (
	StatusSubmitted = "submitted"
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// SubmittedVia values.
const (
	ViaRemote   = "remote"
	ViaFallback = "fallback"
)

// DecodePayload unmarshals the stored payload back into a Record.
func (reg *Registration) DecodePayload() (Record, error) {
	var rec Record
	if err := json.Unmarshal(reg.Payload, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}
