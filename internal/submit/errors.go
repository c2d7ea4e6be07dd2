package submit

import (
	"strings"

	"github.com/smktahasus/psb_api/pkg/supabase"
)

// Postgres error codes returned by the REST layer.
const (
	CodeDuplicate    = "23505"
	CodeMissingTable = "42P01"
	CodeNoPermission = "42501"
)

// User-facing messages. Everything shown to the registrant is in Indonesian.
const (
	MsgDuplicate     = "Data sudah ada (duplicate)"
	MsgMissingTable  = "Tabel database tidak ditemukan. Hubungi administrator."
	MsgNoPermission  = "Tidak memiliki akses ke database. Hubungi administrator."
	MsgAuthFailed    = "Kunci akses tidak valid. Hubungi administrator."
	MsgNetwork       = "Koneksi bermasalah. Periksa jaringan internet Anda."
	MsgBadCreds      = "Email atau password salah."
	MsgGenericSubmit = "Terjadi kesalahan. Silakan coba lagi atau hubungi administrator."
)

var codeMessages = map[string]string{
	CodeDuplicate:    MsgDuplicate,
	CodeMissingTable: MsgMissingTable,
	CodeNoPermission: MsgNoPermission,
}

// structuralCodes are configuration problems. Retrying cannot fix a missing
// table or a revoked grant, so the retry loop aborts on these.
var structuralCodes = map[string]bool{
	CodeMissingTable: true,
	CodeNoPermission: true,
}

// substringMessages maps fragments of raw provider errors to safe messages.
// Checked in order so the more specific match wins.
var substringMessages = []struct {
	fragment string
	message  string
}{
	{"JWT", MsgAuthFailed},
	{"Invalid API key", MsgAuthFailed},
	{"Invalid login credentials", MsgBadCreds},
	{"Failed to fetch", MsgNetwork},
	{"network", MsgNetwork},
	{"connection refused", MsgNetwork},
	{"no such host", MsgNetwork},
	{"timeout", MsgNetwork},
}

// ClassifyError translates a raw submission error into a message safe to
// show the registrant. Raw provider details never reach the response.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := err.(*supabase.APIError); ok {
		if msg, found := codeMessages[apiErr.Code]; found {
			return msg
		}
	}
	text := err.Error()
	for _, entry := range substringMessages {
		if strings.Contains(text, entry.fragment) {
			return entry.message
		}
	}
	return MsgGenericSubmit
}

// IsStructural reports whether the error is a schema or permission problem
// that no amount of retrying will resolve.
func IsStructural(err error) bool {
	apiErr, ok := err.(*supabase.APIError)
	return ok && structuralCodes[apiErr.Code]
}

// IsDuplicate reports a unique constraint violation.
func IsDuplicate(err error) bool {
	apiErr, ok := err.(*supabase.APIError)
	return ok && apiErr.Code == CodeDuplicate
}
