package security

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Messages safe to surface when an internal operation fails. Raw error text
// never reaches the user.
const (
	MsgAuthError       = "Email atau password salah."
	MsgNetworkError    = "Koneksi bermasalah. Periksa jaringan internet Anda."
	MsgPermissionError = "Tidak memiliki akses. Hubungi administrator."
	MsgGenericError    = "Terjadi kesalahan. Silakan coba lagi."
)

// SafeErrorMessage maps a raw error to a message that leaks nothing about
// the backend. Matching is by substring on the raw text.
func SafeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "invalid login credentials"),
		strings.Contains(text, "invalid password"),
		strings.Contains(text, "user not found"):
		return MsgAuthError
	case strings.Contains(text, "network"),
		strings.Contains(text, "connection refused"),
		strings.Contains(text, "timeout"),
		strings.Contains(text, "no such host"):
		return MsgNetworkError
	case strings.Contains(text, "permission"),
		strings.Contains(text, "not authorized"),
		strings.Contains(text, "42501"):
		return MsgPermissionError
	default:
		return MsgGenericError
	}
}

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// EscapeHTML neutralises markup in user-provided text before it is rendered.
func EscapeHTML(s string) string {
	return htmlReplacer.Replace(s)
}

// MaskNIK shows the first and last four digits of a 16 digit NIK.
func MaskNIK(nik string) string {
	if len(nik) != 16 {
		return nik
	}
	return nik[:4] + "********" + nik[12:]
}

// MaskNISN shows the first two and last four digits of a 10 digit NISN.
func MaskNISN(nisn string) string {
	if len(nisn) != 10 {
		return nisn
	}
	return nisn[:2] + "****" + nisn[6:]
}

// MaskPhone keeps the first four digits of a phone number. Separators are
// stripped before masking. Numbers too short to mask are returned as-is.
func MaskPhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	cleaned := digits.String()
	if len(cleaned) < 10 {
		return phone
	}
	return cleaned[:4] + "****" + cleaned[8:]
}

// AuditEvent records a security-relevant action with a correlating event id.
func AuditEvent(action, actor, detail string) string {
	eventID := uuid.New().String()[:8]
	log.Info().
		Str("event_id", eventID).
		Str("action", action).
		Str("actor", actor).
		Str("detail", detail).
		Msg("audit")
	return eventID
}
