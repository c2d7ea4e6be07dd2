package validation

import (
	"strings"

	"github.com/smktahasus/psb_api/internal/models"
)

// SanitizeKind selects the stripping rule Sanitize applies.
type SanitizeKind string

const (
	SanitizeNumeric      SanitizeKind = "numeric"
	SanitizeAlphanumeric SanitizeKind = "alphanumeric"
	SanitizePhone        SanitizeKind = "phone"
	SanitizeNIK          SanitizeKind = "nik"
	SanitizeNISN         SanitizeKind = "nisn"
	SanitizeText         SanitizeKind = "text"
)

// htmlEscaper escapes the five reserved HTML characters.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// KindFor picks the sanitize rule for a field, by name first and type
// second, mirroring the dispatch order ValidateField uses.
func KindFor(field models.FieldDescriptor) SanitizeKind {
	switch {
	case nikFields[field.Name] || field.Name == "no_kk":
		return SanitizeNIK
	case field.Name == "nisn":
		return SanitizeNISN
	case phoneFields[field.Name] || field.Type == models.FieldTel:
		return SanitizePhone
	default:
		// Number fields stay textual; stripping would eat decimal points.
		return SanitizeText
	}
}

// Sanitize shapes a raw input value for live input handling: digit-only
// kinds strip non-digits and truncate to their maximum length, text is
// HTML-escaped. Sanitize never judges validity; that is ValidateField's job.
func Sanitize(value string, kind SanitizeKind) string {
	if value == "" {
		return ""
	}

	s := strings.TrimSpace(value)

	switch kind {
	case SanitizeNumeric:
		return stripNonDigits(s, 0)
	case SanitizeAlphanumeric:
		return stripNonAlphanumeric(s)
	case SanitizePhone:
		return stripNonDigits(s, 13)
	case SanitizeNIK:
		return stripNonDigits(s, 16)
	case SanitizeNISN:
		return stripNonDigits(s, 10)
	default:
		return htmlEscaper.Replace(s)
	}
}

// stripNonDigits removes non-digit runes and truncates to max digits when
// max > 0.
func stripNonDigits(s string, max int) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if max > 0 && b.Len() == max {
				break
			}
		}
	}
	return b.String()
}

func stripNonAlphanumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
