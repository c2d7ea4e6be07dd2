// Package validation contains the pure field and step validation rules for
// the registration form. Validation never renders anything: callers receive
// structured results and decide how to present them.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/smktahasus/psb_api/internal/config"
	"github.com/smktahasus/psb_api/internal/models"
)

// User-facing messages. The form is Indonesian-only, as is the school.
const (
	MsgRequired      = "Field ini wajib diisi"
	MsgInvalidEmail  = "Format email tidak valid"
	MsgInvalidNIK    = "NIK harus 16 digit angka"
	MsgInvalidNISN   = "NISN harus 10 digit angka"
	MsgInvalidKK     = "Nomor KK harus 16 digit angka"
	MsgNotANumber    = "Harus berupa angka"
	MsgInvalidDate   = "Format tanggal tidak valid"
	MsgFutureDate    = "Tanggal tidak boleh di masa depan"
	MsgChooseOption  = "Pilih salah satu opsi"
	MsgInvalidInput  = "Input tidak valid"
)

var (
	emailRegex  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsRegex = regexp.MustCompile(`\D`)

	// Fields validated by name rather than declared type.
	nikFields = map[string]bool{
		"nik_siswa": true,
		"nik_ayah":  true,
		"nik_ibu":   true,
	}
	phoneFields = map[string]bool{
		"hp":      true,
		"no_hp":   true,
		"telepon": true,
	}
)

// Validator judges field values against the fixed rule set. It is stateless;
// the only configuration is the phone digit bounds.
type Validator struct {
	phoneMin int
	phoneMax int

	// now is the clock used for future-date checks.
	now func() time.Time
}

// New creates a Validator with the given bounds.
func New(cfg config.ValidationConfig) *Validator {
	return &Validator{
		phoneMin: cfg.PhoneMinDigits,
		phoneMax: cfg.PhoneMaxDigits,
		now:      time.Now,
	}
}

// ValidateField validates a single field value against its descriptor.
// Rules apply in priority order: hidden/disabled fields are always valid,
// then the required gate, then declared-type rules, then name-based rules.
func (v *Validator) ValidateField(field models.FieldDescriptor, raw string) models.FieldResult {
	if field.Type == models.FieldHidden || field.Disabled {
		return valid()
	}

	value := strings.TrimSpace(raw)

	if field.Required && value == "" {
		return invalid(MsgRequired)
	}

	// Nothing further to check for optional empty fields.
	if value == "" {
		return valid()
	}

	switch field.Type {
	case models.FieldEmail:
		return v.validateEmail(value)
	case models.FieldTel:
		return v.validatePhone(value)
	case models.FieldNumber:
		return v.validateNumber(value, field)
	case models.FieldDate:
		return v.validateDate(value)
	case models.FieldRadio, models.FieldSelect:
		return v.validateOption(value, field)
	default:
		return v.validateByName(field, value)
	}
}

// validateByName applies the name-specific rules: national identifiers have
// fixed digit counts, phone-named fields reuse the phone rule, and anything
// with declared options falls back to option membership.
func (v *Validator) validateByName(field models.FieldDescriptor, value string) models.FieldResult {
	name := field.Name

	if nikFields[name] {
		if !isDigits(value, 16) {
			return invalid(MsgInvalidNIK)
		}
		return valid()
	}

	if name == "nisn" {
		if !isDigits(value, 10) {
			return invalid(MsgInvalidNISN)
		}
		return valid()
	}

	if name == "no_kk" {
		if !isDigits(value, 16) {
			return invalid(MsgInvalidKK)
		}
		return valid()
	}

	if phoneFields[name] {
		return v.validatePhone(value)
	}

	if len(field.Options) > 0 {
		return v.validateOption(value, field)
	}

	return valid()
}

func (v *Validator) validateEmail(email string) models.FieldResult {
	if !emailRegex.MatchString(email) {
		return invalid(MsgInvalidEmail)
	}
	return valid()
}

// validatePhone checks the digit count after stripping non-digits.
func (v *Validator) validatePhone(phone string) models.FieldResult {
	cleaned := digitsRegex.ReplaceAllString(phone, "")
	if len(cleaned) < v.phoneMin || len(cleaned) > v.phoneMax {
		return invalid(fmt.Sprintf("Nomor HP harus %d-%d digit", v.phoneMin, v.phoneMax))
	}
	return valid()
}

func (v *Validator) validateNumber(value string, field models.FieldDescriptor) models.FieldResult {
	num, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return invalid(MsgNotANumber)
	}

	if field.Min != nil && num < *field.Min {
		return invalid(fmt.Sprintf("Minimal %s", formatBound(*field.Min)))
	}

	if field.Max != nil && num > *field.Max {
		return invalid(fmt.Sprintf("Maksimal %s", formatBound(*field.Max)))
	}

	return valid()
}

// validateDate requires a parseable date that is not in the future.
func (v *Validator) validateDate(value string) models.FieldResult {
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return invalid(MsgInvalidDate)
	}

	if date.After(v.now()) {
		return invalid(MsgFutureDate)
	}

	return valid()
}

// validateOption requires the value to be one of the declared options. This
// is the server-side analogue of native input constraint validation.
func (v *Validator) validateOption(value string, field models.FieldDescriptor) models.FieldResult {
	if len(field.Options) == 0 {
		return valid()
	}
	for _, opt := range field.Options {
		if value == opt {
			return valid()
		}
	}
	return invalid(MsgInvalidInput)
}

// ValidateStep validates every field of a step against the supplied record
// and collects one error per failing field. A radio group is a single
// descriptor, so an unchecked required group yields exactly one error. The
// step is valid iff no errors were produced.
func (v *Validator) ValidateStep(step models.Step, record models.Record) models.StepResult {
	var errs []models.FieldError

	for _, field := range step.Fields {
		value := record.String(field.Name)

		if field.Type == models.FieldRadio && field.Required && value == "" {
			errs = append(errs, models.FieldError{Field: field.Name, Message: MsgChooseOption})
			continue
		}

		result := v.ValidateField(field, value)
		if !result.Valid {
			errs = append(errs, models.FieldError{Field: field.Name, Message: result.Message})
		}
	}

	return models.StepResult{Valid: len(errs) == 0, Errors: errs}
}

// isDigits reports whether s consists of exactly n ASCII digits.
func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// formatBound renders a numeric bound without trailing zeros (150, 1.5).
func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func valid() models.FieldResult {
	return models.FieldResult{Valid: true}
}

func invalid(msg string) models.FieldResult {
	return models.FieldResult{Valid: false, Message: msg}
}
