package models

// FieldType is the declared input type of a form field. It mirrors the HTML
// input vocabulary the form renders with.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldTel      FieldType = "tel"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldRadio    FieldType = "radio"
	FieldSelect   FieldType = "select"
	FieldTextarea FieldType = "textarea"
	FieldHidden   FieldType = "hidden"
)

// FieldDescriptor describes one form field: its declared type, requiredness
// and optional numeric bounds. A radio group is a single descriptor carrying
// its options, so validating it yields at most one error.
type FieldDescriptor struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Disabled bool      `json:"disabled"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
	Options  []string  `json:"options,omitempty"`
}

// Step is one screen's worth of fields in the multi-step form. Steps are
// 0-indexed internally and shown 1-based in the UI.
type Step struct {
	Index  int               `json:"index"`
	Title  string            `json:"title"`
	Fields []FieldDescriptor `json:"fields"`
}

// FieldResult is the outcome of validating a single field.
type FieldResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// FieldError identifies a failing field within a step. Field doubles as the
// element reference the UI focuses.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// StepResult is the outcome of validating an entire step. Errors is empty
// iff Valid is true; the first entry is the one the UI focuses.
type StepResult struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors"`
}
