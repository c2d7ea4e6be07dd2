package form

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/smktahasus/psb_api/internal/draft"
	"github.com/smktahasus/psb_api/internal/models"
	"github.com/smktahasus/psb_api/internal/submit"
	"github.com/smktahasus/psb_api/internal/validation"
)

var (
	ErrSessionNotFound = errors.New("session tidak ditemukan")
	ErrAlreadySubmit   = errors.New("formulir sudah dikirim")
	ErrSubmitInFlight  = errors.New("pengiriman sedang diproses")
	ErrStepOutOfRange  = errors.New("langkah tidak valid")
)

// SubmitFunc pushes a completed form to the registration backend.
type SubmitFunc func(ctx context.Context, data models.Record) submit.Result

// Manager owns the live form sessions. Sessions are in-memory; the draft
// store is what survives a restart.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	steps     []models.Step
	fields    map[string]models.FieldDescriptor
	validator *validation.Validator
	drafts    *draft.Store
}

func NewManager(steps []models.Step, validator *validation.Validator, drafts *draft.Store) *Manager {
	fields := make(map[string]models.FieldDescriptor)
	for _, step := range steps {
		for _, f := range step.Fields {
			fields[f.Name] = f
		}
	}
	return &Manager{
		sessions:  make(map[string]*Session),
		steps:     steps,
		fields:    fields,
		validator: validator,
		drafts:    drafts,
	}
}

// Create starts a fresh session.
func (m *Manager) Create() *Session {
	s := &Session{
		id:        uuid.New().String(),
		steps:     m.steps,
		fields:    m.fields,
		validator: m.validator,
		drafts:    m.drafts,
		data:      models.Record{},
	}
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	log.Debug().Str("session_id", s.id[:8]).Msg("form session created")
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove drops a session from memory. Its draft, if any, is untouched.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Session is one applicant's walk through the multi-step form. Forward
// movement is gated on the current step validating; backward movement is
// free. Once submitted a session is terminal.
type Session struct {
	mu sync.Mutex

	id        string
	steps     []models.Step
	fields    map[string]models.FieldDescriptor
	validator *validation.Validator
	drafts    *draft.Store

	data       models.Record
	current    int
	furthest   int
	dirty      bool
	submitting bool
	submitted  bool
	number     string
	lastSaved  *time.Time
}

func (s *Session) ID() string { return s.id }

func (s *Session) StepCount() int { return len(s.steps) }

func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) CurrentStep() models.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps[s.current]
}

// Data returns a snapshot of the entered values.
func (s *Session) Data() models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// RegistrationNumber is set once the form has been submitted successfully.
func (s *Session) RegistrationNumber() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.number
}

func (s *Session) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Progress is the percentage of the form reached, counting the current step
// as in progress.
func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return progressPercent(s.current, len(s.steps))
}

func progressPercent(index, total int) int {
	return int(math.Round(float64(index+1) / float64(total) * 100))
}

// SetField records one value. Returns ErrAlreadySubmit on a terminal session.
func (s *Session) SetField(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return ErrAlreadySubmit
	}
	s.data[name] = s.shape(name, value)
	s.dirty = true
	return nil
}

// SetFields records a batch of values in one lock acquisition.
func (s *Session) SetFields(values models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return ErrAlreadySubmit
	}
	for k, v := range values {
		s.data[k] = s.shape(k, v)
	}
	s.dirty = true
	return nil
}

// shape sanitizes incoming string values per the field's rule. Non-string
// and unknown-field values pass through.
func (s *Session) shape(name string, value any) any {
	str, ok := value.(string)
	if !ok {
		return value
	}
	field, ok := s.fields[name]
	if !ok {
		return value
	}
	return validation.Sanitize(str, validation.KindFor(field))
}

// Next validates the current step and advances past it when clean. The
// returned result carries the field errors when it does not.
func (s *Session) Next() (models.StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return models.StepResult{}, ErrAlreadySubmit
	}
	result := s.validator.ValidateStep(s.steps[s.current], s.data)
	if !result.Valid {
		return result, nil
	}
	if s.current < len(s.steps)-1 {
		s.current++
		if s.current > s.furthest {
			s.furthest = s.current
		}
	}
	return result, nil
}

// Previous steps back without validating. Returns false at the first step.
func (s *Session) Previous() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted || s.current == 0 {
		return false
	}
	s.current--
	return true
}

// Show jumps to a step already reached. Jumping ahead of the furthest
// validated step is refused.
func (s *Session) Show(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return ErrAlreadySubmit
	}
	if index < 0 || index >= len(s.steps) || index > s.furthest {
		return ErrStepOutOfRange
	}
	s.current = index
	return nil
}

// SaveDraft persists the current data. Reports false in degraded mode.
func (s *Session) SaveDraft(ctx context.Context) bool {
	s.mu.Lock()
	data := s.data.Clone()
	s.mu.Unlock()

	ok := s.drafts.Save(ctx, s.id, data)
	if ok {
		s.mu.Lock()
		s.dirty = false
		now := time.Now()
		s.lastSaved = &now
		s.mu.Unlock()
	}
	return ok
}

// RestoreDraft replaces the session data with the stored draft, if one
// exists. A restored session starts back at the first step.
func (s *Session) RestoreDraft(ctx context.Context) bool {
	restored := s.drafts.Load(ctx, s.id)
	if restored == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return false
	}
	s.data = restored
	s.current = 0
	s.furthest = 0
	s.dirty = false
	return true
}

// ClearDraft removes the stored draft without touching in-memory data.
func (s *Session) ClearDraft(ctx context.Context) bool {
	return s.drafts.Clear(ctx, s.id)
}

// LastSaved is when the draft was last written in this process.
func (s *Session) LastSaved() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// SubmitOutcome is the result of a full-form submission. When validation
// fails, FailedStep names the step the session jumped back to and Result is
// zero. FailedStep is -1 when validation passed.
type SubmitOutcome struct {
	FailedStep int               `json:"failed_step"`
	StepErrors models.StepResult `json:"step_errors,omitempty"`
	Result     submit.Result     `json:"result"`
}

// Submit revalidates every step, jumps to the first failing one, and
// otherwise hands the data to send. On success the session becomes terminal
// and its draft is cleared.
func (s *Session) Submit(ctx context.Context, send SubmitFunc) (SubmitOutcome, error) {
	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return SubmitOutcome{}, ErrAlreadySubmit
	}
	if s.submitting {
		s.mu.Unlock()
		return SubmitOutcome{}, ErrSubmitInFlight
	}
	for _, step := range s.steps {
		result := s.validator.ValidateStep(step, s.data)
		if !result.Valid {
			s.current = step.Index
			if s.current > s.furthest {
				s.furthest = s.current
			}
			s.mu.Unlock()
			log.Info().Str("session_id", s.id[:8]).Int("step", step.Index).Msg("submission blocked by validation")
			return SubmitOutcome{FailedStep: step.Index, StepErrors: result}, nil
		}
	}
	// One submission in flight per session. The guard is set while the
	// lock is still held so a concurrent Submit cannot slip past it, and
	// cleared on failure so a failed submit stays retryable.
	s.submitting = true
	data := s.data.Clone()
	s.mu.Unlock()

	result := send(ctx, data)
	s.mu.Lock()
	s.submitting = false
	if result.Success {
		s.submitted = true
		s.number = result.RegistrationNumber
		s.dirty = false
	}
	s.mu.Unlock()
	if result.Success {
		s.drafts.Clear(ctx, s.id)
	}
	return SubmitOutcome{FailedStep: -1, Result: result}, nil
}
