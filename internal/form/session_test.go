package form

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smktahasus/psb_api/internal/cache"
	"github.com/smktahasus/psb_api/internal/config"
	"github.com/smktahasus/psb_api/internal/draft"
	"github.com/smktahasus/psb_api/internal/models"
	"github.com/smktahasus/psb_api/internal/submit"
	"github.com/smktahasus/psb_api/internal/validation"
)

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", cache.ErrNotFound
	}
	return v, nil
}

func (m *memKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memKV) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func testSteps() []models.Step {
	return []models.Step{
		{Index: 0, Title: "Data Siswa", Fields: []models.FieldDescriptor{
			{Name: "nama_lengkap", Label: "Nama Lengkap", Type: models.FieldText, Required: true},
		}},
		{Index: 1, Title: "Kontak", Fields: []models.FieldDescriptor{
			{Name: "no_hp", Label: "No. HP", Type: models.FieldTel, Required: true},
			{Name: "email", Label: "Email", Type: models.FieldEmail},
		}},
		{Index: 2, Title: "Identitas", Fields: []models.FieldDescriptor{
			{Name: "nik_siswa", Label: "NIK Siswa", Type: models.FieldText, Required: true},
		}},
		{Index: 3, Title: "Konfirmasi", Fields: []models.FieldDescriptor{
			{Name: "pernyataan", Label: "Pernyataan", Type: models.FieldRadio, Required: true,
				Options: []string{"Setuju"}},
		}},
	}
}

func validData() models.Record {
	return models.Record{
		"nama_lengkap": "Budi Santoso",
		"no_hp":        "081234567890",
		"nik_siswa":    "3201123456785678",
		"pernyataan":   "Setuju",
	}
}

func newTestManager(t *testing.T) (*Manager, *draft.Store) {
	t.Helper()
	v := validation.New(config.ValidationConfig{PhoneMinDigits: 10, PhoneMaxDigits: 13})
	drafts := draft.NewStore(newMemKV(), config.DraftConfig{
		DataKey: "psb_form_data",
		TimeKey: "psb_last_save",
		TTL:     time.Hour,
	})
	return NewManager(testSteps(), v, drafts), drafts
}

func TestNextGatedOnValidation(t *testing.T) {
	m, _ := newTestManager(t)
	s := m.Create()

	result, err := s.Next()
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, 0, s.CurrentIndex())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "nama_lengkap", result.Errors[0].Field)
	assert.Equal(t, validation.MsgRequired, result.Errors[0].Message)

	require.NoError(t, s.SetField("nama_lengkap", "Budi Santoso"))
	result, err = s.Next()
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 1, s.CurrentIndex())
}

func TestPreviousIsFree(t *testing.T) {
	m, _ := newTestManager(t)
	s := m.Create()

	assert.False(t, s.Previous())

	require.NoError(t, s.SetField("nama_lengkap", "Budi"))
	_, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, 1, s.CurrentIndex())

	assert.True(t, s.Previous())
	assert.Equal(t, 0, s.CurrentIndex())
}

func TestShowRefusesUnvisitedSteps(t *testing.T) {
	m, _ := newTestManager(t)
	s := m.Create()

	assert.ErrorIs(t, s.Show(2), ErrStepOutOfRange)
	assert.ErrorIs(t, s.Show(-1), ErrStepOutOfRange)
	assert.ErrorIs(t, s.Show(99), ErrStepOutOfRange)

	require.NoError(t, s.SetField("nama_lengkap", "Budi"))
	_, err := s.Next()
	require.NoError(t, err)

	require.NoError(t, s.Show(0))
	require.NoError(t, s.Show(1))
	assert.Equal(t, 1, s.CurrentIndex())
}

func TestProgressAndView(t *testing.T) {
	m, _ := newTestManager(t)
	s := m.Create()

	assert.Equal(t, 25, s.Progress())

	view := Snapshot(s)
	assert.Equal(t, "1 / 4", view.Counter)
	assert.Equal(t, "Data Siswa", view.StepTitle)
	assert.Equal(t, []string{PillActive, PillTodo, PillTodo, PillTodo}, view.Pills)
	assert.False(t, view.CanGoBack)
	assert.Equal(t, "Berikutnya →", view.ButtonLabel)

	require.NoError(t, s.SetFields(validData()))
	for i := 0; i < 3; i++ {
		_, err := s.Next()
		require.NoError(t, err)
	}

	assert.Equal(t, 100, s.Progress())
	view = Snapshot(s)
	assert.Equal(t, "4 / 4", view.Counter)
	assert.Equal(t, []string{PillDone, PillDone, PillDone, PillActive}, view.Pills)
	assert.True(t, view.CanGoBack)
	assert.Equal(t, "Kirim Pendaftaran", view.ButtonLabel)
}

func TestDraftRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	s := m.Create()

	require.NoError(t, s.SetField("nama_lengkap", "Budi Santoso"))
	assert.True(t, s.HasUnsavedChanges())

	assert.True(t, s.SaveDraft(ctx))
	assert.False(t, s.HasUnsavedChanges())
	require.NotNil(t, s.LastSaved())

	// Wipe in-memory state, then restore from the draft.
	require.NoError(t, s.SetField("nama_lengkap", ""))
	assert.True(t, s.RestoreDraft(ctx))
	assert.Equal(t, models.Record{"nama_lengkap": "Budi Santoso"}, s.Data())
	assert.Equal(t, 0, s.CurrentIndex())
}

func TestSubmitJumpsToFirstFailingStep(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	s := m.Create()

	data := validData()
	data["nik_siswa"] = "123" // step 2 invalid
	require.NoError(t, s.SetFields(data))

	called := false
	outcome, err := s.Submit(ctx, func(context.Context, models.Record) submit.Result {
		called = true
		return submit.Result{Success: true}
	})

	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, 2, outcome.FailedStep)
	assert.Equal(t, 2, s.CurrentIndex())
	require.Len(t, outcome.StepErrors.Errors, 1)
	assert.Equal(t, validation.MsgInvalidNIK, outcome.StepErrors.Errors[0].Message)
	assert.False(t, s.Submitted())
}

func TestSubmitSuccessIsTerminal(t *testing.T) {
	m, drafts := newTestManager(t)
	ctx := context.Background()
	s := m.Create()

	require.NoError(t, s.SetFields(validData()))
	require.True(t, s.SaveDraft(ctx))

	outcome, err := s.Submit(ctx, func(_ context.Context, data models.Record) submit.Result {
		assert.Equal(t, "Budi Santoso", data["nama_lengkap"])
		return submit.Result{Success: true, RegistrationNumber: "PSB12345678", Attempts: 1}
	})

	require.NoError(t, err)
	assert.Equal(t, -1, outcome.FailedStep)
	assert.True(t, outcome.Result.Success)
	assert.True(t, s.Submitted())
	assert.Equal(t, "PSB12345678", s.RegistrationNumber())
	assert.False(t, drafts.HasData(ctx, s.ID()))

	assert.ErrorIs(t, s.SetField("nama_lengkap", "Ani"), ErrAlreadySubmit)
	_, err = s.Submit(ctx, nil)
	assert.ErrorIs(t, err, ErrAlreadySubmit)
}

func TestSubmitFailureLeavesSessionOpen(t *testing.T) {
	m, drafts := newTestManager(t)
	ctx := context.Background()
	s := m.Create()

	require.NoError(t, s.SetFields(validData()))
	require.True(t, s.SaveDraft(ctx))

	outcome, err := s.Submit(ctx, func(context.Context, models.Record) submit.Result {
		return submit.Result{Success: false, Message: submit.MsgNetwork, Attempts: 3}
	})

	require.NoError(t, err)
	assert.Equal(t, -1, outcome.FailedStep)
	assert.False(t, outcome.Result.Success)
	assert.False(t, s.Submitted())
	assert.True(t, drafts.HasData(ctx, s.ID()))
}

func TestSetFieldShapesInput(t *testing.T) {
	m, _ := newTestManager(t)
	s := m.Create()

	require.NoError(t, s.SetField("nik_siswa", "3201-1234 5678.5678x"))
	require.NoError(t, s.SetField("no_hp", "+62 812-3456-7890"))
	require.NoError(t, s.SetField("nama_lengkap", "  Budi <b>Santoso</b> "))
	require.NoError(t, s.SetField("catatan_bebas", "<i>apa adanya</i>"))

	data := s.Data()
	assert.Equal(t, "3201123456785678", data["nik_siswa"])
	assert.Equal(t, "6281234567890", data["no_hp"])
	assert.Equal(t, "Budi &lt;b&gt;Santoso&lt;/b&gt;", data["nama_lengkap"])
	assert.Equal(t, "<i>apa adanya</i>", data["catatan_bebas"])
}

func TestSubmitAllowsOneInFlight(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	s := m.Create()
	require.NoError(t, s.SetFields(validData()))

	var calls int32
	entered := make(chan struct{})
	release := make(chan struct{})
	send := func(context.Context, models.Record) submit.Result {
		atomic.AddInt32(&calls, 1)
		close(entered)
		<-release
		return submit.Result{Success: true, RegistrationNumber: "PSB12345678"}
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(ctx, send)
		done <- err
	}()

	<-entered
	_, err := s.Submit(ctx, send)
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, s.Submitted())
}

func TestSubmitRetryableAfterInFlightFailure(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	s := m.Create()
	require.NoError(t, s.SetFields(validData()))

	_, err := s.Submit(ctx, func(context.Context, models.Record) submit.Result {
		return submit.Result{Success: false, Message: submit.MsgNetwork}
	})
	require.NoError(t, err)

	outcome, err := s.Submit(ctx, func(context.Context, models.Record) submit.Result {
		return submit.Result{Success: true, RegistrationNumber: "PSB87654321"}
	})
	require.NoError(t, err)
	assert.True(t, outcome.Result.Success)
	assert.True(t, s.Submitted())
}

func TestDefaultStepsShape(t *testing.T) {
	steps := DefaultSteps()
	require.Len(t, steps, 4)
	for i, step := range steps {
		assert.Equal(t, i, step.Index)
		assert.NotEmpty(t, step.Fields)
	}
}
