package draft

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smktahasus/psb_api/internal/cache"
	"github.com/smktahasus/psb_api/internal/config"
	"github.com/smktahasus/psb_api/internal/models"
)

// memoryKV is an in-memory cache.KV for tests.
type memoryKV struct {
	data    map[string]string
	failSet bool
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string]string)}
}

func (m *memoryKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	if m.failSet {
		return errors.New("storage full")
	}
	m.data[key] = value
	return nil
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", cache.ErrNotFound
	}
	return v, nil
}

func (m *memoryKV) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func newStore(kv cache.KV) *Store {
	return NewStore(kv, config.DraftConfig{
		DataKey: "psb_form_data",
		TimeKey: "psb_last_save",
		TTL:     time.Hour,
	})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(newMemoryKV())

	record := models.Record{
		"nama_lengkap": "Siti Aminah",
		"nik_siswa":    "3301234567890001",
		"anak_ke":      "2",
		"hp":           "081234567890",
	}

	require.True(t, s.Save(ctx, "sess1", record))

	loaded := s.Load(ctx, "sess1")
	require.NotNil(t, loaded)
	assert.Equal(t, record, loaded)

	// Drafts are per session.
	assert.Nil(t, s.Load(ctx, "sess2"))
}

func TestLoadMissingOrMalformed(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	s := newStore(kv)

	// No prior save.
	assert.Nil(t, s.Load(ctx, "sess1"))

	// A foreign, unparseable value counts as absence, not an error.
	kv.data["psb_form_data:sess1"] = "{not json"
	assert.Nil(t, s.Load(ctx, "sess1"))
}

func TestClearRemovesBothKeys(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	s := newStore(kv)

	require.True(t, s.Save(ctx, "sess1", models.Record{"nama_lengkap": "Budi"}))
	require.True(t, s.HasData(ctx, "sess1"))
	require.NotNil(t, s.LastSaveTime(ctx, "sess1"))

	assert.True(t, s.Clear(ctx, "sess1"))
	assert.False(t, s.HasData(ctx, "sess1"))
	assert.Nil(t, s.Load(ctx, "sess1"))
	assert.Nil(t, s.LastSaveTime(ctx, "sess1"))
}

func TestSaveDegradesOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	kv.failSet = true
	s := newStore(kv)

	// Failure is reported, never thrown.
	assert.False(t, s.Save(ctx, "sess1", models.Record{"nama_lengkap": "Budi"}))
	assert.False(t, s.Available(ctx))
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		bytes int
		want  string
	}{
		{0, "0 Bytes"},
		{1, "1 Bytes"},
		{512, "512 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{2621, "2.56 KB"},
		{1048576, "1 MB"},
		{1572864, "1.5 MB"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatSize(tc.bytes), "bytes=%d", tc.bytes)
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	s := newStore(newMemoryKV())

	// Nothing to export yet.
	assert.Nil(t, s.Export(ctx, "sess1"))

	record := models.Record{"nama_lengkap": "Siti", "nisn": "0051234567"}
	require.True(t, s.Save(ctx, "sess1", record))

	snapshot := s.Export(ctx, "sess1")
	require.NotNil(t, snapshot)
	assert.Contains(t, string(snapshot), "0051234567")

	// Import into a different session behaves exactly like a fresh save.
	require.NoError(t, s.Import(ctx, "sess2", map[string]any{
		"nama_lengkap": "Siti",
		"nisn":         "0051234567",
	}))
	assert.Equal(t, record, s.Load(ctx, "sess2"))

	// Non-mapping input is rejected.
	assert.Error(t, s.Import(ctx, "sess3", "not a mapping"))
	assert.Error(t, s.Import(ctx, "sess3", []any{"a", "b"}))
}

func TestGetInfo(t *testing.T) {
	ctx := context.Background()
	s := newStore(newMemoryKV())

	info := s.GetInfo(ctx, "sess1")
	assert.True(t, info.Available)
	assert.False(t, info.HasData)
	assert.Equal(t, "0 Bytes", info.SizeFormatted)

	require.True(t, s.Save(ctx, "sess1", models.Record{"nama_lengkap": "Budi"}))

	info = s.GetInfo(ctx, "sess1")
	assert.True(t, info.HasData)
	assert.Greater(t, info.Size, 0)
	assert.NotNil(t, info.LastSave)
}
