package submit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smktahasus/psb_api/pkg/supabase"
)

func newCountServer(t *testing.T, contentRange, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentRange != "" {
			w.Header().Set("Content-Range", contentRange)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestCountByRegistrationNumberExactCount(t *testing.T) {
	srv := newCountServer(t, "0-0/1", `[{"nomor_registrasi":"PSB12345678"}]`)
	defer srv.Close()

	table := NewSupabaseTable(supabase.NewClient(srv.URL, "anon-key"), "registrasi_siswa")
	count, err := table.CountByRegistrationNumber(context.Background(), "PSB12345678")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCountByRegistrationNumberUnboundedRangeFallsBackToRows(t *testing.T) {
	// An unbounded Content-Range must not make a taken number look free.
	srv := newCountServer(t, "0-0/*", `[{"nomor_registrasi":"PSB12345678"}]`)
	defer srv.Close()

	table := NewSupabaseTable(supabase.NewClient(srv.URL, "anon-key"), "registrasi_siswa")
	count, err := table.CountByRegistrationNumber(context.Background(), "PSB12345678")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCountByRegistrationNumberMissingRangeEmptyResult(t *testing.T) {
	srv := newCountServer(t, "", `[]`)
	defer srv.Close()

	table := NewSupabaseTable(supabase.NewClient(srv.URL, "anon-key"), "registrasi_siswa")
	count, err := table.CountByRegistrationNumber(context.Background(), "PSB99999999")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
