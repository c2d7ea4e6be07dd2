package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuerySelect(t *testing.T) {
	var gotPath, gotQuery, gotAPIKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAPIKey = r.Header.Get("apikey")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"nomor_registrasi":"PSB12345678"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	rows, err := c.From("registrasi_siswa").
		Select("nomor_registrasi").
		Eq("nomor_registrasi", "PSB12345678").
		Limit(1).
		Execute(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "PSB12345678", rows[0]["nomor_registrasi"])
	assert.Equal(t, "/rest/v1/registrasi_siswa", gotPath)
	assert.Contains(t, gotQuery, "select=nomor_registrasi")
	assert.Contains(t, gotQuery, "nomor_registrasi=eq.PSB12345678")
	assert.Contains(t, gotQuery, "limit=1")
	assert.Equal(t, "anon-key", gotAPIKey)
}

func TestQueryInsertWithRepresentation(t *testing.T) {
	var gotPrefer string
	var gotBody []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrefer = r.Header.Get("Prefer")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id":1,"nomor_registrasi":"PSB12345678"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	rows, err := c.From("registrasi_siswa").
		Insert(map[string]any{"nama_lengkap": "Budi", "nomor_registrasi": "PSB12345678"}).
		Select().
		Execute(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "PSB12345678", rows[0]["nomor_registrasi"])
	assert.Equal(t, "return=representation", gotPrefer)
	require.Len(t, gotBody, 1)
	assert.Equal(t, "Budi", gotBody[0]["nama_lengkap"])
}

func TestQueryErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	_, err := c.From("registrasi_siswa").
		Insert(map[string]any{"nomor_registrasi": "PSB12345678"}).
		Select().
		Execute(context.Background())

	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "23505", apiErr.Code)
	assert.Contains(t, apiErr.Message, "duplicate key")
	assert.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestExecuteWithCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		w.Header().Set("Content-Range", "0-0/42")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	_, count, err := c.From("registrasi_siswa").Select("id").Limit(0).ExecuteWithCount(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestParseContentRangeCount(t *testing.T) {
	assert.Equal(t, 42, parseContentRangeCount("0-0/42"))
	assert.Equal(t, -1, parseContentRangeCount("0-0/*"))
	assert.Equal(t, -1, parseContentRangeCount(""))
	assert.Equal(t, -1, parseContentRangeCount("garbage"))
}

func TestSignInWithPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))

		w.Header().Set("Content-Type", "application/json")
		if creds["password"] != "rahasia" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"access_token":"tok123","token_type":"bearer","expires_in":3600,
			"refresh_token":"ref123",
			"user":{"id":"u1","email":"admin@sekolah.sch.id","user_metadata":{"role":"admin"}}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")

	session, err := c.SignInWithPassword(context.Background(), "admin@sekolah.sch.id", "rahasia")
	require.NoError(t, err)
	assert.Equal(t, "tok123", session.AccessToken)
	assert.Equal(t, "admin@sekolah.sch.id", session.User.Email)

	_, err = c.SignInWithPassword(context.Background(), "admin@sekolah.sch.id", "salah")
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Contains(t, apiErr.Message, "Invalid login credentials")
}

func TestGetUserAndSignOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/auth/v1/user":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"u1","email":"admin@sekolah.sch.id"}`))
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")

	user, err := c.GetUser(context.Background(), "tok123")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	assert.NoError(t, c.SignOut(context.Background(), "tok123"))
}
