package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serveWithInjection(t *testing.T, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	m := NewEnvInjectMiddleware(map[string]string{"SUPABASE_URL": "https://example.supabase.co"})
	r.Use(m.Handle())
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, contentType, []byte(body))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestEnvInjectBeforeHeadClose(t *testing.T) {
	w := serveWithInjection(t, "text/html; charset=utf-8",
		"<html><head><title>PSB</title></head><body></body></html>")

	body := w.Body.String()
	assert.Contains(t, body, `window.__ENV__ = {"SUPABASE_URL":"https://example.supabase.co"};`)
	assert.Less(t,
		strings.Index(body, "window.__ENV__"),
		strings.Index(body, "</head>"))
}

func TestEnvInjectCarriesAllPublicKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	m := NewEnvInjectMiddleware(map[string]string{
		"SUPABASE_URL":      "https://example.supabase.co",
		"SUPABASE_ANON_KEY": "anon-key",
		"APP_NAME":          "PSB SMK Tahasus Plus Al Mardliyah",
		"APP_ENV":           "production",
	})
	r.Use(m.Handle())
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html", []byte("<html><head></head><body></body></html>"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	body := w.Body.String()
	for _, key := range []string{"SUPABASE_URL", "SUPABASE_ANON_KEY", "APP_NAME", "APP_ENV"} {
		assert.Contains(t, body, `"`+key+`"`)
	}
	assert.Contains(t, body, "PSB SMK Tahasus Plus Al Mardliyah")
}

func TestEnvInjectFallsBackToBodyTag(t *testing.T) {
	w := serveWithInjection(t, "text/html", "<html><body class=\"x\">isi</body></html>")

	body := w.Body.String()
	assert.Contains(t, body, "window.__ENV__")
	assert.Less(t,
		strings.Index(body, "window.__ENV__"),
		strings.Index(body, "<body"))
}

func TestEnvInjectPrependsWhenNoMarkers(t *testing.T) {
	w := serveWithInjection(t, "text/html", "<p>potongan</p>")

	body := w.Body.String()
	assert.True(t, len(body) > 0)
	assert.Equal(t, 0, strings.Index(body, "<script>"))
	assert.Contains(t, body, "<p>potongan</p>")
}

func TestEnvInjectSkipsNonHTML(t *testing.T) {
	w := serveWithInjection(t, "application/json", `{"ok":true}`)

	assert.Equal(t, `{"ok":true}`, w.Body.String())
}

func TestEnvInjectPreservesStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewEnvInjectMiddleware(nil).Handle())
	r.GET("/missing", func(c *gin.Context) {
		c.Data(http.StatusNotFound, "text/html", []byte("<html><head></head></html>"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "window.__ENV__")
}
