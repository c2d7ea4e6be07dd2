package middleware

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// EnvInjectMiddleware rewrites HTML responses to carry the public runtime
// configuration in a window.__ENV__ script, so served pages need no build
// step to learn their backend endpoints. Only safe-to-publish values belong
// in the vars map.
type EnvInjectMiddleware struct {
	script []byte
}

func NewEnvInjectMiddleware(vars map[string]string) *EnvInjectMiddleware {
	payload, err := json.Marshal(vars)
	if err != nil {
		log.Error().Err(err).Msg("env vars failed to encode, pages get an empty __ENV__")
		payload = []byte("{}")
	}
	return &EnvInjectMiddleware{
		script: []byte("<script>window.__ENV__ = " + string(payload) + ";</script>"),
	}
}

func (m *EnvInjectMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		buf := &injectWriter{ResponseWriter: c.Writer}
		c.Writer = buf
		c.Next()
		c.Writer = buf.ResponseWriter

		body := buf.body.Bytes()
		if isHTML(buf.Header().Get("Content-Type")) {
			body = m.inject(body)
		}
		buf.Header().Set("Content-Length", strconv.Itoa(len(body)))
		if buf.status != 0 {
			buf.ResponseWriter.WriteHeader(buf.status)
		}
		if _, err := buf.ResponseWriter.Write(body); err != nil {
			log.Debug().Err(err).Msg("response write failed")
		}
	}
}

// inject places the script before </head>, falling back to before <body and
// then to prepending. The original body is returned untouched only when it
// is empty.
func (m *EnvInjectMiddleware) inject(body []byte) []byte {
	if len(body) == 0 {
		return body
	}
	if idx := bytes.Index(body, []byte("</head>")); idx >= 0 {
		return spliceAt(body, m.script, idx)
	}
	if idx := bytes.Index(body, []byte("<body")); idx >= 0 {
		return spliceAt(body, m.script, idx)
	}
	return append(append([]byte{}, m.script...), body...)
}

func spliceAt(body, insert []byte, idx int) []byte {
	out := make([]byte, 0, len(body)+len(insert))
	out = append(out, body[:idx]...)
	out = append(out, insert...)
	out = append(out, body[idx:]...)
	return out
}

func isHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}

// injectWriter buffers the response so the body can be rewritten after the
// handler chain runs.
type injectWriter struct {
	gin.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *injectWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *injectWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

func (w *injectWriter) WriteHeader(status int) {
	w.status = status
}
