package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func traceIDFor(t *testing.T, headers map[string]string) string {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		c.Request.Header.Set(k, v)
	}
	return GetTraceID(c)
}

func TestGetTraceID(t *testing.T) {
	const w3c = "4bf92f3577b34da6a3ce929d0e0e4736"

	assert.Equal(t, w3c, traceIDFor(t, map[string]string{
		TraceParentHeader: "00-" + w3c + "-00f067aa0ba902b7-01",
	}))
	assert.Equal(t, "custom", traceIDFor(t, map[string]string{TraceIDHeader: "custom"}))
	assert.Equal(t, "custom", traceIDFor(t, map[string]string{
		TraceParentHeader: "garbage",
		TraceIDHeader:     "custom",
	}))

	generated := traceIDFor(t, nil)
	assert.Len(t, generated, 32)
	assert.NotEqual(t, generated, traceIDFor(t, nil))
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	r := gin.New()
	r.Use(LoggingMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.Set(UserIDKey, "u-1")
		zerolog.Ctx(c.Request.Context()).Info().Msg("inside")
		c.Status(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(TraceIDHeader, "trace-123")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "trace-123", w.Header().Get(TraceIDHeader))

	out := buf.String()
	assert.Contains(t, out, `"message":"inside"`)
	assert.Contains(t, out, `"trace_id":"trace-123"`)
	assert.Contains(t, out, `"user_id":"u-1"`)
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"status":418`)
}
