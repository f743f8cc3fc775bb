package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLoggedRouter() (*gin.Engine, *observer.ObservedLogs) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusInternalServerError)
	})
	return r, logs
}

func serve(r *gin.Engine, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestLogger_Levels(t *testing.T) {
	r, logs := newLoggedRouter()

	serve(r, "/ok?x=1", nil)
	serve(r, "/missing", nil)
	serve(r, "/boom", nil)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/ok?x=1", entries[0].ContextMap()["path"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "Request error", entries[2].Message)
}

func TestRequestLogger_SkipsHealthAndMetrics(t *testing.T) {
	r, logs := newLoggedRouter()

	w := serve(r, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, logs.Len())
	assert.Empty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestLogger_RequestID(t *testing.T) {
	r, logs := newLoggedRouter()

	w := serve(r, "/ok", http.Header{RequestIDHeader: {"abc-123"}})
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", logs.All()[0].ContextMap()["request_id"])

	w = serve(r, "/ok", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}
