package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/config"
)

// newTestRouter wires both middlewares in front of two handlers, one of them failing.
func newTestRouter(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	log := NewWithWriter(config.LogConfig{Level: "info", Format: "json"}, buf)
	router := gin.New()
	router.Use(RequestID(), AccessLog(log))
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/fail", func(c *gin.Context) {
		_ = c.AbortWithError(http.StatusInternalServerError, errors.New("disk full"))
	})
	return router
}

// TestRequestIDGenerated expects a fresh id in the response header and in the access log.
func TestRequestIDGenerated(t *testing.T) {
	var buf bytes.Buffer
	router := newTestRouter(&buf)

	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("GET", "/ok", nil)
	router.ServeHTTP(recorder, request)

	rid := recorder.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, rid)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, rid, line["request_id"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, 200.0, line["status"])
	assert.Equal(t, "/ok", line["path"])
}

// TestRequestIDReused expects a client supplied id to be echoed unchanged.
func TestRequestIDReused(t *testing.T) {
	var buf bytes.Buffer
	router := newTestRouter(&buf)

	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("GET", "/ok", nil)
	request.Header.Set(RequestIDHeader, "abc-123")
	router.ServeHTTP(recorder, request)

	assert.Equal(t, "abc-123", recorder.Header().Get(RequestIDHeader))
}

// TestAccessLogErrors expects handler errors to be logged at error level.
func TestAccessLogErrors(t *testing.T) {
	var buf bytes.Buffer
	router := newTestRouter(&buf)

	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("GET", "/fail", nil)
	router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Contains(t, line["errors"], "disk full")
}

func TestNewWithWriterLevel(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, zerolog.WarnLevel, NewWithWriter(config.LogConfig{Level: "warn", Format: "json"}, &buf).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewWithWriter(config.LogConfig{Level: "bogus", Format: "json"}, &buf).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewWithWriter(config.LogConfig{}, &buf).GetLevel())
}
