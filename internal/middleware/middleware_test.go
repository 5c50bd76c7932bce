package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/yourusername/gatehouse/internal/auth"
	"github.com/yourusername/gatehouse/internal/users"
)

func newRouter(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zerolog.New(buf)
	router := gin.New()
	router.Use(RequestID(), Logger(log), Recovery(log))
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/panic", func(c *gin.Context) { panic("boom") })
	router.GET("/me", func(c *gin.Context) {
		c.Set(auth.ContextIdentityKey, users.Identity{ID: 42, Username: "Alice", Role: users.RoleAdmin})
		c.String(http.StatusOK, "me")
	})
	router.GET("/static/*filepath", func(c *gin.Context) { c.String(http.StatusOK, "body{}") })
	return router
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	var buf bytes.Buffer
	router := newRouter(&buf)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"fixed-id"`)
}

func TestRecoveryReturns500AndLogs(t *testing.T) {
	var buf bytes.Buffer
	router := newRouter(&buf)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestLoggerIncludesSessionIdentity(t *testing.T) {
	var buf bytes.Buffer
	router := newRouter(&buf)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Contains(t, buf.String(), `"user_id":42`)
	assert.Contains(t, buf.String(), `"role":"admin"`)

	buf.Reset()
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.NotContains(t, buf.String(), "user_id")
	assert.Contains(t, buf.String(), `"level":"info"`)
}

func TestLoggerDemotesStaticRequests(t *testing.T) {
	var buf bytes.Buffer
	router := newRouter(&buf)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Contains(t, buf.String(), `"level":"debug"`)
	assert.Contains(t, buf.String(), `"route":"/static/*filepath"`)

	buf.Reset()
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
