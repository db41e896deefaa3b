package logger

import (
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

func newObservedRouter(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)
	l := zap.New(core)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(RequestIDContextKey, "req-7")
		c.Next()
	})
	router.Use(GinMiddleware(l), Recovery(l))
	return router, recorded
}

func TestGinMiddleware_PropagatesContext(t *testing.T) {
	router, recorded := newObservedRouter(t)
	router.GET("/stocks/:id", func(c *gin.Context) {
		ctx := c.Request.Context()
		assert.Equal(t, "req-7", GetRequestID(ctx))
		assert.Equal(t, "bob", GetOperator(ctx))
		L(ctx).Info("inside handler")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/stocks/42?depot=A", nil)
	req.Header.Set("X-Operator", "bob")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 2, recorded.Len())

	inner := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-7", inner["request_id"])
	assert.Equal(t, "/stocks/:id", inner["route"])

	access := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, access, 1)
	assert.Equal(t, zapcore.InfoLevel, access[0].Level)
	assert.Equal(t, "depot=A", access[0].ContextMap()["query"])
	assert.EqualValues(t, http.StatusOK, access[0].ContextMap()["status"])
}

func TestGinMiddleware_LevelFollowsStatus(t *testing.T) {
	router, recorded := newObservedRouter(t)
	router.GET("/conflict", func(c *gin.Context) { c.Status(http.StatusConflict) })
	router.GET("/broken", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	for _, path := range []string{"/conflict", "/broken"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestRecovery(t *testing.T) {
	router, recorded := newObservedRouter(t)
	router.GET("/panic", func(c *gin.Context) { panic("lot registry corrupted") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")

	panics := recorded.FilterMessage("Panic recovered").All()
	require.Len(t, panics, 1)
	assert.Equal(t, "req-7", panics[0].ContextMap()["request_id"])
}
