package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestProfilingMiddleware_Disabled(t *testing.T) {
	r := gin.New()
	r.Use(ProfilingWithConfig(ProfilingConfig{Enabled: false}))

	called := false
	r.GET("/test", func(c *gin.Context) {
		called = true
		_, ok := pprof.Label(c.Request.Context(), ProfilingLabelMethod)
		assert.False(t, ok)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}

func TestProfilingMiddleware_LabelsRequest(t *testing.T) {
	r := gin.New()
	r.Use(ProfilingWithConfig(DefaultProfilingConfig()))

	labels := map[string]string{}
	r.POST("/api/v1/lots/:id/status", func(c *gin.Context) {
		for _, key := range []string{ProfilingLabelMethod, ProfilingLabelRoute, ProfilingLabelResource} {
			if v, ok := pprof.Label(c.Request.Context(), key); ok {
				labels[key] = v
			}
		}
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/lots/abc/status", nil))

	assert.Equal(t, "POST", labels[ProfilingLabelMethod])
	assert.Equal(t, "/api/v1/lots/:id/status", labels[ProfilingLabelRoute])
	assert.Equal(t, "lots", labels[ProfilingLabelResource])
}

func TestProfilingMiddleware_SkipPaths(t *testing.T) {
	r := gin.New()
	r.Use(ProfilingWithConfig(DefaultProfilingConfig()))

	labelled := true
	r.GET("/health", func(c *gin.Context) {
		_, labelled = pprof.Label(c.Request.Context(), ProfilingLabelRoute)
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.False(t, labelled)
}

func TestResourceFromRoute(t *testing.T) {
	tests := []struct {
		route    string
		expected string
	}{
		{"/api/v1/movements", "movements"},
		{"/api/v1/lots/:id/status", "lots"},
		{"/api/v2/closings/:id/execute", "closings"},
		{"/health", "health"},
		{"/api/v1/:id", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			assert.Equal(t, tt.expected, resourceFromRoute(tt.route))
		})
	}
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1"))
	assert.True(t, isVersionSegment("V12"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("vx"))
	assert.False(t, isVersionSegment("lots"))
}
