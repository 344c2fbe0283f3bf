package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeHealthChecker(t *testing.T) {
	ok := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name         string
		required     HealthCheckFunc
		optional     HealthCheckFunc
		wantHealthy  bool
		wantDegraded bool
		wantMessage  string
	}{
		{"all pass", ok, ok, true, false, "All checks passed"},
		{"optional fails", ok, fail, true, true, "Degraded: redis"},
		{"required fails", fail, ok, false, false, "Some checks failed: database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCompositeHealthChecker("test")
			c.AddCheck("database", tt.required)
			c.AddOptionalCheck("redis", tt.optional)

			status := c.Check(context.Background())
			assert.Equal(t, tt.wantHealthy, status.Healthy)
			assert.Equal(t, tt.wantHealthy, status.Ready)
			assert.Equal(t, tt.wantDegraded, status.Degraded)
			assert.Equal(t, tt.wantMessage, status.Message)
			assert.Len(t, status.Checks, 2)
			assert.True(t, status.Checks["redis"].Optional)
		})
	}
}

func TestCompositeHealthChecker_Timeout(t *testing.T) {
	c := NewCompositeHealthChecker("test")
	c.SetTimeout(20 * time.Millisecond)
	c.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Contains(t, status.Checks["slow"].Message, "deadline")

	c.RemoveCheck("slow")
	assert.Equal(t, "No health checks registered", c.Check(context.Background()).Message)
}

func TestRequestSizeLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestSizeLimit(8), SecurityHeaders())
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ok")))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}
