package health

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error   { return nil }
func down(context.Context) error { return stderrors.New("connection refused") }

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		database   PingerFunc
		redis      PingerFunc
		wantStatus int
		wantHealth string
	}{
		{name: "all healthy", database: ok, redis: ok, wantStatus: http.StatusOK, wantHealth: "healthy"},
		{name: "optional down", database: ok, redis: down, wantStatus: http.StatusOK, wantHealth: "degraded"},
		{name: "required down", database: down, redis: ok, wantStatus: http.StatusServiceUnavailable, wantHealth: "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewChecker("test")
			checker.AddCheck("database", tt.database, true)
			checker.AddCheck("redis", tt.redis, false)
			e := echo.New()
			checker.RegisterRoutes(e)

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var status HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
			assert.Equal(t, tt.wantHealth, status.Status)
			assert.Len(t, status.Checks, 2)
		})
	}
}

func TestReady(t *testing.T) {
	checker := NewChecker("test")
	e := echo.New()
	checker.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	checker.SetReady(true)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
