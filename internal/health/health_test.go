package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/jwtguard/internal/cache"
)

func ok(context.Context) error { return nil }

func failing(context.Context) error { return errors.New("boom") }

func TestChecker_Health(t *testing.T) {
	t.Parallel()

	c := NewChecker("1.2.3")
	rec := httptest.NewRecorder()
	c.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestChecker_Readiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		register   func(c *Checker)
		wantStatus Status
		wantCode   int
	}{
		{
			name:       "no checks",
			register:   func(*Checker) {},
			wantStatus: StatusHealthy,
			wantCode:   http.StatusOK,
		},
		{
			name: "all healthy",
			register: func(c *Checker) {
				c.RegisterCheck("cache", ok, true)
				c.RegisterCheck("jwks", ok, false)
			},
			wantStatus: StatusHealthy,
			wantCode:   http.StatusOK,
		},
		{
			name: "non-critical failure",
			register: func(c *Checker) {
				c.RegisterCheck("cache", ok, true)
				c.RegisterCheck("jwks", failing, false)
			},
			wantStatus: StatusDegraded,
			wantCode:   http.StatusOK,
		},
		{
			name: "critical failure",
			register: func(c *Checker) {
				c.RegisterCheck("cache", failing, true)
				c.RegisterCheck("jwks", failing, false)
			},
			wantStatus: StatusUnhealthy,
			wantCode:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewChecker("")
			tt.register(c)

			rec := httptest.NewRecorder()
			c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", http.NoBody))

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
		})
	}
}

func TestChecker_ReadinessMessage(t *testing.T) {
	t.Parallel()

	c := NewChecker("")
	c.RegisterCheck("jwks", failing, false)

	resp := c.Readiness(context.Background())
	assert.Equal(t, Check{Status: StatusDegraded, Message: "boom"}, resp.Checks["jwks"])
}

func TestCacheCheck(t *testing.T) {
	t.Parallel()

	store := cache.NewMemory(10, time.Minute, nil)
	assert.NoError(t, CacheCheck(store)(context.Background()))

	require.NoError(t, store.Close())
	assert.Error(t, CacheCheck(store)(context.Background()))
}

func TestHTTPCheck(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.NoError(t, HTTPCheck(srv.URL+"/up", nil)(context.Background()))
	assert.Error(t, HTTPCheck(srv.URL+"/down", srv.Client())(context.Background()))
	assert.Error(t, HTTPCheck("http://127.0.0.1:1/unreachable", nil)(context.Background()))
}
