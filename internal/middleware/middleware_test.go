package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deppfellow/formula-lab/internal/config"
	"github.com/deppfellow/formula-lab/internal/errs"
	"github.com/deppfellow/formula-lab/internal/lib/metrics"
	"github.com/deppfellow/formula-lab/internal/lib/token"
	"github.com/deppfellow/formula-lab/internal/model"
	"github.com/deppfellow/formula-lab/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret-key"

type fakeUsers map[int64]*model.User

func (f fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("failed to get user by id=%d: %w", id, sql.ErrNoRows)
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.SecretKey = testSecret
	logger := zerolog.Nop()
	return &server.Server{Config: cfg, Logger: &logger, Metrics: metrics.New()}
}

func newTestEcho(s *server.Server, users UserLookup) (*echo.Echo, *Middlewares) {
	m := NewMiddlewares(s, users)
	e := echo.New()
	e.HTTPErrorHandler = m.Global.GlobalErrorHandler
	e.Use(RequestID(), m.ContextEnhancer.EnhanceContext(), m.Metrics.Observe())
	return e, m
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errs.HTTPError {
	t.Helper()
	var body errs.HTTPError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequestID(t *testing.T) {
	e, _ := newTestEcho(newTestServer(t), fakeUsers{})
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, GetRequestID(c)) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := rec.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRequireAuth(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	users := fakeUsers{
		1: {Base: model.Base{ID: 1}, Email: "pro@example.com", IsActive: true, SubscriptionType: model.SubscriptionProfessional},
		2: {Base: model.Base{ID: 2}, Email: "off@example.com", IsActive: false},
		3: {Base: model.Base{ID: 3}, Email: "lapsed@example.com", IsActive: true, SubscriptionType: model.SubscriptionPremium, SubscriptionExpiresAt: &expired},
	}
	e, m := newTestEcho(newTestServer(t), users)
	e.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"id":   GetUserID(c),
			"plan": string(GetPlan(c)),
		})
	}, m.Auth.RequireAuth)

	tokens := token.NewManager(testSecret)
	issue := func(id int64) string {
		raw, _, err := tokens.Issue(id, time.Hour)
		require.NoError(t, err)
		return raw
	}

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid token", func(t *testing.T) {
		rec := call("Bearer " + issue(1))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":"1","plan":"professional"}`, rec.Body.String())
	})

	t.Run("expired plan is downgraded", func(t *testing.T) {
		rec := call("Bearer " + issue(3))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":"3","plan":"free"}`, rec.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		rec := call("")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
		assert.Equal(t, "Could not validate credentials", decodeError(t, rec).Message)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call("Basic "+issue(1)).Code)
	})

	t.Run("tampered token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call("Bearer "+issue(1)+"x").Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call("Bearer "+issue(99)).Code)
	})

	t.Run("inactive user", func(t *testing.T) {
		rec := call("Bearer " + issue(2))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Inactive user", decodeError(t, rec).Message)
	})
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t)
	s.Config.Server.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2}
	e, m := newTestEcho(s, fakeUsers{})
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, m.RateLimit.Limit())

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.RateLimited.WithLabelValues("/login")))
}

func TestRateLimitDisabled(t *testing.T) {
	s := newTestServer(t)
	s.Config.Server.RateLimit.Enabled = false
	e, m := newTestEcho(s, fakeUsers{})
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, m.RateLimit.Limit())

	for range 20 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestGlobalErrorHandler(t *testing.T) {
	s := newTestServer(t)
	e, _ := newTestEcho(s, fakeUsers{})
	e.GET("/missing", func(c echo.Context) error {
		return fmt.Errorf("loading ingredient: %w", sql.ErrNoRows)
	})
	e.GET("/boom", func(c echo.Context) error { return errors.New("connection reset by peer") })
	e.GET("/forbidden", func(c echo.Context) error {
		return errs.NewForbiddenError("This ingredient requires a professional subscription", true)
	})

	tests := []struct {
		path    string
		status  int
		message string
	}{
		{"/missing", http.StatusNotFound, "Resource not found"},
		{"/boom", http.StatusInternalServerError, "Internal Server Error"},
		{"/forbidden", http.StatusForbidden, "This ingredient requires a professional subscription"},
		{"/nowhere", http.StatusNotFound, "Route not found"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.status, rec.Code)

			body := decodeError(t, rec)
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.message, body.Message)
			assert.NotContains(t, rec.Body.String(), "connection reset")
		})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.RequestsTotal.WithLabelValues("GET", "/boom", "500")))
}
