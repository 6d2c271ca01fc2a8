package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/api/ingredients/:id", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/ingredients/:id", http.StatusOK, 5*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/ingredients/:id", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/ingredients/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/ingredients/:id", "404")))
}

func TestObserveHealthCheck(t *testing.T) {
	m := New()
	m.ObserveHealthCheck("database", true, time.Millisecond)
	m.ObserveHealthCheck("redis", false, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HealthCheckStatus.WithLabelValues("database")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HealthCheckStatus.WithLabelValues("redis")))
}

func TestHandlerExposesPrivateRegistry(t *testing.T) {
	a, b := New(), New()
	a.Registrations.Inc()
	b.Logins.WithLabelValues("success").Inc()

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "formulalab_auth_registrations_total 1")
	assert.NotContains(t, string(body), "formulalab_auth_logins_total")
	assert.Contains(t, string(body), "go_goroutines")
}
