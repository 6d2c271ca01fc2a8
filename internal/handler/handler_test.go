package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/deppfellow/formula-lab/internal/config"
	"github.com/deppfellow/formula-lab/internal/database"
	"github.com/deppfellow/formula-lab/internal/lib/metrics"
	"github.com/deppfellow/formula-lab/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoPayload struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

func (p *echoPayload) Validate() error { return nil }

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Database.URL = "sqlite:///" + filepath.Join(t.TempDir(), "handler.db")
	logger := zerolog.Nop()

	db, err := database.Open(context.Background(), cfg, &logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &server.Server{Config: cfg, Logger: &logger, DB: db, Metrics: metrics.New()}
}

func TestHandleAllocatesPayloadPerRequest(t *testing.T) {
	h := NewHandler(newTestServer(t))
	proto := &echoPayload{}

	var mu sync.Mutex
	seen := map[*echoPayload]bool{}
	fn := Handle(h, func(c echo.Context, req *echoPayload) (*echoPayload, error) {
		mu.Lock()
		seen[req] = true
		mu.Unlock()
		return req, nil
	}, http.StatusOK, proto)

	e := echo.New()
	for _, body := range []string{`{"name":"a","tags":["x"]}`, `{"name":"b"}`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		require.NoError(t, fn(e.NewContext(req, rec)))

		var out echoPayload
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		if out.Name == "b" {
			assert.Empty(t, out.Tags, "fields leaked from the previous request")
		}
	}

	assert.Len(t, seen, 2)
	assert.False(t, seen[proto])
	assert.Empty(t, proto.Name)
}

func TestServeOpenAPIUI(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "openapi.html"), []byte("<html>docs</html>"), 0o644))

	h := NewOpenAPIHandler(newTestServer(t))
	h.dir = dir

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/docs", nil), rec)
	require.NoError(t, h.ServeOpenAPIUI(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "docs")

	h.dir = filepath.Join(dir, "missing")
	c = echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/docs", nil), httptest.NewRecorder())
	assert.Error(t, h.ServeOpenAPIUI(c))
}

func TestCheckHealthUnavailable(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.DB.Close())

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/status", nil), rec)
	require.NoError(t, NewHealthHandler(s).CheckHealth(c))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var report server.HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, server.StatusUnhealthy, report.Checks["database"].Status)
	assert.NotEmpty(t, report.Checks["database"].Error)
}
