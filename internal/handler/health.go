package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/formula-lab/internal/middleware"
	"github.com/deppfellow/formula-lab/internal/server"
	"github.com/labstack/echo/v4"
)

type HealthHandler struct {
	Handler
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{Handler: NewHandler(s)}
}

// Live answers as long as the process can serve requests.
func (h *HealthHandler) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": server.StatusHealthy})
}

// CheckHealth reports every dependency check. Any failing check turns the
// response into a 503.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()
	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	report := h.server.CheckHealth(c.Request().Context())

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
		logger.Warn().
			Dur("total_duration", time.Since(start)).
			Msg("health check failed")
	} else {
		logger.Debug().
			Dur("total_duration", time.Since(start)).
			Msg("health check passed")
	}

	if err := c.JSON(status, report); err != nil {
		logger.Error().Err(err).Msg("failed to write JSON response")
		return fmt.Errorf("failed to write JSON response: %w", err)
	}
	return nil
}
