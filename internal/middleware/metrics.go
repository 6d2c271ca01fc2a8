package middleware

import (
	"time"

	"github.com/deppfellow/formula-lab/internal/server"
	"github.com/labstack/echo/v4"
)

type MetricsMiddleware struct {
	server *server.Server
}

func NewMetricsMiddleware(s *server.Server) *MetricsMiddleware {
	return &MetricsMiddleware{server: s}
}

// Observe counts requests by route pattern; unmatched routes share one
// label so scanners cannot blow up cardinality.
func (m *MetricsMiddleware) Observe() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			path := c.Path()
			if path == "" || path == "/*" {
				path = "unmatched"
			}
			m.server.Metrics.ObserveRequest(c.Request().Method, path, responseStatus(c, err), time.Since(start))

			return err
		}
	}
}
