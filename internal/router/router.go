// Package router builds the Echo instance: the global middleware chain,
// the error handler and every route group.
package router

import (
	"github.com/deppfellow/formula-lab/internal/handler"
	"github.com/deppfellow/formula-lab/internal/middleware"
	"github.com/deppfellow/formula-lab/internal/server"
	"github.com/labstack/echo/v4"
)

func NewRouter(s *server.Server, h *handler.Handlers, m *middleware.Middlewares) *echo.Echo {
	r := echo.New()
	r.HideBanner = true
	r.HidePort = true
	r.HTTPErrorHandler = m.Global.GlobalErrorHandler

	r.Use(
		m.Global.Recover(),
		middleware.RequestID(),
		m.Tracing.NewRelicMiddleware(),
		m.Tracing.EnhanceTracing(),
		m.ContextEnhancer.EnhanceContext(),
		m.Global.CORS(),
		m.Global.Secure(),
		m.Global.RequestLogger(),
		m.Metrics.Observe(),
	)

	registerSystemRoutes(r, s, h)

	api := r.Group("/api")
	registerAuthRoutes(api, h, m)
	registerIngredientRoutes(api, h, m)

	return r
}
