package router

import (
	"github.com/deppfellow/formula-lab/internal/handler"
	"github.com/deppfellow/formula-lab/internal/server"
	"github.com/labstack/echo/v4"
)

func registerSystemRoutes(r *echo.Echo, s *server.Server, h *handler.Handlers) {
	r.GET("/", h.System.Welcome)
	r.GET("/health", h.Health.Live)
	r.GET("/status", h.Health.CheckHealth)
	r.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))

	r.Static("/static", handler.StaticDir)
	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)

	r.GET("/api/test-connection", h.System.TestConnection)
	if s.Config.Primary.Debug {
		r.GET("/api/routes", h.System.Routes)
	}
}
