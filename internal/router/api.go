package router

import (
	"net/http"

	"github.com/deppfellow/formula-lab/internal/handler"
	"github.com/deppfellow/formula-lab/internal/middleware"
	"github.com/deppfellow/formula-lab/internal/model"
	"github.com/labstack/echo/v4"
)

func registerAuthRoutes(api *echo.Group, h *handler.Handlers, m *middleware.Middlewares) {
	auth := api.Group("/auth")

	// register and login share one bucket per client
	limit := m.RateLimit.Limit()
	auth.POST("/register", handler.Handle(h.Auth.Handler, h.Auth.Register, http.StatusCreated, &model.RegisterPayload{}), limit)
	auth.POST("/login", handler.Handle(h.Auth.Handler, h.Auth.Login, http.StatusOK, &model.LoginPayload{}), limit)

	auth.GET("/me", handler.Handle(h.Auth.Handler, h.Auth.Me, http.StatusOK, &model.EmptyPayload{}), m.Auth.RequireAuth)
	auth.GET("/test-token", handler.Handle(h.Auth.Handler, h.Auth.TestToken, http.StatusOK, &model.EmptyPayload{}), m.Auth.RequireAuth)
}

func registerIngredientRoutes(api *echo.Group, h *handler.Handlers, m *middleware.Middlewares) {
	ingredients := api.Group("/ingredients", m.Auth.RequireAuth)

	ingredients.GET("/list", handler.Handle(h.Ingredients.Handler, h.Ingredients.List, http.StatusOK, &model.ListIngredientsQuery{}))
	ingredients.GET("/functions", handler.Handle(h.Ingredients.Handler, h.Ingredients.Functions, http.StatusOK, &model.EmptyPayload{}))
	ingredients.GET("/phases", handler.Handle(h.Ingredients.Handler, h.Ingredients.Phases, http.StatusOK, &model.EmptyPayload{}))
	ingredients.GET("/:id", handler.Handle(h.Ingredients.Handler, h.Ingredients.Get, http.StatusOK, &model.GetIngredientPayload{}))
}
