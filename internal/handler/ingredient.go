package handler

import (
	"github.com/deppfellow/formula-lab/internal/middleware"
	"github.com/deppfellow/formula-lab/internal/model"
	"github.com/deppfellow/formula-lab/internal/server"
	"github.com/deppfellow/formula-lab/internal/service"
	"github.com/labstack/echo/v4"
)

type IngredientHandler struct {
	Handler
	ingredients *service.IngredientService
}

func NewIngredientHandler(s *server.Server, ingredients *service.IngredientService) *IngredientHandler {
	return &IngredientHandler{Handler: NewHandler(s), ingredients: ingredients}
}

func (h *IngredientHandler) List(c echo.Context, query *model.ListIngredientsQuery) ([]model.Ingredient, error) {
	return h.ingredients.List(c.Request().Context(), middleware.GetPlan(c), query)
}

func (h *IngredientHandler) Functions(c echo.Context, _ *model.EmptyPayload) ([]string, error) {
	return h.ingredients.Functions(c.Request().Context(), middleware.GetPlan(c))
}

func (h *IngredientHandler) Phases(c echo.Context, _ *model.EmptyPayload) ([]string, error) {
	return h.ingredients.Phases(c.Request().Context(), middleware.GetPlan(c))
}

func (h *IngredientHandler) Get(c echo.Context, payload *model.GetIngredientPayload) (*model.Ingredient, error) {
	return h.ingredients.Get(c.Request().Context(), middleware.GetPlan(c), payload.ID)
}
