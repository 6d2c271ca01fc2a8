package handler

import (
	"github.com/deppfellow/formula-lab/internal/server"
	"github.com/deppfellow/formula-lab/internal/service"
)

// Handlers groups every HTTP handler for the router.
type Handlers struct {
	Health      *HealthHandler
	OpenAPI     *OpenAPIHandler
	System      *SystemHandler
	Auth        *AuthHandler
	Ingredients *IngredientHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:      NewHealthHandler(s),
		OpenAPI:     NewOpenAPIHandler(s),
		System:      NewSystemHandler(s),
		Auth:        NewAuthHandler(s, services.Auth),
		Ingredients: NewIngredientHandler(s, services.Ingredients),
	}
}
