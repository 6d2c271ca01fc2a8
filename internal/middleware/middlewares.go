package middleware

import (
	"github.com/deppfellow/formula-lab/internal/lib/token"
	"github.com/deppfellow/formula-lab/internal/server"
)

// Middlewares is built once at startup and handed to the router.
type Middlewares struct {
	Global          *GlobalMiddlewares
	Auth            *AuthMiddleware
	ContextEnhancer *ContextEnhancer
	Tracing         *TracingMiddleware
	RateLimit       *RateLimitMiddleware
	Metrics         *MetricsMiddleware
}

func NewMiddlewares(s *server.Server, users UserLookup) *Middlewares {
	return &Middlewares{
		Global:          NewGlobalMiddlewares(s),
		Auth:            NewAuthMiddleware(s, token.NewManager(s.Config.Auth.SecretKey), users),
		ContextEnhancer: NewContextEnhancer(s),
		Tracing:         NewTracingMiddleware(s, s.LoggerService.GetApplication()),
		RateLimit:       NewRateLimitMiddleware(s),
		Metrics:         NewMetricsMiddleware(s),
	}
}
