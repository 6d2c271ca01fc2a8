package middleware

import (
	"context"

	"github.com/deppfellow/formula-lab/internal/logger"
	"github.com/deppfellow/formula-lab/internal/model"
	"github.com/deppfellow/formula-lab/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
)

const (
	UserIDKey   = "user_id"
	UserRoleKey = "user_role"
	UserKey     = "user"
	LoggerKey   = "logger"
)

type loggerCtxKey struct{}

// ContextEnhancer attaches a request-scoped logger carrying the request id,
// route, client ip and, when present, the trace and user.
type ContextEnhancer struct {
	server *server.Server
}

func NewContextEnhancer(s *server.Server) *ContextEnhancer {
	return &ContextEnhancer{server: s}
}

func (ce *ContextEnhancer) EnhanceContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			contextLogger := ce.server.Logger.With().
				Str("request_id", GetRequestID(c)).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Str("ip", c.RealIP()).
				Logger()

			if txn := newrelic.FromContext(c.Request().Context()); txn != nil {
				contextLogger = logger.WithTraceContext(contextLogger, txn)
			}

			setLogger(c, &contextLogger)
			return next(c)
		}
	}
}

func setLogger(c echo.Context, l *zerolog.Logger) {
	c.Set(LoggerKey, l)
	ctx := context.WithValue(c.Request().Context(), loggerCtxKey{}, l)
	c.SetRequest(c.Request().WithContext(ctx))
}

// withUser records the authenticated user and adds it to the request logger.
func withUser(c echo.Context, user *model.User, plan model.SubscriptionType) {
	userID := model.FormatID(user.ID)
	c.Set(UserKey, user)
	c.Set(UserIDKey, userID)
	c.Set(UserRoleKey, string(plan))

	l := GetLogger(c).With().
		Str("user_id", userID).
		Str("user_role", string(plan)).
		Logger()
	setLogger(c, &l)
}

func GetUserID(c echo.Context) string {
	if userID, ok := c.Get(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// GetUser returns the authenticated user, or nil outside RequireAuth.
func GetUser(c echo.Context) *model.User {
	if user, ok := c.Get(UserKey).(*model.User); ok {
		return user
	}
	return nil
}

// GetPlan returns the effective subscription of the authenticated user.
func GetPlan(c echo.Context) model.SubscriptionType {
	if plan, ok := c.Get(UserRoleKey).(string); ok && plan != "" {
		return model.SubscriptionType(plan)
	}
	return model.SubscriptionFree
}

// GetLogger returns the request-scoped logger, or a no-op logger when
// EnhanceContext did not run.
func GetLogger(c echo.Context) *zerolog.Logger {
	if l, ok := c.Get(LoggerKey).(*zerolog.Logger); ok {
		return l
	}
	l := zerolog.Nop()
	return &l
}

// LoggerFromContext is GetLogger for code that only sees a context.Context.
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*zerolog.Logger); ok {
		return l
	}
	l := zerolog.Nop()
	return &l
}
