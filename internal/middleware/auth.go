package middleware

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/deppfellow/formula-lab/internal/errs"
	"github.com/deppfellow/formula-lab/internal/lib/token"
	"github.com/deppfellow/formula-lab/internal/model"
	"github.com/deppfellow/formula-lab/internal/server"
	"github.com/labstack/echo/v4"
)

// UserLookup loads the user a token was issued for.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type AuthMiddleware struct {
	server *server.Server
	tokens *token.Manager
	users  UserLookup
	now    func() time.Time
}

func NewAuthMiddleware(s *server.Server, tokens *token.Manager, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{
		server: s,
		tokens: tokens,
		users:  users,
		now:    time.Now,
	}
}

func credentialsError() error {
	return errs.NewUnauthorizedError("Could not validate credentials", false)
}

// RequireAuth accepts "Authorization: Bearer <token>", loads the token's
// user and rejects inactive accounts.
func (auth *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		logger := GetLogger(c)

		scheme, raw, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			return credentialsError()
		}

		userID, err := auth.tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			logger.Warn().
				Err(err).
				Str("function", "RequireAuth").
				Dur("duration", time.Since(start)).
				Msg("rejected bearer token")
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			return credentialsError()
		}

		user, err := auth.users.GetByID(c.Request().Context(), userID)
		if errors.Is(err, sql.ErrNoRows) {
			return credentialsError()
		}
		if err != nil {
			return err
		}
		if !user.IsActive {
			return errs.NewBadRequestError("Inactive user", false, nil, nil, nil)
		}

		withUser(c, user, user.EffectiveSubscription(auth.now()))

		GetLogger(c).Debug().
			Str("function", "RequireAuth").
			Dur("duration", time.Since(start)).
			Msg("user authenticated")

		return next(c)
	}
}
