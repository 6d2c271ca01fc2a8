package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/deppfellow/formula-lab/internal/errs"
	"github.com/deppfellow/formula-lab/internal/lib/token"
	"github.com/deppfellow/formula-lab/internal/lib/utils"
	"github.com/deppfellow/formula-lab/internal/model"
	"github.com/deppfellow/formula-lab/internal/server"
	"github.com/deppfellow/formula-lab/internal/sqlerr"
	"golang.org/x/crypto/bcrypt"
)

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, u *model.User) (*model.User, error)
}

type welcomeSender interface {
	EnqueueWelcomeEmail(ctx context.Context, to, firstName string) error
}

type AuthService struct {
	server  *server.Server
	users   userStore
	tokens  *token.Manager
	welcome welcomeSender
}

func NewAuthService(s *server.Server, users userStore) *AuthService {
	svc := &AuthService{
		server: s,
		users:  users,
		tokens: token.NewManager(s.Config.Auth.SecretKey),
	}
	if s.Job != nil {
		svc.welcome = s.Job
	}
	return svc
}

// Register creates a free, unverified account and queues a welcome email
// when background jobs are available.
func (a *AuthService) Register(ctx context.Context, p *model.RegisterPayload) (*model.User, error) {
	logger := a.server.Logger.With().Str("operation", "register").Logger()

	if _, err := a.users.GetByEmail(ctx, p.Email); err == nil {
		return nil, errs.NewBadRequestError("Email already registered", false, nil, nil, nil)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hashed, err := utils.HashPassword(p.Password, a.server.Config.Auth.BcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, errs.NewBadRequestError("Validation failed", false, nil, []errs.FieldError{
			{Field: "password", Error: "must not exceed 72 bytes"},
		}, nil)
	}
	if err != nil {
		return nil, err
	}

	user, err := a.users.Create(ctx, &model.User{
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Email:            p.Email,
		HashedPassword:   hashed,
		IsActive:         true,
		SubscriptionType: model.SubscriptionFree,
	})
	if err != nil {
		// a concurrent registration can still win the unique index
		if sqlerr.ErrCode(err) == sqlerr.UniqueViolation {
			return nil, errs.NewBadRequestError("Email already registered", false, nil, nil, nil)
		}
		return nil, err
	}

	a.server.Metrics.Registrations.Inc()
	logger.Info().Int64("user_id", user.ID).Msg("user registered")

	if a.welcome != nil {
		if err := a.welcome.EnqueueWelcomeEmail(ctx, user.Email, user.FirstName); err != nil {
			logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to enqueue welcome email")
		}
	}

	return user, nil
}

// Login checks the credentials and issues a bearer token. remember_me
// selects the long-lived token.
func (a *AuthService) Login(ctx context.Context, p *model.LoginPayload) (*model.TokenResponse, error) {
	user, err := a.users.GetByEmail(ctx, p.Email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if user == nil || !a.passwordMatches(user, p.Password) {
		a.server.Metrics.Logins.WithLabelValues("failure").Inc()
		return nil, errs.NewUnauthorizedError("Incorrect email or password", false)
	}
	if !user.IsActive {
		a.server.Metrics.Logins.WithLabelValues("inactive").Inc()
		return nil, errs.NewBadRequestError("Inactive user", false, nil, nil, nil)
	}

	ttl := a.server.Config.Auth.ShortTokenTTL()
	if p.RememberMe {
		ttl = a.server.Config.Auth.AccessTokenTTL()
	}

	accessToken, _, err := a.tokens.Issue(user.ID, ttl)
	if err != nil {
		return nil, fmt.Errorf("issuing token for user %d: %w", user.ID, err)
	}

	a.server.Metrics.Logins.WithLabelValues("success").Inc()
	a.server.Logger.Info().
		Int64("user_id", user.ID).
		Dur("ttl", ttl).
		Msg("user logged in")

	return &model.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(ttl / time.Second),
		User:        user,
	}, nil
}

func (a *AuthService) passwordMatches(user *model.User, password string) bool {
	ok, err := utils.CheckPassword(user.HashedPassword, password)
	if err != nil {
		a.server.Logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to compare password hash")
		return false
	}
	return ok
}
