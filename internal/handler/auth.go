package handler

import (
	"github.com/deppfellow/formula-lab/internal/middleware"
	"github.com/deppfellow/formula-lab/internal/model"
	"github.com/deppfellow/formula-lab/internal/server"
	"github.com/deppfellow/formula-lab/internal/service"
	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	Handler
	auth *service.AuthService
}

func NewAuthHandler(s *server.Server, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Handler: NewHandler(s), auth: auth}
}

type TokenCheckResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
}

func (h *AuthHandler) Register(c echo.Context, payload *model.RegisterPayload) (*model.User, error) {
	return h.auth.Register(c.Request().Context(), payload)
}

func (h *AuthHandler) Login(c echo.Context, payload *model.LoginPayload) (*model.TokenResponse, error) {
	return h.auth.Login(c.Request().Context(), payload)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context, _ *model.EmptyPayload) (*model.User, error) {
	return middleware.GetUser(c), nil
}

func (h *AuthHandler) TestToken(c echo.Context, _ *model.EmptyPayload) (*TokenCheckResponse, error) {
	user := middleware.GetUser(c)
	return &TokenCheckResponse{
		Message: "Token is valid",
		UserID:  user.ID,
		Email:   user.Email,
	}, nil
}
