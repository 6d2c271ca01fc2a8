package model

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator adds "maxbytes", a length bound on the encoded string.
// Passwords need it: bcrypt reads at most 72 bytes.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	if err != nil {
		panic(err)
	}
	return v
}

type RegisterPayload struct {
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,maxbytes=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

func (p *RegisterPayload) Validate() error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Email = NormalizeEmail(p.Email)
	return validate.Struct(p)
}

type LoginPayload struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

func (p *LoginPayload) Validate() error {
	p.Email = NormalizeEmail(p.Email)
	return validate.Struct(p)
}

// EmptyPayload is bound by endpoints that take no input.
type EmptyPayload struct{}

func (p *EmptyPayload) Validate() error { return nil }

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        *User  `json:"user"`
}

// NormalizeEmail makes email lookups case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
