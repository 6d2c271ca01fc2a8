package validation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/formula-lab/internal/errs"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupRequest struct {
	FirstName       string `json:"first_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

func (r *signupRequest) Validate() error {
	return Struct(r)
}

func newContext(body string) echo.Context {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestBindAndValidateOK(t *testing.T) {
	c := newContext(`{"first_name":"Ada","email":"ada@example.com","password":"password1","confirm_password":"password1"}`)

	var req signupRequest
	require.NoError(t, BindAndValidate(c, &req))
	assert.Equal(t, "Ada", req.FirstName)
}

func TestBindAndValidateFieldErrors(t *testing.T) {
	c := newContext(`{"email":"not-an-email","password":"short","confirm_password":"other"}`)

	err := BindAndValidate(c, &signupRequest{})
	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)

	got := map[string]string{}
	for _, fe := range httpErr.Errors {
		got[fe.Field] = fe.Error
	}
	assert.Equal(t, "is required", got["first_name"])
	assert.Equal(t, "must be a valid email address", got["email"])
	assert.Equal(t, "must be at least 8 characters", got["password"])
	assert.Equal(t, "must match password", got["confirm_password"])
}

func TestBindAndValidateMalformedJSON(t *testing.T) {
	c := newContext(`{"email":`)

	err := BindAndValidate(c, &signupRequest{})
	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Empty(t, httpErr.Errors)
}

func TestCustomValidationErrors(t *testing.T) {
	msg, fields := extractValidationError(CustomValidationErrors{{Field: "limit", Message: "must not exceed 100"}})
	assert.Equal(t, "Validation failed", msg)
	require.Len(t, fields, 1)
	assert.Equal(t, "limit", fields[0].Field)
}
