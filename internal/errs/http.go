package errs

import (
	"net/http"
)

func newHTTPError(status int, message string, override bool, code *string) *HTTPError {
	formattedCode := MakeUpperCaseWithUnderscores(http.StatusText(status))
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Code:     formattedCode,
		Message:  message,
		Status:   status,
		Override: override,
	}
}

// NewUnauthorizedError creates a 401 error.
func NewUnauthorizedError(message string, override bool) *HTTPError {
	return newHTTPError(http.StatusUnauthorized, message, override, nil)
}

// NewForbiddenError creates a 403 error.
func NewForbiddenError(message string, override bool) *HTTPError {
	return newHTTPError(http.StatusForbidden, message, override, nil)
}

// NewBadRequestError creates a 400 error. code defaults to BAD_REQUEST.
func NewBadRequestError(message string, override bool, code *string, errors []FieldError, action *Action) *HTTPError {
	err := newHTTPError(http.StatusBadRequest, message, override, code)
	err.Errors = errors
	err.Action = action
	return err
}

// NewNotFoundError creates a 404 error. code defaults to NOT_FOUND.
func NewNotFoundError(message string, override bool, code *string) *HTTPError {
	return newHTTPError(http.StatusNotFound, message, override, code)
}

// NewConflictError creates a 409 error, used for unique-key clashes.
func NewConflictError(message string, override bool, code *string) *HTTPError {
	return newHTTPError(http.StatusConflict, message, override, code)
}

// NewTooManyRequestsError creates a 429 error.
func NewTooManyRequestsError(message string) *HTTPError {
	return newHTTPError(http.StatusTooManyRequests, message, true, nil)
}

// NewServiceUnavailableError creates a 503 error.
func NewServiceUnavailableError(message string, override bool) *HTTPError {
	return newHTTPError(http.StatusServiceUnavailable, message, override, nil)
}

// NewInternalServerError creates a 500 error with the generic status text,
// never the underlying cause.
func NewInternalServerError() *HTTPError {
	return newHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false, nil)
}

// ValidationError wraps a validation failure in a 400 error.
func ValidationError(err error) *HTTPError {
	return NewBadRequestError("Validation failed: "+err.Error(), false, nil, nil, nil)
}
