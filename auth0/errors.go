package auth0

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine-readable code carried in auth failure responses.
type ErrorCode string

const (
	CodeMissingHeader      ErrorCode = "missing_auth_header"
	CodeMalformedHeader    ErrorCode = "invalid_header"
	CodeInvalidHeader      ErrorCode = "invalid_token_header"
	CodeKeyNotFound        ErrorCode = "key_not_found"
	CodeExpiredToken       ErrorCode = "token_expired"
	CodeInvalidClaims      ErrorCode = "invalid_claims"
	CodeUnparsableToken    ErrorCode = "unparsable_token"
	CodeMissingPermissions ErrorCode = "missing_permissions"
	CodeForbidden          ErrorCode = "permission_denied"
)

// AuthError is the only error kind that crosses the authorization gate.
// It carries everything needed to render the failure response.
type AuthError struct {
	Code        ErrorCode
	Description string
	StatusCode  int
	Err         error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches on Code so errors.Is(err, ErrExpiredToken) holds for any
// expired-token failure regardless of description or cause.
func (e *AuthError) Is(target error) bool {
	var t *AuthError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithDescription returns a copy with a different description.
func (e *AuthError) WithDescription(desc string) *AuthError {
	c := *e
	c.Description = desc
	return &c
}

// Wrap returns a copy carrying cause for logging. The cause is never rendered.
func (e *AuthError) Wrap(cause error) *AuthError {
	c := *e
	c.Err = cause
	return &c
}

var (
	ErrMissingHeader = &AuthError{
		Code:        CodeMissingHeader,
		Description: "Authorization header is expected.",
		StatusCode:  http.StatusUnauthorized,
	}
	ErrMalformedHeader = &AuthError{
		Code:        CodeMalformedHeader,
		Description: "Authorization header must be a bearer token.",
		StatusCode:  http.StatusUnauthorized,
	}
	ErrInvalidHeader = &AuthError{
		Code:        CodeInvalidHeader,
		Description: "Authorization malformed.",
		StatusCode:  http.StatusUnauthorized,
	}
	ErrKeyNotFound = &AuthError{
		Code:        CodeKeyNotFound,
		Description: "Unable to find the appropriate key.",
		StatusCode:  http.StatusBadRequest,
	}
	ErrExpiredToken = &AuthError{
		Code:        CodeExpiredToken,
		Description: "Token expired.",
		StatusCode:  http.StatusUnauthorized,
	}
	ErrInvalidClaims = &AuthError{
		Code:        CodeInvalidClaims,
		Description: "Incorrect claims. Please, check the audience and issuer.",
		StatusCode:  http.StatusUnauthorized,
	}
	ErrUnparsableToken = &AuthError{
		Code:        CodeUnparsableToken,
		Description: "Unable to parse authentication token.",
		StatusCode:  http.StatusBadRequest,
	}
	ErrMissingPermissionsClaim = &AuthError{
		Code:        CodeMissingPermissions,
		Description: "Permissions not included in JWT.",
		StatusCode:  http.StatusBadRequest,
	}
	ErrForbidden = &AuthError{
		Code:        CodeForbidden,
		Description: "Permission not found.",
		StatusCode:  http.StatusUnauthorized,
	}
)

// AsAuthError extracts an *AuthError from err. Any other error becomes an
// unparsable-token failure wrapping it.
func AsAuthError(err error) *AuthError {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	return ErrUnparsableToken.Wrap(err)
}
