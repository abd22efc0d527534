package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/vyrodovalexey/jwtguard/internal/auth/jwt"
)

// Sentinel errors for the endpoint guard.
var (
	// ErrNoCredentials indicates that no bearer token was provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrUnknownIssuer indicates that no parser accepts the token issuer.
	ErrUnknownIssuer = fmt.Errorf("%w: no parser for token issuer", jwt.ErrValidation)

	// ErrNoParser indicates a guard configured without any parser.
	ErrNoParser = errors.New("no parser configured")

	// ErrSystemToken indicates that a system token could not be obtained.
	ErrSystemToken = errors.New("system token unavailable")
)

// AuthError is a rejected request: the status returned to the caller and
// the error behind it.
type AuthError struct {
	Status  int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// DeniedError is returned when a predicate rejects an authenticated
// caller. It matches jwt.ErrPermissionDenied.
type DeniedError struct {
	Reasons []string
}

// Reason joins the unmet requirements.
func (e *DeniedError) Reason() string {
	return strings.Join(e.Reasons, "; ")
}

// Error implements the error interface.
func (e *DeniedError) Error() string {
	if len(e.Reasons) == 0 {
		return jwt.ErrPermissionDenied.Error()
	}
	return jwt.ErrPermissionDenied.Error() + ": " + e.Reason()
}

// Unwrap returns jwt.ErrPermissionDenied.
func (e *DeniedError) Unwrap() error {
	return jwt.ErrPermissionDenied
}

// ClassifyError maps a guard failure to the response the caller sees.
// Permission errors are forbidden; everything else, including a missing
// token, is unauthorized.
func ClassifyError(err error) *AuthError {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}

	switch {
	case jwt.IsPermissionError(err):
		return &AuthError{Status: http.StatusForbidden, Message: "forbidden", Cause: err}
	case errors.Is(err, ErrNoCredentials):
		return &AuthError{Status: http.StatusUnauthorized, Message: "authentication required", Cause: err}
	default:
		return &AuthError{Status: http.StatusUnauthorized, Message: "invalid token", Cause: err}
	}
}
