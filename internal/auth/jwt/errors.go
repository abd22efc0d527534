package jwt

import (
	"errors"
	"fmt"
)

// JWT signing algorithm constants.
const (
	AlgRS256 = "RS256"
	AlgRS384 = "RS384"
	AlgRS512 = "RS512"
	AlgPS256 = "PS256"
	AlgES256 = "ES256"
	AlgHS256 = "HS256"
	AlgHS384 = "HS384"
	AlgHS512 = "HS512"
)

// Error classes. Every error returned by this package matches exactly one
// of ErrValidation, ErrTokenInvalid or ErrPermissionDenied under errors.Is.
var (
	// ErrValidation covers malformed input and key resolution failures.
	ErrValidation = errors.New("token validation failed")

	// ErrTokenInvalid covers signature and registered claim failures.
	ErrTokenInvalid = errors.New("token verification failed")

	// ErrPermissionDenied covers tokens that verify but grant too little.
	ErrPermissionDenied = errors.New("permission denied")
)

// Sentinel errors for token handling.
var (
	// ErrEmptyToken indicates that no token was supplied.
	ErrEmptyToken = fmt.Errorf("%w: token is empty", ErrValidation)

	// ErrTokenMalformed indicates that the token cannot be decoded.
	ErrTokenMalformed = fmt.Errorf("%w: token is malformed", ErrValidation)

	// ErrKeyResolution indicates that no verification key could be found.
	ErrKeyResolution = fmt.Errorf("%w: signing key could not be resolved", ErrValidation)

	// ErrScopeFormat indicates a scope claim that is neither a string nor a
	// list of strings.
	ErrScopeFormat = fmt.Errorf("%w: scope claim has an unsupported format", ErrPermissionDenied)

	// ErrInsufficientScope indicates that expected scopes are missing.
	ErrInsufficientScope = fmt.Errorf("%w: token lacks expected scopes", ErrPermissionDenied)

	// ErrNotImplemented is returned by BaseParser.Decode.
	ErrNotImplemented = errors.New("decode is not implemented by the base parser")
)

// KeyResolutionReason describes why a key could not be resolved.
type KeyResolutionReason string

// Key resolution failure reasons.
const (
	ReasonMissingKID  KeyResolutionReason = "missing_kid"
	ReasonKIDNotFound KeyResolutionReason = "kid_not_found"
	ReasonFetchFailed KeyResolutionReason = "fetch_failed"
	ReasonInvalidKey  KeyResolutionReason = "invalid_key"
)

// KeyResolutionError is returned when a verification key cannot be found.
type KeyResolutionError struct {
	Reason KeyResolutionReason
	KeyID  string
	Cause  error
}

// Error implements the error interface.
func (e *KeyResolutionError) Error() string {
	msg := fmt.Sprintf("key resolution failed: %s", e.Reason)
	if e.KeyID != "" {
		msg += fmt.Sprintf(" (kid %q)", e.KeyID)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *KeyResolutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrKeyResolution or ErrValidation.
func (e *KeyResolutionError) Is(target error) bool {
	return target == ErrKeyResolution || target == ErrValidation
}

// ValidationError wraps a signature or claim verification failure.
type ValidationError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jwt validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("jwt validation error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrTokenInvalid.
func (e *ValidationError) Is(target error) bool {
	return target == ErrTokenInvalid
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{
		Message: message,
		Cause:   cause,
	}
}

// IsPermissionError reports whether err denies access to an authenticated
// caller.
func IsPermissionError(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
