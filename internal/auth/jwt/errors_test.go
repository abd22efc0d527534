package jwt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClasses(t *testing.T) {
	t.Parallel()

	classes := []error{ErrValidation, ErrTokenInvalid, ErrPermissionDenied}

	tests := []struct {
		name  string
		err   error
		class error
	}{
		{name: "empty token", err: ErrEmptyToken, class: ErrValidation},
		{name: "malformed", err: NewMalformedError(errors.New("bad")), class: ErrValidation},
		{name: "key resolution", err: &KeyResolutionError{Reason: ReasonMissingKID}, class: ErrValidation},
		{name: "validation", err: NewValidationError("bad signature", nil), class: ErrTokenInvalid},
		{name: "scope format", err: ErrScopeFormat, class: ErrPermissionDenied},
		{name: "insufficient scope", err: ErrInsufficientScope, class: ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			for _, class := range classes {
				assert.Equal(t, class == tt.class, errors.Is(tt.err, class), "class %v", class)
			}
		})
	}
}

func TestKeyResolutionError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := &KeyResolutionError{Reason: ReasonFetchFailed, KeyID: "abc", Cause: cause}

	assert.Equal(t, `key resolution failed: fetch_failed (kid "abc"): connection refused`, err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrKeyResolution)

	bare := &KeyResolutionError{Reason: ReasonMissingKID}
	assert.Equal(t, "key resolution failed: missing_kid", bare.Error())
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	cause := errors.New("signature is invalid")
	err := NewValidationError("signature verification failed", cause)

	assert.Equal(t, "jwt validation error: signature verification failed: signature is invalid", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsPermissionError(err))

	assert.Equal(t, "jwt validation error: nope", NewValidationError("nope", nil).Error())
}
