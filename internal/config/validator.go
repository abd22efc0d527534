package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and the cross-field rules that tags cannot
// express.
func Validate(cfg *Config) error {
	if cfg == nil {
		return ValidationErrors{{Message: "configuration is nil"}}
	}

	var errs ValidationErrors

	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, ValidationError{
				Path:    trimRoot(fe.Namespace()),
				Message: describe(fe),
			})
		}
	}

	if cfg.Cache.Type == CacheTypeRedis && cfg.Cache.Redis.URL == "" {
		errs = append(errs, ValidationError{
			Path:    "Cache.Redis.URL",
			Message: "is required when the cache type is redis",
		})
	}

	auth0 := cfg.JWT.Auth0
	if cfg.JWT.Enabled && auth0.Enabled {
		if auth0.KeySetURL() == "" {
			errs = append(errs, ValidationError{
				Path:    "JWT.Auth0.Domain",
				Message: "domain or jwksUrl is required when auth0 is enabled",
			})
		}
		if auth0.MetadataKey == "" || auth0.ScopeKey == "" {
			errs = append(errs, ValidationError{
				Path:    "JWT.Auth0",
				Message: "metadataKey and scopeKey must not be empty",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func trimRoot(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
