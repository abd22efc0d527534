package authz

import "errors"

// Policy errors.
var (
	// ErrInvalidPolicy indicates that a policy expression does not compile.
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrPolicyNotFound indicates that a named policy does not exist.
	ErrPolicyNotFound = errors.New("policy not found")
)
