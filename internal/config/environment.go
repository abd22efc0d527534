package config

import (
	"os"
	"strings"
)

// EnvironmentVariable holds the deployment environment name.
const EnvironmentVariable = "ENVIRONMENT"

// Environment is a deployment environment name.
type Environment string

// Known environments.
const (
	EnvironmentDevelopment Environment = "DEVELOPMENT"
	EnvironmentProduction  Environment = "PRODUCTION"
)

// CurrentEnvironment reads the deployment environment from the process
// environment at call time.
func CurrentEnvironment() Environment {
	return Environment(os.Getenv(EnvironmentVariable))
}

// IsProduction reports whether the environment is production.
func (e Environment) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(string(e)), string(EnvironmentProduction))
}

// IsProduction reports whether the process currently runs in production.
func IsProduction() bool {
	return CurrentEnvironment().IsProduction()
}
