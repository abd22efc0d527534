// Package config loads and validates the service configuration.
//
// Values come from three layers, later layers winning: built-in defaults,
// an optional YAML file with ${VAR} and ${VAR:-default} substitution, and
// the process environment (HS_KEY, PROXY_URL, AUTH0_* and friends). A .env
// file can seed the environment through LoadDotEnv.
package config
