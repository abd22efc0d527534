package auth

import (
	"net/http"
	"strings"
)

// ExtractBearerToken extracts a bearer token from the Authorization header.
// A missing header, another scheme or an empty token yields "".
func ExtractBearerToken(r *http.Request) string {
	auth := r.Header.Get(HeaderAuthorization)
	if auth == "" {
		return ""
	}

	if !strings.HasPrefix(auth, AuthSchemeBearer) {
		return ""
	}

	return strings.TrimSpace(auth[len(AuthSchemeBearer):])
}

// ParamFunc returns the route parameters of a request.
type ParamFunc func(r *http.Request) map[string]string
