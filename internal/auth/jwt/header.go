package jwt

import (
	"fmt"
	"strings"

	gjwt "github.com/golang-jwt/jwt/v5"
)

// Header is the decoded, unverified JOSE header of a token.
type Header map[string]any

// Algorithm returns the "alg" header value.
func (h Header) Algorithm() string {
	alg, _ := h["alg"].(string)
	return alg
}

// KeyID returns the "kid" header value.
func (h Header) KeyID() string {
	kid, _ := h["kid"].(string)
	return kid
}

// ParseUnverified decodes the header and claims of token without checking
// its signature. The result must only be used to route the token to a
// parser.
func ParseUnverified(token string) (Header, map[string]any, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil, ErrEmptyToken
	}

	claims := gjwt.MapClaims{}
	parsed, _, err := gjwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return nil, nil, NewMalformedError(err)
	}
	return Header(parsed.Header), claims, nil
}

// ParseUnverifiedHeader decodes only what callers need to choose a parser.
func ParseUnverifiedHeader(token string) (Header, error) {
	header, _, err := ParseUnverified(token)
	return header, err
}

// NewMalformedError wraps a decoding failure as ErrTokenMalformed.
func NewMalformedError(cause error) error {
	return fmt.Errorf("%w: %w", ErrTokenMalformed, cause)
}
