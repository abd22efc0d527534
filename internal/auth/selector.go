package auth

import (
	"fmt"
	"slices"

	"github.com/vyrodovalexey/jwtguard/internal/auth/jwt"
)

// Selector picks the parser for a token from its unverified issuer. When
// several parsers accept the same issuer, the one allowing the header
// algorithm wins.
type Selector struct {
	parsers []jwt.Parser
}

// NewSelector creates a selector over parsers. Nil parsers are ignored.
func NewSelector(parsers ...jwt.Parser) *Selector {
	s := &Selector{}
	for _, p := range parsers {
		if p != nil {
			s.parsers = append(s.parsers, p)
		}
	}
	return s
}

// Parsers returns the configured parsers.
func (s *Selector) Parsers() []jwt.Parser {
	return s.parsers
}

// Select returns the parser for a token with the given unverified header
// and claims.
func (s *Selector) Select(header jwt.Header, claims map[string]any) (jwt.Parser, error) {
	iss, _ := claims["iss"].(string)
	if iss == "" {
		return nil, fmt.Errorf("%w: token has no issuer", ErrUnknownIssuer)
	}

	var candidates []jwt.Parser
	for _, p := range s.parsers {
		if p.Issuer() == iss {
			candidates = append(candidates, p)
		}
	}

	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrUnknownIssuer, iss)
	case 1:
		return candidates[0], nil
	}

	alg := header.Algorithm()
	for _, p := range candidates {
		if slices.Contains(p.Algorithms(), alg) {
			return p, nil
		}
	}
	return candidates[0], nil
}
