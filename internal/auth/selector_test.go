package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/jwtguard/internal/auth/jwt"
)

func TestSelector_Select(t *testing.T) {
	t.Parallel()

	const providerIssuer = "https://tenant.auth0.com/"

	internal := testParser()
	standard := jwt.NewBaseParser(jwt.ParserConfig{
		RequiredIssuer:    providerIssuer,
		AllowedAlgorithms: []string{jwt.AlgRS256},
	})
	login := jwt.NewBaseParser(jwt.ParserConfig{
		RequiredIssuer:    providerIssuer,
		AllowedAlgorithms: []string{jwt.AlgHS256},
	})

	s := NewSelector(internal, nil, standard, login)
	require.Len(t, s.Parsers(), 3)

	tests := []struct {
		name    string
		header  jwt.Header
		claims  map[string]any
		want    jwt.Parser
		wantErr bool
	}{
		{
			name:   "single parser for issuer",
			header: jwt.Header{"alg": "HS256"},
			claims: map[string]any{"iss": testIssuer},
			want:   internal,
		},
		{
			name:   "algorithm picks standard",
			header: jwt.Header{"alg": "RS256"},
			claims: map[string]any{"iss": providerIssuer},
			want:   standard,
		},
		{
			name:   "algorithm picks login",
			header: jwt.Header{"alg": "HS256"},
			claims: map[string]any{"iss": providerIssuer},
			want:   login,
		},
		{
			name:   "unknown algorithm falls back to first",
			header: jwt.Header{"alg": "ES256"},
			claims: map[string]any{"iss": providerIssuer},
			want:   standard,
		},
		{
			name:    "unknown issuer",
			header:  jwt.Header{"alg": "HS256"},
			claims:  map[string]any{"iss": "https://other/"},
			wantErr: true,
		},
		{
			name:    "missing issuer",
			header:  jwt.Header{"alg": "HS256"},
			claims:  map[string]any{},
			wantErr: true,
		},
		{
			name:    "non-string issuer",
			claims:  map[string]any{"iss": 7},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := s.Select(tt.header, tt.claims)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownIssuer)
				assert.ErrorIs(t, err, jwt.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}
}
