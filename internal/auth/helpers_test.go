package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/jwtguard/internal/auth/jwt"
	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

const (
	testSecret = "secret"
	testIssuer = "http://localhost/"
)

func testParser() jwt.Parser {
	return jwt.NewInternalParser(jwt.ParserConfig{
		RequiredAudience:  testIssuer,
		RequiredIssuer:    testIssuer,
		AllowedAlgorithms: []string{jwt.AlgHS256},
		MetadataKey:       "metadata",
		ScopeKey:          "scope",
		Verify:            true,
	}, []byte(testSecret))
}

func testClaims(scope string, metadata map[string]any) gjwt.MapClaims {
	claims := gjwt.MapClaims{
		"iss":   testIssuer,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": scope,
	}
	if metadata != nil {
		claims["metadata"] = metadata
	}
	return claims
}

func signToken(t *testing.T, claims gjwt.MapClaims) string {
	t.Helper()

	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func bearerRequest(method, target, token string) *http.Request {
	r := httptest.NewRequest(method, target, http.NoBody)
	if token != "" {
		r.Header.Set(HeaderAuthorization, AuthSchemeBearer+token)
	}
	return r
}

func observedLogger() (observability.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return observability.NewZapLogger(zap.New(core)), logs
}

func production(v bool) func() bool {
	return func() bool { return v }
}

// okHandler answers 200 with the current user.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(CurrentUser(r.Context())))
})
