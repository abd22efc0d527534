package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

const testHSKey = "secret"

var (
	rsaKeyOnce sync.Once
	rsaKeys    map[string]*rsa.PrivateKey
)

// testRSAKey returns a process-wide RSA key for kid, generating a small set
// once so tests stay fast.
func testRSAKey(t *testing.T, kid string) *rsa.PrivateKey {
	t.Helper()

	rsaKeyOnce.Do(func() {
		rsaKeys = make(map[string]*rsa.PrivateKey)
		for _, id := range []string{"kid-1", "kid-2", "kid-3"} {
			key, err := rsa.GenerateKey(rand.Reader, 2048)
			if err != nil {
				panic(err)
			}
			rsaKeys[id] = key
		}
	})

	key, ok := rsaKeys[kid]
	require.True(t, ok, "unknown test kid %s", kid)
	return key
}

// jwksJSON builds a serialized key set holding the public halves of kids.
func jwksJSON(t *testing.T, kids ...string) []byte {
	t.Helper()

	set := jwk.NewSet()
	for _, kid := range kids {
		key, err := jwk.FromRaw(&testRSAKey(t, kid).PublicKey)
		require.NoError(t, err)
		require.NoError(t, key.Set(jwk.KeyIDKey, kid))
		require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256))
		require.NoError(t, set.AddKey(key))
	}

	raw, err := json.Marshal(set)
	require.NoError(t, err)
	return raw
}

func signHS(t *testing.T, claims gjwt.MapClaims, key string, method gjwt.SigningMethod) string {
	t.Helper()

	if method == nil {
		method = gjwt.SigningMethodHS256
	}
	token, err := gjwt.NewWithClaims(method, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func signRS(t *testing.T, claims gjwt.MapClaims, kid string) string {
	t.Helper()

	token := gjwt.NewWithClaims(gjwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(testRSAKey(t, kid))
	require.NoError(t, err)
	return signed
}

func signRSWithKey(t *testing.T, claims gjwt.MapClaims, kid, keyOf string) string {
	t.Helper()

	token := gjwt.NewWithClaims(gjwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(testRSAKey(t, keyOf))
	require.NoError(t, err)
	return signed
}

// jwksServer serves whatever body currently holds and counts requests.
type jwksServer struct {
	*httptest.Server
	calls  atomic.Int32
	mu     sync.Mutex
	body   []byte
	status int
}

func newJWKSServer(t *testing.T, body []byte) *jwksServer {
	t.Helper()

	s := &jwksServer{body: body, status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.calls.Add(1)
		s.mu.Lock()
		defer s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.status)
		_, _ = w.Write(s.body)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) setBody(body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = body
}

func (s *jwksServer) setStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func observedLogger() (observability.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return observability.NewZapLogger(zap.New(core)), logs
}
