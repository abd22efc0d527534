package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"

	"github.com/vyrodovalexey/jwtguard/internal/authz"
)

// Protect returns an HTTP middleware that admits a request only when its
// bearer token is valid and p holds. A nil predicate admits every
// authenticated caller.
//
// Whether the guard runs in production is decided here, once. Outside
// production with IgnoreValidation set the handler is called directly.
func (g *Guard) Protect(p authz.Predicate) func(http.Handler) http.Handler {
	gd := g.guard(p)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			if gd.skip {
				g.metrics.RecordRequest(ResultSkipped, time.Since(start))
				next.ServeHTTP(w, r)
				return
			}

			var params map[string]string
			if g.paramFunc != nil {
				params = g.paramFunc(r)
			}

			ctx, err := g.authorize(r, gd.predicate, params)
			g.record(start, err)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProtectFunc is Protect for a handler function.
func (g *Guard) ProtectFunc(p authz.Predicate, handler http.HandlerFunc) http.Handler {
	return g.Protect(p)(handler)
}

// GinProtect returns a gin middleware equivalent to Protect. Route
// parameters come from the gin context.
func (g *Guard) GinProtect(p authz.Predicate) gin.HandlerFunc {
	gd := g.guard(p)

	return func(c *gin.Context) {
		start := time.Now()
		if gd.skip {
			g.metrics.RecordRequest(ResultSkipped, time.Since(start))
			c.Next()
			return
		}

		params := make(map[string]string, len(c.Params))
		for _, param := range c.Params {
			params[param.Key] = param.Value
		}

		ctx, err := g.authorize(c.Request, gd.predicate, params)
		g.record(start, err)
		if err != nil {
			ae := ClassifyError(err)
			if ae.Status == http.StatusUnauthorized {
				c.Header(HeaderWWWAuthenticate, "Bearer")
			}
			c.AbortWithStatusJSON(ae.Status, gin.H{"error": ae.Message})
			return
		}

		c.Request = c.Request.WithContext(ctx)
		c.Set(ginClaimsKey, ClaimsFromContext(ctx))
		c.Next()
	}
}

// ginClaimsKey is the gin context key holding the caller's claims.
const ginClaimsKey = "jwt_claims"

// ChiParams returns the chi URL parameters of r. Use it with
// WithParamFunc when routes are served by chi.
func ChiParams(r *http.Request) map[string]string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return nil
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		if i < len(rctx.URLParams.Values) {
			params[key] = rctx.URLParams.Values[i]
		}
	}
	return params
}

// writeAuthError writes the JSON error response for a rejected request.
func writeAuthError(w http.ResponseWriter, err error) {
	ae := ClassifyError(err)

	w.Header().Set(HeaderContentType, ContentTypeJSON)
	if ae.Status == http.StatusUnauthorized {
		w.Header().Set(HeaderWWWAuthenticate, "Bearer")
	}
	w.WriteHeader(ae.Status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": ae.Message,
	})
}
