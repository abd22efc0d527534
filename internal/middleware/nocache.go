package middleware

import "net/http"

// NoCache returns a middleware that forbids clients and proxies from caching
// the response.
func NoCache() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set(HeaderCacheControl, "no-cache, must-revalidate")
			h.Set(HeaderPragma, "no-cache")
			h.Set(HeaderExpires, "0")

			next.ServeHTTP(w, r)
		})
	}
}
