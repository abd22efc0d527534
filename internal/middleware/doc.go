// Package middleware provides the HTTP middleware wrapped around guarded
// handlers.
//
//   - RequestID: echoes or generates X-Request-ID and adds it to the log context
//   - Tracing: starts a server span per request
//   - Logging: one structured log line per request
//   - Recovery: turns a panic into a 500 JSON response
//   - NoCache: marks responses as not cacheable
//
// Middleware functions follow the standard Go pattern:
//
//	handler := middleware.Recovery(logger)(
//	    middleware.RequestID()(
//	        middleware.Logging(logger)(yourHandler),
//	    ),
//	)
package middleware
