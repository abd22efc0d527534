package middleware

// HTTP header constants.
const (
	// HeaderContentType is the Content-Type header name.
	HeaderContentType = "Content-Type"

	// HeaderCacheControl is the Cache-Control header name.
	HeaderCacheControl = "Cache-Control"

	// HeaderPragma is the Pragma header name.
	HeaderPragma = "Pragma"

	// HeaderExpires is the Expires header name.
	HeaderExpires = "Expires"
)

// Content type constants.
const (
	// ContentTypeJSON is the JSON content type.
	ContentTypeJSON = "application/json"
)

// ErrInternalServerError is the body written after a recovered panic.
const ErrInternalServerError = `{"error":"internal server error"}`
