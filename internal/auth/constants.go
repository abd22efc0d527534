package auth

// HTTP header constants for authentication.
const (
	// HeaderAuthorization is the Authorization header name.
	HeaderAuthorization = "Authorization"

	// HeaderWWWAuthenticate is the WWW-Authenticate header name.
	HeaderWWWAuthenticate = "WWW-Authenticate"

	// HeaderContentType is the Content-Type header name.
	HeaderContentType = "Content-Type"
)

// Content type constants.
const (
	// ContentTypeJSON is the JSON content type.
	ContentTypeJSON = "application/json"
)

// Authentication scheme constants.
const (
	// AuthSchemeBearer is the Bearer authentication scheme prefix.
	AuthSchemeBearer = "Bearer "
)

// Guard outcomes used as metric labels.
const (
	ResultAllowed         = "allowed"
	ResultSkipped         = "skipped"
	ResultUnauthenticated = "unauthenticated"
	ResultForbidden       = "forbidden"
)

// UnknownUser is returned by CurrentUser when no caller id is available.
const UnknownUser = "unknown"

// userIDClaims are the claims naming the caller, in lookup order.
var userIDClaims = []string{"clinician_id", "device_id", "patient_id", "system_id"}
