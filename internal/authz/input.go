package authz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vyrodovalexey/jwtguard/internal/config"
)

// maxBodySize bounds the request body read by body-matching predicates.
const maxBodySize = 1 << 20

// Input is everything a predicate may inspect for one request.
type Input struct {
	// Claims is the normalized identity of the caller.
	Claims map[string]any

	// Scopes are the scopes granted by the caller's token.
	Scopes []string

	// Request is the current HTTP request. It may be nil outside a handler.
	Request *http.Request

	// Params are the route parameters of the current request.
	Params map[string]string

	// ProductionFunc reports whether the deployment is production. When nil
	// the ENVIRONMENT variable decides.
	ProductionFunc func() bool

	reasons  []string
	body     map[string]any
	bodyRead bool
}

// NewInput creates an Input. Nil maps are replaced with empty ones.
func NewInput(claims map[string]any, scopes []string, r *http.Request, params map[string]string) *Input {
	if claims == nil {
		claims = map[string]any{}
	}
	if params == nil {
		params = map[string]string{}
	}
	return &Input{
		Claims:  claims,
		Scopes:  scopes,
		Request: r,
		Params:  params,
	}
}

// IsProduction reports whether the request is served by a production
// deployment.
func (in *Input) IsProduction() bool {
	if in.ProductionFunc != nil {
		return in.ProductionFunc()
	}
	return config.IsProduction()
}

// Unmet records a requirement the caller did not satisfy.
func (in *Input) Unmet(format string, args ...any) {
	in.reasons = append(in.reasons, fmt.Sprintf(format, args...))
}

// Reasons returns the unmet requirements recorded so far.
func (in *Input) Reasons() []string {
	return in.reasons
}

// Param returns a route parameter. Params set on the Input win over the
// request's own path values.
func (in *Input) Param(name string) (string, bool) {
	if v, ok := in.Params[name]; ok {
		return v, true
	}
	if in.Request != nil {
		if v := in.Request.PathValue(name); v != "" {
			return v, true
		}
	}
	return "", false
}

// AllParams returns the route parameters merged with the wildcards of the
// request's ServeMux pattern. Params set on the Input win.
func (in *Input) AllParams() map[string]string {
	params := make(map[string]string, len(in.Params))
	if in.Request != nil {
		for _, name := range patternWildcards(in.Request.Pattern) {
			if v := in.Request.PathValue(name); v != "" {
				params[name] = v
			}
		}
	}
	for k, v := range in.Params {
		params[k] = v
	}
	return params
}

// patternWildcards lists the wildcard names of a ServeMux pattern such as
// "GET /patient/{patient_id}/{rest...}".
func patternWildcards(pattern string) []string {
	var names []string
	for {
		start := strings.IndexByte(pattern, '{')
		if start < 0 {
			return names
		}
		end := strings.IndexByte(pattern[start:], '}')
		if end < 0 {
			return names
		}
		name := strings.TrimSuffix(pattern[start+1:start+end], "...")
		if name != "" && name != "$" {
			names = append(names, name)
		}
		pattern = pattern[start+end+1:]
	}
}

// Query returns the first value of the query argument name.
func (in *Input) Query(name string) (string, bool) {
	if in.Request == nil || in.Request.URL == nil {
		return "", false
	}
	values, ok := in.Request.URL.Query()[name]
	if !ok || len(values) == 0 {
		return "", ok
	}
	return values[0], true
}

// JSONBody decodes the request body as a JSON object. The body is read once
// and put back so the handler can still consume it. A missing or non-object
// body yields nil.
func (in *Input) JSONBody() map[string]any {
	if in.bodyRead {
		return in.body
	}
	in.bodyRead = true

	if in.Request == nil || in.Request.Body == nil || in.Request.Body == http.NoBody {
		return nil
	}

	// Only the first maxBodySize bytes are inspected. The handler still sees
	// the whole stream.
	original := in.Request.Body
	raw, err := io.ReadAll(io.LimitReader(original, maxBodySize))
	in.Request.Body = readCloser{
		Reader: io.MultiReader(bytes.NewReader(raw), original),
		Closer: original,
	}
	if err != nil {
		return nil
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	in.body = body
	return body
}

type readCloser struct {
	io.Reader
	io.Closer
}
