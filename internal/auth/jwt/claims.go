package jwt

import (
	"fmt"
	"strings"
)

// Reserved identity keys.
const (
	ClaimRaw         = "raw"
	ClaimSubject     = "sub"
	ClaimIssuer      = "iss"
	ClaimLocations   = "locations"
	ClaimLocationIDs = "location_ids"
)

// Identity is the normalized claim set exposed to authorization code.
type Identity map[string]any

// Get returns the value stored under key.
func (i Identity) Get(key string) (any, bool) {
	v, ok := i[key]
	return v, ok
}

// String returns the value under key when it is a string.
func (i Identity) String(key string) string {
	s, _ := i[key].(string)
	return s
}

// Raw returns the unmodified claim map of the token.
func (i Identity) Raw() map[string]any {
	raw, _ := i[ClaimRaw].(map[string]any)
	return raw
}

// NormalizeClaims flattens the issuer-specific metadata object of raw into
// an Identity and extracts the scope list.
//
// Every metadata key is copied verbatim except "locations", which becomes
// "location_ids" holding the id of each location in order. "sub" and "iss"
// are added from the registered claims when present and override metadata
// keys of the same name. "raw" always holds the full claim map.
func NormalizeClaims(raw map[string]any, metadataKey, scopeKey string) (Identity, []string, error) {
	identity := Identity{}

	if metadata, ok := raw[metadataKey].(map[string]any); ok {
		for k, v := range metadata {
			if k == ClaimLocations {
				identity[ClaimLocationIDs] = locationIDs(v)
				continue
			}
			identity[k] = v
		}
	}

	for _, k := range []string{ClaimSubject, ClaimIssuer} {
		if v, ok := raw[k]; ok {
			identity[k] = v
		}
	}
	identity[ClaimRaw] = raw

	scopes, err := NormalizeScopes(raw[scopeKey])
	if err != nil {
		return nil, nil, err
	}

	return identity, scopes, nil
}

// NormalizeScopes turns a scope claim into a list. A string is split on
// whitespace; a list must hold only strings; nil yields an empty list.
func NormalizeScopes(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return []string{}, nil
	case string:
		return strings.Fields(v), nil
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: list element of type %T", ErrScopeFormat, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrScopeFormat, value)
	}
}

func locationIDs(value any) []any {
	list, ok := value.([]any)
	if !ok {
		return []any{}
	}

	ids := make([]any, 0, len(list))
	for _, item := range list {
		loc, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := loc["id"]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
