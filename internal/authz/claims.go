package authz

import (
	"reflect"
	"strconv"
)

// KeyPresent is true when the caller's claims contain key.
func KeyPresent(key string) Predicate {
	return Func(func(in *Input) bool {
		if _, ok := in.Claims[key]; ok {
			return true
		}
		in.Unmet("missing claim %q", key)
		return false
	})
}

// KeyContainsValue is true when the claim key holds value. A list claim
// matches when it contains value, an object claim when it has value as a
// key, and any other claim when it equals value.
func KeyContainsValue(key string, value any) Predicate {
	return Func(func(in *Input) bool {
		claim, ok := in.Claims[key]
		if ok && containsValue(claim, value) {
			return true
		}
		in.Unmet("claim %q does not contain %v", key, value)
		return false
	})
}

// KeyContainsValueInList is true when the claim key equals one of values,
// or, for a list claim, when any of its elements does. An absent claim
// never matches.
func KeyContainsValueInList(key string, values []any) Predicate {
	return Func(func(in *Input) bool {
		claim, ok := in.Claims[key]
		if ok {
			if list, isList := asList(claim); isList {
				for _, item := range list {
					if inList(item, values) {
						return true
					}
				}
			} else if inList(claim, values) {
				return true
			}
		}
		in.Unmet("claim %q matches none of %v", key, values)
		return false
	})
}

// KeyContainsAllValues is true when the claim key, taken as a set, holds
// every one of values. A scalar claim is a set of one. An absent claim
// never matches.
func KeyContainsAllValues(key string, values []any) Predicate {
	return Func(func(in *Input) bool {
		claim, ok := in.Claims[key]
		if ok {
			set, isList := asList(claim)
			if !isList {
				set = []any{claim}
			}
			all := true
			for _, v := range values {
				if !inList(v, set) {
					all = false
					break
				}
			}
			if all {
				return true
			}
		}
		in.Unmet("claim %q does not contain all of %v", key, values)
		return false
	})
}

// CompareKeys checks, for every route parameter named in mapping, that the
// claim it maps to equals the parameter value. Claims holding a list or an
// object never match. An empty mapping is always satisfied.
func CompareKeys(claims map[string]any, mapping map[string]string, params map[string]string) bool {
	for param, claimName := range mapping {
		want, ok := params[param]
		if !ok {
			return false
		}
		got, ok := scalarString(claims[claimName])
		if !ok || got != want {
			return false
		}
	}
	return true
}

// ParamsMatchClaims applies CompareKeys to the route parameters of the
// request.
func ParamsMatchClaims(mapping map[string]string) Predicate {
	return Func(func(in *Input) bool {
		params := make(map[string]string, len(mapping))
		for param := range mapping {
			if v, ok := in.Param(param); ok {
				params[param] = v
			}
		}
		if CompareKeys(in.Claims, mapping, params) {
			return true
		}
		in.Unmet("route parameters do not match claims %v", mapping)
		return false
	})
}

func containsValue(claim, value any) bool {
	if list, ok := asList(claim); ok {
		return inList(value, list)
	}
	if obj, ok := claim.(map[string]any); ok {
		key, isString := value.(string)
		if !isString {
			return false
		}
		_, found := obj[key]
		return found
	}
	return equalValues(claim, value)
}

func inList(v any, list []any) bool {
	for _, item := range list {
		if equalValues(v, item) {
			return true
		}
	}
	return false
}

func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// equalValues compares claim values the way they arrive from JSON: all
// numbers compare as float64.
func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// scalarString renders a scalar claim for comparison with a string taken
// from a URL. Nil and container values are rejected.
func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case nil:
		return "", false
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}
