package authz

import (
	"slices"
)

// ScopesPresent is true when the token grants every required scope.
func ScopesPresent(required ...string) Predicate {
	return ScopesPresentList(required)
}

// ScopesPresentList is ScopesPresent for a list built at configuration
// time.
func ScopesPresentList(required []string) Predicate {
	required = slices.Clone(required)
	return Func(func(in *Input) bool {
		var missing []string
		for _, scope := range required {
			if !slices.Contains(in.Scopes, scope) {
				missing = append(missing, scope)
			}
		}
		if len(missing) == 0 {
			return true
		}
		in.Unmet("missing required scopes: %v", missing)
		return false
	})
}

// ArgumentPresent is true when the query argument equals expected.
func ArgumentPresent(argument, expected string) Predicate {
	return Func(func(in *Input) bool {
		if v, ok := in.Query(argument); ok && v == expected {
			return true
		}
		in.Unmet("query argument %q is not %q", argument, expected)
		return false
	})
}

// ArgumentNotPresent is true when the query argument is absent.
func ArgumentNotPresent(argument string) Predicate {
	return Func(func(in *Input) bool {
		if _, ok := in.Query(argument); !ok {
			return true
		}
		in.Unmet("query argument %q is not allowed", argument)
		return false
	})
}

// ProductionOnly is true only in a production deployment. The deployment
// is checked on every evaluation.
func ProductionOnly() Predicate {
	return Func(func(in *Input) bool {
		if in.IsProduction() {
			return true
		}
		in.Unmet("route is only available in production")
		return false
	})
}

// NonProductionOnly is true only outside production.
func NonProductionOnly() Predicate {
	return Func(func(in *Input) bool {
		if !in.IsProduction() {
			return true
		}
		in.Unmet("route is not available in production")
		return false
	})
}

// FieldInPathMatchesClaim is true when the route parameter pathField and
// the claim are both present, non-null and equal. It restricts a caller to
// their own resources.
func FieldInPathMatchesClaim(pathField, claim string) Predicate {
	return Func(func(in *Input) bool {
		param, ok := in.Param(pathField)
		if ok && param != "" {
			if value, ok := scalarString(in.Claims[claim]); ok && value == param {
				return true
			}
		}
		in.Unmet("path field %q does not match claim %q", pathField, claim)
		return false
	})
}

// FieldInBodyMatchesClaim is true when the JSON body field bodyField and
// the claim are both present, non-null and equal.
func FieldInBodyMatchesClaim(bodyField, claim string) Predicate {
	return Func(func(in *Input) bool {
		body := in.JSONBody()
		field := body[bodyField]
		value := in.Claims[claim]
		if field != nil && value != nil && equalValues(field, value) {
			return true
		}
		in.Unmet("body field %q does not match claim %q", bodyField, claim)
		return false
	})
}
