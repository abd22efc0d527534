// Package authz provides declarative endpoint authorization predicates.
//
// A Predicate inspects an Input holding the caller's normalized claims, the
// scopes granted by the token, the request and its route parameters.
// Primitives cover claim presence and containment, required scopes, query
// arguments, path and body ownership checks and the deployment
// environment. And and Or combine predicates and short-circuit from left to
// right.
//
// Predicates that fail record why through Input.Unmet so the caller can log
// the requirement that was not met:
//
//	p := authz.And(
//	    authz.ScopesPresent("read:gdm_patient"),
//	    authz.Or(
//	        authz.KeyPresent("clinician_id"),
//	        authz.FieldInPathMatchesClaim("patient_id", "patient_id"),
//	    ),
//	)
//
// Policies can also be written as CEL expressions over the variables
// claims, scopes, params, query and production:
//
//	p, err := authz.Expression(`"read:gdm_patient" in scopes && has(claims.clinician_id)`)
package authz
