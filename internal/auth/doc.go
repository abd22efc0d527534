// Package auth guards HTTP endpoints with bearer tokens.
//
// A Guard extracts the token from the Authorization header, picks the
// parser for its issuer, verifies it and evaluates an authz.Predicate
// against the caller's claims and scopes:
//
//	guard, err := auth.NewGuardFromConfig(cfg, store, logger)
//	if err != nil {
//	    return err
//	}
//
//	mux.Handle("GET /patients/{patient_id}", guard.Protect(authz.And(
//	    authz.ScopesPresent("read:gdm_patient"),
//	    authz.FieldInPathMatchesClaim("patient_id", "patient_id"),
//	))(handler))
//
// Missing, malformed and unverifiable tokens are answered with 401. A
// predicate that does not hold is answered with 403 and logged with the
// unmet requirements. Outside production a guard configured to ignore
// validation calls the handler directly; the environment is read when
// Protect is called.
//
// Handlers read the caller with ClaimsFromContext, ScopesFromContext and
// CurrentUser. SystemTokenClient fetches tokens for outbound calls made on
// behalf of a system.
package auth
