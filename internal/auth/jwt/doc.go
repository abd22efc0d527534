// Package jwt decodes and verifies bearer tokens for several issuers.
//
// A Parser turns a compact JWS into a normalized Identity and a scope list.
// Three strategies are provided:
//
//   - InternalParser verifies tokens minted by the platform with a shared
//     HMAC secret.
//   - StandardParser verifies tokens of the external identity provider with
//     a public key looked up by kid in its JSON Web Key Set.
//   - LoginParser verifies the provider's HMAC-signed login tokens.
//
// All strategies share BaseParser, which maps the Verify flag onto a full
// set of VerificationOptions and flattens the issuer-specific metadata
// claim through NormalizeClaims.
//
// # Key resolution
//
// JWKSResolver keeps the raw key set in a cache.Cache shared by the whole
// process. On a cache miss the set is downloaded and stored; when a kid is
// absent from a cached set it is downloaded once more to pick up rotated
// keys. A missing kid, an unknown kid and a failed download are reported as
// a KeyResolutionError with the matching reason.
//
// # Errors
//
// Every error matches one class under errors.Is: ErrValidation for
// malformed tokens and key resolution, ErrTokenInvalid for signature and
// claim failures, ErrPermissionDenied for scope problems.
package jwt
