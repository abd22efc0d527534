package jwt

import (
	"errors"
	"fmt"
	"slices"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

// VerificationOptions selects which checks a parser performs. Registered
// claims are checked only when present in the token, except iss, which a
// parser with a required issuer always demands.
type VerificationOptions struct {
	VerifySignature  bool
	VerifyAudience   bool
	VerifyIssuedAt   bool
	VerifyExpiration bool
	VerifyNotBefore  bool
	VerifyIssuer     bool
	VerifySubject    bool
	VerifyJTI        bool
	Leeway           time.Duration
}

// NewVerificationOptions returns options with every check set to verify
// and zero leeway.
func NewVerificationOptions(verify bool) VerificationOptions {
	return VerificationOptions{
		VerifySignature:  verify,
		VerifyAudience:   verify,
		VerifyIssuedAt:   verify,
		VerifyExpiration: verify,
		VerifyNotBefore:  verify,
		VerifyIssuer:     verify,
		VerifySubject:    verify,
		VerifyJTI:        verify,
		Leeway:           0,
	}
}

// claimRequirements are the expected values checked by verifyClaims.
type claimRequirements struct {
	audience string
	issuer   string
}

// verifyClaims applies the enabled registered-claim checks. golang-jwt
// always checks exp and nbf when its own validation is on, so parsing runs
// with claims validation disabled and the checks live here.
func verifyClaims(claims gjwt.MapClaims, opts VerificationOptions, req claimRequirements, now time.Time) error {
	if opts.VerifyExpiration {
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return err
		}
		if exp != nil && !now.Before(exp.Add(opts.Leeway)) {
			return gjwt.ErrTokenExpired
		}
	}

	if opts.VerifyNotBefore {
		nbf, err := claims.GetNotBefore()
		if err != nil {
			return err
		}
		if nbf != nil && now.Add(opts.Leeway).Before(nbf.Time) {
			return gjwt.ErrTokenNotValidYet
		}
	}

	if opts.VerifyIssuedAt {
		iat, err := claims.GetIssuedAt()
		if err != nil {
			return err
		}
		if iat != nil && now.Add(opts.Leeway).Before(iat.Time) {
			return gjwt.ErrTokenUsedBeforeIssued
		}
	}

	if opts.VerifyAudience && req.audience != "" {
		if _, present := claims["aud"]; present {
			aud, err := claims.GetAudience()
			if err != nil {
				return err
			}
			if !slices.Contains(aud, req.audience) {
				return gjwt.ErrTokenInvalidAudience
			}
		}
	}

	if opts.VerifyIssuer && req.issuer != "" {
		if _, present := claims["iss"]; !present {
			return fmt.Errorf("%w: iss", gjwt.ErrTokenRequiredClaimMissing)
		}
		iss, err := claims.GetIssuer()
		if err != nil {
			return err
		}
		if iss != req.issuer {
			return gjwt.ErrTokenInvalidIssuer
		}
	}

	if opts.VerifySubject {
		if sub, present := claims["sub"]; present {
			if _, ok := sub.(string); !ok {
				return gjwt.ErrTokenInvalidSubject
			}
		}
	}

	if opts.VerifyJTI {
		if jti, present := claims["jti"]; present {
			if _, ok := jti.(string); !ok {
				return gjwt.ErrTokenInvalidId
			}
		}
	}

	return nil
}

// decodeClaims parses token into a claim map. With signature verification
// enabled the key is taken from keyFunc and the algorithm must be one of
// algorithms.
func decodeClaims(
	token string, opts VerificationOptions, algorithms []string,
	req claimRequirements, keyFunc gjwt.Keyfunc,
) (map[string]any, error) {
	claims := gjwt.MapClaims{}

	if opts.VerifySignature {
		parser := gjwt.NewParser(
			gjwt.WithValidMethods(algorithms),
			gjwt.WithoutClaimsValidation(),
		)
		if _, err := parser.ParseWithClaims(token, claims, keyFunc); err != nil {
			var kre *KeyResolutionError
			if errors.As(err, &kre) {
				return nil, kre
			}
			if errors.Is(err, gjwt.ErrTokenMalformed) {
				return nil, NewMalformedError(err)
			}
			return nil, NewValidationError("signature verification failed", err)
		}
	} else {
		if _, _, err := gjwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, NewMalformedError(err)
		}
	}

	if err := verifyClaims(claims, opts, req, time.Now()); err != nil {
		return nil, NewValidationError("claim check failed", err)
	}

	return claims, nil
}
