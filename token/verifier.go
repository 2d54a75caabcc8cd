package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fiware/VCHolder/common"
	"github.com/fiware/VCHolder/did"
	"github.com/fiware/VCHolder/logging"
	"github.com/fiware/VCHolder/resolver"
	"github.com/golang-jwt/jwt/v5"
)

var ErrorInvalidProofType = errors.New("invalid_proof_type")
var ErrorInvalidDid = errors.New("invalid_did")
var ErrorMissingAudience = errors.New("missing_audience")
var ErrorInvalidProof = errors.New("invalid_proof")

var errorKidMethodMismatch = errors.New("kid_method_does_not_match_issuer")
var errorNoVP = errors.New("no_vp_claim")

// typ of openid4vci key proofs
const ProofTypeOpenId4VCI = "openid4vci-proof+jwt"

var supportedAlgorithms = []string{AlgES256K, jwt.SigningMethodES256.Alg(), jwt.SigningMethodEdDSA.Alg()}

// VerificationResult describes the outcome of a token verification. Cryptographic, temporal and structural problems
// are reported through Verified and Reason.
type VerificationResult struct {
	Verified bool                   `json:"verified"`
	Did      string                 `json:"did,omitempty"`
	Kid      string                 `json:"kid,omitempty"`
	Header   map[string]interface{} `json:"header,omitempty"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
	Reason   string                 `json:"reason,omitempty"`
}

// ProofCheckResult is the outcome of ProofTypeCheck.
type ProofCheckResult struct {
	Did               string `json:"did"`
	Kid               string `json:"kid"`
	SignatureVerified bool   `json:"signatureVerified"`
}

type VerifyOptions struct {
	// expected iss, not checked if empty
	Issuer string
	// allowed clock skew for exp, nbf and iat
	Leeway time.Duration
	// clock to check the temporal claims against, the real one if nil
	Clock common.Clock
}

/**
* Verify a token carrying a credential. Resolution failures are returned as errors, everything else is reported in
* the result.
**/
func VerifyCredentialToken(ctx context.Context, token string, keyResolver resolver.Resolver, options VerifyOptions) (VerificationResult, error) {
	return verify(ctx, token, keyResolver, options, "", false)
}

/**
* Verify a token carrying a presentation for the given audience.
**/
func VerifyPresentationToken(ctx context.Context, token string, keyResolver resolver.Resolver, audience string, options VerifyOptions) (VerificationResult, error) {
	if audience == "" {
		return VerificationResult{}, ErrorMissingAudience
	}
	return verify(ctx, token, keyResolver, options, audience, true)
}

/**
* Check the header of an openid4vci key proof and extract the holders did. If a resolver is provided, the proof is
* verified as well.
**/
func ProofTypeCheck(ctx context.Context, token string, keyResolver resolver.Resolver) (result ProofCheckResult, err error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, &Claims{})
	if err != nil {
		logging.Log().Infof("Was not able to parse the proof. Err: %v", err)
		return result, fmt.Errorf("%w: %v", ErrorInvalidProof, err)
	}
	typ, _ := parsed.Header["typ"].(string)
	if typ != ProofTypeOpenId4VCI {
		logging.Log().Infof("Proof of type %q is not supported.", typ)
		return result, ErrorInvalidProofType
	}
	kid, _ := parsed.Header["kid"].(string)
	if !did.IsDid(kid) {
		logging.Log().Infof("The kid %q is not a did.", kid)
		return result, ErrorInvalidDid
	}
	holderDid, _ := did.SplitDidUrl(kid)
	result = ProofCheckResult{Did: holderDid, Kid: kid}
	if keyResolver == nil {
		return result, err
	}

	verification, err := VerifyCredentialToken(ctx, token, keyResolver, VerifyOptions{})
	if err != nil {
		return result, err
	}
	if !verification.Verified {
		return result, fmt.Errorf("%w: %s", ErrorInvalidProof, verification.Reason)
	}
	result.SignatureVerified = true
	return result, err
}

func verify(ctx context.Context, token string, keyResolver resolver.Resolver, options VerifyOptions, audience string, presentation bool) (result VerificationResult, err error) {
	unverified, _, err := jwt.NewParser().ParseUnverified(token, &Claims{})
	if err != nil {
		logging.Log().Infof("Was not able to parse the token. Err: %v", err)
		return VerificationResult{Reason: err.Error()}, nil
	}
	unverifiedClaims := unverified.Claims.(*Claims)
	result.Header = unverified.Header
	result.Payload = unverifiedClaims.AsMap()
	result.Kid, _ = unverified.Header["kid"].(string)
	result.Did = signerDid(result.Kid, unverifiedClaims.Issuer)

	if presentation && unverifiedClaims.VP == nil {
		result.Reason = errorNoVP.Error()
		return result, nil
	}

	// resolver errors have to be returned unchanged instead of being wrapped into the jwt errors
	var resolutionError error
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if err := checkKidMethod(result.Kid, unverifiedClaims.Issuer); err != nil {
			return nil, err
		}
		key, err := keyResolver.ResolveKey(ctx, result.Did, result.Kid)
		if err != nil {
			resolutionError = err
			return nil, err
		}
		return key, nil
	}

	_, err = jwt.NewParser(parserOptions(options, audience)...).ParseWithClaims(token, &Claims{}, keyFunc)
	if resolutionError != nil {
		return result, resolutionError
	}
	if err != nil {
		logging.Log().Infof("Token of %s is not valid. Err: %v", result.Did, err)
		result.Reason = err.Error()
		return result, nil
	}
	result.Verified = true
	return result, nil
}

func parserOptions(options VerifyOptions, audience string) []jwt.ParserOption {
	clock := options.Clock
	if clock == nil {
		clock = common.RealClock{}
	}
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods(supportedAlgorithms),
		jwt.WithLeeway(options.Leeway),
		jwt.WithTimeFunc(clock.Now),
	}
	if audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(audience))
	}
	if options.Issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(options.Issuer))
	}
	return parserOptions
}

// the signer is identified by the kid, the issuer is used for kids that are not did urls
func signerDid(kid string, issuer string) string {
	if did.IsDid(kid) {
		signer, _ := did.SplitDidUrl(kid)
		return signer
	}
	return issuer
}

func checkKidMethod(kid string, issuer string) error {
	if !did.IsDid(kid) || !did.IsDid(issuer) {
		return nil
	}
	kidMethod, _ := did.ExtractDidMethod(kid)
	issuerMethod, _ := did.ExtractDidMethod(issuer)
	if !strings.EqualFold(kidMethod, issuerMethod) {
		return fmt.Errorf("%w: %s vs. %s", errorKidMethodMismatch, kidMethod, issuerMethod)
	}
	return nil
}
