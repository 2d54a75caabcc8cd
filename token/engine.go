// Package token signs and verifies compact tokens carrying verifiable credentials and presentations.
package token

import (
	"errors"
	"fmt"

	configModel "github.com/fiware/VCHolder/config"
	"github.com/fiware/VCHolder/did"
	"github.com/fiware/VCHolder/internal/jwk"
	"github.com/fiware/VCHolder/logging"
	"github.com/golang-jwt/jwt/v5"
)

var ErrorMissingSignOptions = errors.New("missing_sign_options")
var ErrorUnsupportedDidMethod = errors.New("unsupported_did_method")
var ErrorUnimplementedMethod = errors.New("unimplemented_method")
var ErrorMissingPresentation = errors.New("missing_presentation")
var ErrorUnsupportedNbfPolicy = errors.New("unsupported_nbf_policy")

const (
	// nbf is always aligned with iat
	NbfPolicyIat = "iat"
	// a caller provided nbf is used as is
	NbfPolicyKeep = "keep"
)

const DefaultTyp = "JWT"

// KeyMaterial carries the key to sign with. A PrivateKey(hex scalar) always takes precedence over the JWK.
type KeyMaterial struct {
	PrivateKey string
	JWK        *jwk.JWK
	// sign the JWK directly instead of delegating to the DID issuer. Ignored if a PrivateKey is present.
	Direct bool
}

// SignParams are the per call options of a signing operation.
type SignParams struct {
	// overwrites the aud claim if set
	Audience string
	// typ header, the engines default if empty
	Typ string
	// additional headers, alg and kid cannot be overwritten
	Headers map[string]interface{}
	// the token is a presentation proof and requires a vp claim
	Presentation bool
}

// Engine signs claim sets, either directly with a JWK or through the issuer of the claims DID.
type Engine struct {
	adapter    jwk.Adapter
	nbfPolicy  string
	defaultTyp string
	issuers    map[string]IssuerFactory
}

func NewEngine(config configModel.Signing, adapter jwk.Adapter) (engine *Engine, err error) {
	nbfPolicy := config.NbfPolicy
	if nbfPolicy == "" {
		nbfPolicy = NbfPolicyIat
	}
	if nbfPolicy != NbfPolicyIat && nbfPolicy != NbfPolicyKeep {
		logging.Log().Warnf("The nbf policy %s is not supported.", nbfPolicy)
		return engine, fmt.Errorf("%w: %s", ErrorUnsupportedNbfPolicy, nbfPolicy)
	}
	typ := config.Typ
	if typ == "" {
		typ = DefaultTyp
	}
	return &Engine{adapter: adapter, nbfPolicy: nbfPolicy, defaultTyp: typ, issuers: defaultIssuerFactories()}, err
}

// RegisterIssuer adds or replaces the issuer factory of a DID method.
func (e *Engine) RegisterIssuer(method string, factory IssuerFactory) {
	e.issuers[method] = factory
}

/**
* Sign the claims with the given key material. A raw scalar is always delegated to the DID issuer. A JWK is converted
* into a scalar and delegated as well, unless direct signing is requested.
**/
func (e *Engine) Sign(claims Claims, material KeyMaterial, params SignParams) (string, error) {
	switch {
	case material.PrivateKey != "":
		return e.GenerateProof(claims, material.PrivateKey, params)
	case material.JWK != nil && material.Direct:
		return e.SignDirect(claims, material.JWK, params)
	case material.JWK != nil:
		scalar, err := jwk.ToScalar(material.JWK)
		if err != nil {
			logging.Log().Infof("Was not able to extract the scalar from the jwk. Err: %v", err)
			return "", err
		}
		return e.GenerateProof(claims, scalar, params)
	default:
		logging.Log().Info("Neither a private key nor a jwk was provided for signing.")
		return "", ErrorMissingSignOptions
	}
}

/**
* Sign with the JWK itself. The kid references the method specific id of the issuer.
**/
func (e *Engine) SignDirect(claims Claims, key *jwk.JWK, params SignParams) (string, error) {
	if key == nil {
		return "", ErrorMissingSignOptions
	}
	if !did.IsDid(claims.Issuer) {
		logging.Log().Infof("The issuer %q is not a did.", claims.Issuer)
		return "", fmt.Errorf("%w: issuer %q", ErrorInvalidDid, claims.Issuer)
	}
	method, privateKey, err := signerOf(key)
	if err != nil {
		logging.Log().Infof("Was not able to get a signer for the jwk. Err: %v", err)
		return "", err
	}
	claims, err = e.normalize(claims, params)
	if err != nil {
		return "", err
	}
	token := jwt.NewWithClaims(method, claims)
	token.Header["typ"] = e.typ(params)
	token.Header["kid"] = claims.Issuer + "#" + did.MethodSpecificId(claims.Issuer)
	signed, err := token.SignedString(privateKey)
	if err != nil {
		logging.Log().Warnf("Was not able to sign the token. Err: %v", err)
	}
	return signed, err
}

/**
* Generate the proof through the issuer of the DID method of claims.iss.
**/
func (e *Engine) GenerateProof(claims Claims, scalar string, params SignParams) (string, error) {
	if scalar == "" {
		return "", ErrorMissingSignOptions
	}
	method, ok := did.ExtractDidMethod(claims.Issuer)
	if !ok {
		logging.Log().Infof("The issuer %q is not a did.", claims.Issuer)
		return "", fmt.Errorf("%w: issuer %q", ErrorInvalidDid, claims.Issuer)
	}
	factory, ok := e.issuers[method]
	if !ok {
		logging.Log().Infof("No issuer for did:%s available.", method)
		return "", fmt.Errorf("%w: %s", ErrorUnsupportedDidMethod, method)
	}
	issuer, err := factory(e.adapter, claims.Issuer, scalar)
	if err != nil {
		logging.Log().Infof("Was not able to create the issuer for %s. Err: %v", claims.Issuer, err)
		return "", err
	}
	claims, err = e.normalize(claims, params)
	if err != nil {
		return "", err
	}

	headers := map[string]interface{}{}
	for k, v := range params.Headers {
		headers[k] = v
	}
	headers["typ"] = e.typ(params)
	signed, err := issuer.Sign(claims, headers)
	if err != nil {
		logging.Log().Warnf("Was not able to sign the token for %s. Err: %v", claims.Issuer, err)
	}
	return signed, err
}

/**
* Create a JWT-VC from a credential payload, signed by the credential issuer.
**/
func (e *Engine) CreateCredentialToken(payload Claims, material KeyMaterial) (string, error) {
	if payload.VC == nil {
		return "", fmt.Errorf("%w: no vc claim", ErrorMissingSignOptions)
	}
	return e.Sign(payload, material, SignParams{})
}

func (e *Engine) typ(params SignParams) string {
	if params.Typ != "" {
		return params.Typ
	}
	if typ, ok := params.Headers["typ"].(string); ok && typ != "" {
		return typ
	}
	return e.defaultTyp
}

func (e *Engine) normalize(claims Claims, params SignParams) (Claims, error) {
	if params.Presentation && claims.VP == nil {
		logging.Log().Info("A presentation proof was requested without a vp claim.")
		return claims, ErrorMissingPresentation
	}
	if params.Audience != "" {
		claims.Audience = []string{params.Audience}
	}
	if e.nbfPolicy == NbfPolicyIat && claims.NotBefore != 0 {
		claims.NotBefore = claims.IssuedAt
	}
	return claims, nil
}
