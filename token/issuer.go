package token

import (
	"crypto"
	"fmt"

	"github.com/fiware/VCHolder/did"
	"github.com/fiware/VCHolder/internal/jwk"
	"github.com/fiware/VCHolder/logging"
	"github.com/golang-jwt/jwt/v5"
)

const (
	DidMethodKey  = "key"
	DidMethodEthr = "ethr"
	DidMethodJwk  = "jwk"
	DidMethodEv   = "ev"
)

const ethrControllerFragment = "controller"

// Issuer is the signing capability of a DID, created for a single signing operation.
type Issuer struct {
	Did string
	Kid string
	Alg string

	method     jwt.SigningMethod
	privateKey crypto.PrivateKey
}

// IssuerFactory creates the issuer of the given did, signing with the hex encoded private scalar.
type IssuerFactory func(adapter jwk.Adapter, issuerDid string, scalar string) (Issuer, error)

// Sign creates the compact token.
func (i Issuer) Sign(claims jwt.Claims, headers map[string]interface{}) (string, error) {
	token := jwt.NewWithClaims(i.method, claims)
	for k, v := range headers {
		token.Header[k] = v
	}
	token.Header["alg"] = i.method.Alg()
	token.Header["kid"] = i.Kid
	return token.SignedString(i.privateKey)
}

func defaultIssuerFactories() map[string]IssuerFactory {
	return map[string]IssuerFactory{
		DidMethodKey:  newKeyIssuer,
		DidMethodEthr: newEthrIssuer,
		DidMethodJwk:  newJwkIssuer,
		DidMethodEv:   newEvIssuer,
	}
}

// did:key - the curve is taken from the multicodec of the did
func newKeyIssuer(adapter jwk.Adapter, issuerDid string, scalar string) (issuer Issuer, err error) {
	curve, _, err := did.ParseKeyDid(issuerDid)
	if err != nil {
		logging.Log().Infof("Issuer %s is not a valid did:key. Err: %v", issuerDid, err)
		return issuer, fmt.Errorf("%w: %v", ErrorInvalidDid, err)
	}
	return newIssuer(adapter, curve, scalar, issuerDid, issuerDid+"#"+did.MethodSpecificId(issuerDid))
}

func newEthrIssuer(adapter jwk.Adapter, issuerDid string, scalar string) (issuer Issuer, err error) {
	if _, err = did.ParseEthrDid(issuerDid); err != nil {
		logging.Log().Infof("Issuer %s is not a valid did:ethr. Err: %v", issuerDid, err)
		return issuer, fmt.Errorf("%w: %v", ErrorInvalidDid, err)
	}
	return newIssuer(adapter, jwk.Secp256k1, scalar, issuerDid, issuerDid+"#"+ethrControllerFragment)
}

// did:jwk - the curve is taken from the embedded key
func newJwkIssuer(adapter jwk.Adapter, issuerDid string, scalar string) (issuer Issuer, err error) {
	curve, err := did.CurveOfJwkDid(issuerDid)
	if err != nil {
		logging.Log().Infof("Issuer %s is not a valid did:jwk. Err: %v", issuerDid, err)
		return issuer, fmt.Errorf("%w: %v", ErrorInvalidDid, err)
	}
	return newIssuer(adapter, curve, scalar, issuerDid, issuerDid+"#"+did.JwkFragment)
}

func newEvIssuer(adapter jwk.Adapter, issuerDid string, scalar string) (issuer Issuer, err error) {
	return issuer, fmt.Errorf("%w: did:%s", ErrorUnimplementedMethod, DidMethodEv)
}

func newIssuer(adapter jwk.Adapter, curve string, scalar string, issuerDid string, kid string) (issuer Issuer, err error) {
	key, err := adapter.ImportFromScalar(scalar, curve, kid)
	if err != nil {
		return issuer, err
	}
	method, privateKey, err := signerOf(key)
	if err != nil {
		return issuer, err
	}
	return Issuer{Did: issuerDid, Kid: kid, Alg: method.Alg(), method: method, privateKey: privateKey}, err
}

// signerOf returns the signing method and go key matching the curve of the record.
func signerOf(key *jwk.JWK) (method jwt.SigningMethod, privateKey crypto.PrivateKey, err error) {
	alg, err := jwk.AlgorithmForCurve(key.Crv)
	if err != nil {
		return method, privateKey, err
	}
	method = jwt.GetSigningMethod(alg)
	if method == nil {
		return method, privateKey, fmt.Errorf("%w: no signing method for %s", jwk.ErrorUnsupportedCurve, alg)
	}
	privateKey, err = key.GetPrivateKey()
	return method, privateKey, err
}
