package jwk

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (

	// Key types, elliptic curve or octet key pair(edwards curves).
	ktyEC  = "EC"
	ktyOKP = "OKP"

	// Use, Signature
	useSIG = "sig"

	// P256 represents a 256-bit cryptographic elliptical curve type.
	P256 = "P-256"

	// Secp256k1 represents the Ethereum 256-bit cryptographic elliptical curve type.
	Secp256k1 = "secp256k1"

	// P256K is the legacy name of Secp256k1, still accepted as input.
	P256K = "P-256K"

	// Ed25519 represents the edwards curve used with EdDSA signatures.
	Ed25519 = "Ed25519"
)

type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`

	// Curve and coordinates, common to Public and Private keys
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`

	// For Private Keys only
	D string `json:"d,omitempty"`

	KeyOps []string `json:"key_ops,omitempty"`
}

func NewJWKFromFile(location string) (*JWK, error) {

	keyData, err := os.ReadFile(location)
	if err != nil {
		return nil, err
	}
	return NewFromBytes(keyData)
}

func NewFromBytes(b []byte) (k *JWK, err error) {

	k = &JWK{}
	err = json.Unmarshal(b, k)
	if err != nil {
		return nil, err
	}
	if _, ok := lookupCurve(k.Crv); !ok {
		return nil, fmt.Errorf("%w: curve %q", ErrorUnsupportedCurve, k.Crv)
	}

	return k, nil
}

func (k *JWK) AsJSON() ([]byte, error) {
	return json.Marshal(k)
}

func (k *JWK) String() (s string) {
	b, err := json.MarshalIndent(k.PublicJWKKey(), "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

// PublicJWKKey returns a copy of the key without the private scalar.
func (key *JWK) PublicJWKKey() (publicKey *JWK) {

	publicKey = &JWK{}

	publicKey.Kid = key.Kid
	publicKey.Kty = key.Kty
	publicKey.Use = key.Use
	publicKey.Alg = key.Alg
	publicKey.Crv = key.Crv
	publicKey.X = key.X
	publicKey.Y = key.Y
	if len(key.KeyOps) > 0 {
		publicKey.KeyOps = append([]string{}, key.KeyOps...)
	}

	return publicKey
}

// ScalarBytes returns the raw private scalar, left-padded to the curve's scalar length.
func (key *JWK) ScalarBytes() ([]byte, error) {
	spec, ok := lookupCurve(key.Crv)
	if !ok {
		return nil, fmt.Errorf("%w: curve %q", ErrorInvalidKeyMaterial, key.Crv)
	}
	if key.D == "" {
		return nil, fmt.Errorf("%w: no private scalar", ErrorInvalidKeyMaterial)
	}
	d, err := fromBase64url(key.D)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrorInvalidKeyMaterial, err)
	}
	if len(d) > spec.scalarLength {
		return nil, fmt.Errorf("%w: private scalar of %d bytes", ErrorInvalidKeyMaterial, len(d))
	}
	return leftPad(d, spec.scalarLength), nil
}

// GetPublicKey returns the go representation of the public key: *secp256k1.PublicKey, *ecdsa.PublicKey or
// ed25519.PublicKey.
func (key *JWK) GetPublicKey() (publicKey crypto.PublicKey, err error) {

	if key.X == "" || key.Crv == "" {
		return nil, fmt.Errorf("%w: missing fields in the JWK", ErrorInvalidKeyMaterial)
	}
	spec, ok := lookupCurve(key.Crv)
	if !ok {
		return nil, fmt.Errorf("%w: curve %q", ErrorUnsupportedCurve, key.Crv)
	}

	// According to RFC 7518, the coordinates are Base64 URL unsigned integers.
	// https://tools.ietf.org/html/rfc7518#section-6.3
	xCoordinate, err := fromBase64url(key.X)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrorInvalidKeyMaterial, err)
	}
	if !spec.hasY() {
		if len(xCoordinate) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: public key of %d bytes", ErrorInvalidKeyMaterial, len(xCoordinate))
		}
		return ed25519.PublicKey(xCoordinate), nil
	}

	yCoordinate, err := fromBase64url(key.Y)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrorInvalidKeyMaterial, err)
	}
	point, err := spec.assemblePoint(xCoordinate, yCoordinate)
	if err != nil {
		return nil, err
	}

	switch spec.name {
	case Secp256k1:
		publicKey, err := secp256k1.ParsePubKey(point)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrorInvalidKeyMaterial, err)
		}
		return publicKey, nil
	default:
		// According to RFC 7517, these numbers are in big-endian format.
		// https://tools.ietf.org/html/rfc7517#appendix-A.1
		x := new(big.Int).SetBytes(xCoordinate)
		y := new(big.Int).SetBytes(yCoordinate)
		if !elliptic.P256().IsOnCurve(x, y) {
			return nil, fmt.Errorf("%w: point is not on %s", ErrorInvalidKeyMaterial, spec.name)
		}
		return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
	}
}

// GetPrivateKey returns the go representation of the private key: *secp256k1.PrivateKey, *ecdsa.PrivateKey or
// ed25519.PrivateKey.
func (key *JWK) GetPrivateKey() (privateKey crypto.PrivateKey, err error) {

	scalar, err := key.ScalarBytes()
	if err != nil {
		return nil, err
	}
	spec, _ := lookupCurve(key.Crv)
	return spec.privateKey(scalar)
}

// fromBase64url removes trailing padding before decoding a string from base64url. Some non-RFC compliant
// JWKS contain padding at the end values for base64url encoded public keys.
//
// RFC 7517 defines base64url the same as RFC 7515 Section 2:
// https://datatracker.ietf.org/doc/html/rfc7517#section-1.1
// https://datatracker.ietf.org/doc/html/rfc7515#section-2
func fromBase64url(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	return base64.RawURLEncoding.DecodeString(s)
}

func toBase64url(n []byte) string {
	return base64.RawURLEncoding.EncodeToString(n)
}

func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	padded := make([]byte, size)
	copy(padded[size-len(b):], b)
	return padded
}
