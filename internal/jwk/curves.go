package jwk

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// byte range inside an encoded public point
type byteRange struct {
	from, to int
}

var noCoordinate = byteRange{}

// Ed25519 keys only have a single public value. The y field is filled with the encoding of 32 zero bytes to keep
// the two-coordinate shape of the record.
var ed25519SentinelY = toBase64url(make([]byte, ed25519.PublicKeySize))

// curveSpec describes everything the adapter needs to know about a curve family.
type curveSpec struct {
	name         string
	kty          string
	alg          string
	scalarLength int
	// length of the encoded public point returned by derivePoint
	pointLength int
	xRange      byteRange
	yRange      byteRange
	// checks the scalar is in range for the curve
	validScalar func(scalar []byte) bool
	// returns the encoded public point for the scalar
	derivePoint func(scalar []byte) ([]byte, error)
	privateKey  func(scalar []byte) (crypto.PrivateKey, error)
	// creates a fresh, valid scalar
	randomScalar func() ([]byte, error)
}

var curves = map[string]curveSpec{
	Secp256k1: {
		name:         Secp256k1,
		kty:          ktyEC,
		alg:          "ES256K",
		scalarLength: 32,
		pointLength:  65,
		xRange:       byteRange{1, 33},
		yRange:       byteRange{33, 65},
		validScalar: func(scalar []byte) bool {
			var s secp256k1.ModNScalar
			overflow := s.SetByteSlice(scalar)
			return !overflow && !s.IsZero()
		},
		derivePoint: func(scalar []byte) ([]byte, error) {
			return secp256k1.PrivKeyFromBytes(scalar).PubKey().SerializeUncompressed(), nil
		},
		privateKey: func(scalar []byte) (crypto.PrivateKey, error) {
			return secp256k1.PrivKeyFromBytes(scalar), nil
		},
		randomScalar: func() ([]byte, error) {
			key, err := secp256k1.GeneratePrivateKey()
			if err != nil {
				return nil, err
			}
			return key.Serialize(), nil
		},
	},
	P256: {
		name:         P256,
		kty:          ktyEC,
		alg:          "ES256",
		scalarLength: 32,
		pointLength:  65,
		xRange:       byteRange{1, 33},
		yRange:       byteRange{33, 65},
		validScalar: func(scalar []byte) bool {
			_, err := ecdh.P256().NewPrivateKey(scalar)
			return err == nil
		},
		derivePoint: func(scalar []byte) ([]byte, error) {
			key, err := ecdh.P256().NewPrivateKey(scalar)
			if err != nil {
				return nil, err
			}
			return key.PublicKey().Bytes(), nil
		},
		privateKey: func(scalar []byte) (crypto.PrivateKey, error) {
			key, err := ecdh.P256().NewPrivateKey(scalar)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrorInvalidKeyMaterial, err)
			}
			point := key.PublicKey().Bytes()
			return &ecdsa.PrivateKey{
				PublicKey: ecdsa.PublicKey{
					Curve: elliptic.P256(),
					X:     new(big.Int).SetBytes(point[1:33]),
					Y:     new(big.Int).SetBytes(point[33:65]),
				},
				D: new(big.Int).SetBytes(scalar),
			}, nil
		},
		randomScalar: func() ([]byte, error) {
			key, err := ecdh.P256().GenerateKey(rand.Reader)
			if err != nil {
				return nil, err
			}
			return key.Bytes(), nil
		},
	},
	Ed25519: {
		name:         Ed25519,
		kty:          ktyOKP,
		alg:          "EdDSA",
		scalarLength: ed25519.SeedSize,
		pointLength:  ed25519.PublicKeySize,
		xRange:       byteRange{0, ed25519.PublicKeySize},
		yRange:       noCoordinate,
		validScalar: func(scalar []byte) bool {
			return len(scalar) == ed25519.SeedSize
		},
		derivePoint: func(scalar []byte) ([]byte, error) {
			return ed25519.NewKeyFromSeed(scalar).Public().(ed25519.PublicKey), nil
		},
		privateKey: func(scalar []byte) (crypto.PrivateKey, error) {
			return ed25519.NewKeyFromSeed(scalar), nil
		},
		randomScalar: func() ([]byte, error) {
			seed := make([]byte, ed25519.SeedSize)
			if _, err := rand.Read(seed); err != nil {
				return nil, err
			}
			return seed, nil
		},
	},
}

func lookupCurve(curve string) (curveSpec, bool) {
	if curve == P256K {
		curve = Secp256k1
	}
	spec, ok := curves[curve]
	return spec, ok
}

// SupportedCurves lists the curve tags keys can be generated for.
func SupportedCurves() []string {
	return []string{Secp256k1, P256, Ed25519}
}

// AlgorithmForCurve returns the standard JWS algorithm of the curve.
func AlgorithmForCurve(curve string) (string, error) {
	spec, ok := lookupCurve(curve)
	if !ok {
		return "", fmt.Errorf("%w: curve %q", ErrorUnsupportedCurve, curve)
	}
	return spec.alg, nil
}

func (c curveSpec) hasY() bool {
	return c.yRange != noCoordinate
}

// coordinates extracts the base64url encoded x and y values from an encoded public point.
func (c curveSpec) coordinates(point []byte) (x string, y string, err error) {
	if len(point) != c.pointLength {
		return x, y, fmt.Errorf("%w: public point of %d bytes for %s", ErrorInvalidKeyMaterial, len(point), c.name)
	}
	x = toBase64url(point[c.xRange.from:c.xRange.to])
	if !c.hasY() {
		return x, ed25519SentinelY, nil
	}
	return x, toBase64url(point[c.yRange.from:c.yRange.to]), nil
}

// assemblePoint is the inverse of coordinates for curves with two coordinates. The result is an uncompressed point.
func (c curveSpec) assemblePoint(x, y []byte) ([]byte, error) {
	coordinateLength := c.xRange.to - c.xRange.from
	if len(x) > coordinateLength || len(y) > coordinateLength {
		return nil, fmt.Errorf("%w: coordinates exceed %d bytes", ErrorInvalidKeyMaterial, coordinateLength)
	}
	point := make([]byte, c.pointLength)
	point[0] = 0x04
	copy(point[c.xRange.from:c.xRange.to], leftPad(x, coordinateLength))
	copy(point[c.yRange.from:c.yRange.to], leftPad(y, coordinateLength))
	return point, nil
}
