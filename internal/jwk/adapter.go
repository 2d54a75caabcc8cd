package jwk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fiware/VCHolder/common"
	"github.com/fiware/VCHolder/logging"
)

var ErrorInvalidKeyMaterial = errors.New("invalid_key_material")
var ErrorUnsupportedCurve = errors.New("unsupported_curve")

// Adapter converts between raw private scalars and JWK records.
type Adapter struct {
	// curve to be used if an import does not name one
	defaultCurve string
	// clock used to derive key ids
	clock common.Clock
}

// NewAdapter creates an adapter importing to defaultCurve when no curve is requested. An empty value selects
// secp256k1, the curve of did:ethr identifiers.
func NewAdapter(defaultCurve string, clock common.Clock) (adapter Adapter, err error) {
	if defaultCurve == "" {
		defaultCurve = Secp256k1
	}
	spec, ok := lookupCurve(defaultCurve)
	if !ok {
		logging.Log().Warnf("Default curve %s is not supported.", defaultCurve)
		return adapter, fmt.Errorf("%w: curve %q", ErrorUnsupportedCurve, defaultCurve)
	}
	if clock == nil {
		clock = common.RealClock{}
	}
	return Adapter{defaultCurve: spec.name, clock: clock}, err
}

func (a Adapter) DefaultCurve() string {
	return a.defaultCurve
}

/**
* Generate a fresh key for the given curve. If no kid is provided, it will be derived from the current time.
**/
func (a Adapter) Generate(curve string, kid string) (*JWK, error) {
	spec, ok := lookupCurve(curve)
	if !ok {
		logging.Log().Infof("Requested generation for unsupported curve %s.", curve)
		return nil, fmt.Errorf("%w: curve %q", ErrorUnsupportedCurve, curve)
	}
	scalar, err := spec.randomScalar()
	if err != nil {
		logging.Log().Warnf("Was not able to generate a scalar for %s. Err: %v", spec.name, err)
		return nil, err
	}
	return a.fromScalar(spec, scalar, kid)
}

/**
* Import a hex encoded private scalar(with or without 0x prefix) for the given curve. An empty curve uses the
* adapters default.
**/
func (a Adapter) ImportFromScalar(hexScalar string, curve string, kid string) (*JWK, error) {
	if curve == "" {
		curve = a.defaultCurve
	}
	spec, ok := lookupCurve(curve)
	if !ok {
		logging.Log().Infof("Requested import for unsupported curve %s.", curve)
		return nil, fmt.Errorf("%w: curve %q is not supported", ErrorInvalidKeyMaterial, curve)
	}
	scalar, err := decodeScalar(hexScalar, spec.scalarLength)
	if err != nil {
		return nil, err
	}
	return a.fromScalar(spec, scalar, kid)
}

/**
* Return the private scalar of the key as 0x-prefixed hex string.
**/
func ToScalar(key *JWK) (string, error) {
	scalar, err := key.ScalarBytes()
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(scalar), nil
}

// NormalizeScalar brings a hex scalar into the canonical form returned by ToScalar: 0x-prefixed, lower case and 32
// bytes long.
func NormalizeScalar(hexScalar string) (string, error) {
	scalar, err := decodeScalar(hexScalar, 32)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(scalar), nil
}

func (a Adapter) fromScalar(spec curveSpec, scalar []byte, kid string) (*JWK, error) {
	if !spec.validScalar(scalar) {
		return nil, fmt.Errorf("%w: scalar out of range for %s", ErrorInvalidKeyMaterial, spec.name)
	}
	point, err := spec.derivePoint(scalar)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrorInvalidKeyMaterial, err)
	}
	x, y, err := spec.coordinates(point)
	if err != nil {
		return nil, err
	}
	if kid == "" {
		kid = a.timeBasedKid()
	}
	return &JWK{
		Kid: kid,
		Kty: spec.kty,
		Crv: spec.name,
		Alg: spec.alg,
		Use: useSIG,
		X:   x,
		Y:   y,
		D:   toBase64url(scalar),
	}, nil
}

func (a Adapter) timeBasedKid() string {
	hash := sha256.Sum256([]byte(strconv.FormatInt(a.clock.Now().UnixMilli(), 10)))
	return hex.EncodeToString(hash[:])
}

func decodeScalar(hexScalar string, scalarLength int) ([]byte, error) {
	trimmed := strings.TrimSpace(hexScalar)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty scalar", ErrorInvalidKeyMaterial)
	}
	scalar, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrorInvalidKeyMaterial, err)
	}
	if len(scalar) > scalarLength {
		return nil, fmt.Errorf("%w: scalar of %d bytes", ErrorInvalidKeyMaterial, len(scalar))
	}
	return leftPad(scalar, scalarLength), nil
}
