package did

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/fiware/VCHolder/internal/jwk"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multicodec"
)

const keyMethodPrefix = "did:key:"

// base58-btc multibase prefix
const multibaseBase58 = 'z'

// CreateKeyDid creates the did:key of the given key, together with the kid pointing to its only verification
// method.
func CreateKeyDid(key *jwk.JWK) (did string, kid string, err error) {
	code, rawKey, err := multicodecKey(key)
	if err != nil {
		return did, kid, err
	}
	fingerprint := KeyFingerprint(code, rawKey)
	did = keyMethodPrefix + fingerprint
	return did, did + "#" + fingerprint, err
}

// KeyFingerprint generates the multibase(base58-btc) encoding of the multicodec prefixed raw key.
func KeyFingerprint(code multicodec.Code, rawKey []byte) string {
	prefix := make([]byte, binary.MaxVarintLen64)
	prefixLength := binary.PutUvarint(prefix, uint64(code))
	return string(multibaseBase58) + base58.Encode(append(prefix[:prefixLength], rawKey...))
}

// ParseKeyDid decodes the public key of a did:key. The curve is the one of the internal/jwk package.
func ParseKeyDid(did string) (curve string, publicKey crypto.PublicKey, err error) {
	did, _ = SplitDidUrl(did)
	if !strings.HasPrefix(did, keyMethodPrefix) {
		return curve, publicKey, fmt.Errorf("%w: %s is not a did:key", ErrorMalformedDid, did)
	}
	fingerprint := strings.TrimPrefix(did, keyMethodPrefix)
	if len(fingerprint) < 2 || fingerprint[0] != multibaseBase58 {
		return curve, publicKey, fmt.Errorf("%w: did:key does not start with 'z'", ErrorMalformedDid)
	}
	decoded, err := base58.Decode(fingerprint[1:])
	if err != nil {
		return curve, publicKey, fmt.Errorf("%w: invalid base58btc: %v", ErrorMalformedDid, err)
	}
	code, prefixLength := binary.Uvarint(decoded)
	if prefixLength <= 0 {
		return curve, publicKey, fmt.Errorf("%w: invalid multicodec value", ErrorMalformedDid)
	}
	rawKey := decoded[prefixLength:]

	// See https://w3c-ccg.github.io/did-method-key/#signature-method-creation-algorithm
	switch multicodec.Code(code) {
	case multicodec.Ed25519Pub:
		if len(rawKey) != ed25519.PublicKeySize {
			return curve, publicKey, fmt.Errorf("%w: invalid ed25519 key length", ErrorMalformedDid)
		}
		return jwk.Ed25519, ed25519.PublicKey(rawKey), nil
	case multicodec.Secp256k1Pub:
		key, err := secp256k1.ParsePubKey(rawKey)
		if err != nil {
			return curve, publicKey, fmt.Errorf("%w: %v", ErrorMalformedDid, err)
		}
		return jwk.Secp256k1, key, nil
	case multicodec.P256Pub:
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), rawKey)
		if x == nil {
			return curve, publicKey, fmt.Errorf("%w: invalid P-256 key", ErrorMalformedDid)
		}
		return jwk.P256, &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
	default:
		return curve, publicKey, fmt.Errorf("%w: multicodec %s", ErrorUnsupportedKeyType, multicodec.Code(code))
	}
}

func multicodecKey(key *jwk.JWK) (code multicodec.Code, rawKey []byte, err error) {
	publicKey, err := key.GetPublicKey()
	if err != nil {
		return code, rawKey, err
	}
	switch typed := publicKey.(type) {
	case ed25519.PublicKey:
		return multicodec.Ed25519Pub, typed, nil
	case *secp256k1.PublicKey:
		return multicodec.Secp256k1Pub, typed.SerializeCompressed(), nil
	case *ecdsa.PublicKey:
		return multicodec.P256Pub, elliptic.MarshalCompressed(elliptic.P256(), typed.X, typed.Y), nil
	default:
		return code, rawKey, fmt.Errorf("%w: %T", ErrorUnsupportedKeyType, publicKey)
	}
}
