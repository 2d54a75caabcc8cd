package token

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/fiware/VCHolder/did"
	"github.com/golang-jwt/jwt/v5"
)

const AlgES256K = "ES256K"

const (
	es256kSignatureLength = 64
	// header byte of compact signatures for uncompressed keys
	compactRecoveryBase = 27
)

var errorAddressMismatch = errors.New("signer_address_mismatch")

// SigningMethodES256K implements ECDSA over secp256k1 with SHA-256 as defined by RFC 8812. Signatures are
// deterministic(RFC 6979) and encoded as R || S.
type SigningMethodES256K struct{}

var SigningMethodES256KInstance = &SigningMethodES256K{}

func init() {
	jwt.RegisterSigningMethod(AlgES256K, func() jwt.SigningMethod {
		return SigningMethodES256KInstance
	})
}

func (m *SigningMethodES256K) Alg() string {
	return AlgES256K
}

// Sign requires a *secp256k1.PrivateKey.
func (m *SigningMethodES256K) Sign(signingString string, key interface{}) ([]byte, error) {
	privateKey, ok := key.(*secp256k1.PrivateKey)
	if !ok {
		return nil, jwt.ErrInvalidKeyType
	}
	hash := sha256.Sum256([]byte(signingString))
	compact := secpecdsa.SignCompact(privateKey, hash[:], false)
	return compact[1:], nil
}

// Verify accepts a *secp256k1.PublicKey, an *ecdsa.PublicKey with secp256k1 coordinates or a did.EthereumAddress. For
// addresses, the signer is recovered from the signature.
func (m *SigningMethodES256K) Verify(signingString string, sig []byte, key interface{}) error {
	if len(sig) != es256kSignatureLength {
		return jwt.ErrSignatureInvalid
	}
	hash := sha256.Sum256([]byte(signingString))

	switch typed := key.(type) {
	case *secp256k1.PublicKey:
		return verifyWithKey(hash[:], sig, typed)
	case *ecdsa.PublicKey:
		publicKey, err := fromEcdsaKey(typed)
		if err != nil {
			return jwt.ErrInvalidKeyType
		}
		return verifyWithKey(hash[:], sig, publicKey)
	case did.EthereumAddress:
		return verifyWithAddress(hash[:], sig, string(typed))
	default:
		return jwt.ErrInvalidKeyType
	}
}

func verifyWithKey(hash []byte, sig []byte, publicKey *secp256k1.PublicKey) error {
	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(sig[:32]); overflow {
		return jwt.ErrSignatureInvalid
	}
	if overflow := s.SetByteSlice(sig[32:]); overflow {
		return jwt.ErrSignatureInvalid
	}
	if !secpecdsa.NewSignature(&r, &s).Verify(hash, publicKey) {
		return jwt.ErrSignatureInvalid
	}
	return nil
}

func verifyWithAddress(hash []byte, sig []byte, address string) error {
	compact := make([]byte, 1+es256kSignatureLength)
	copy(compact[1:], sig)
	for recoveryCode := byte(0); recoveryCode < 2; recoveryCode++ {
		compact[0] = compactRecoveryBase + recoveryCode
		publicKey, _, err := secpecdsa.RecoverCompact(compact, hash)
		if err != nil {
			continue
		}
		if did.SameAddress(did.AddressFromPublicKey(publicKey), address) {
			return nil
		}
	}
	return errorAddressMismatch
}

func fromEcdsaKey(key *ecdsa.PublicKey) (*secp256k1.PublicKey, error) {
	point := make([]byte, 65)
	point[0] = 0x04
	key.X.FillBytes(point[1:33])
	key.Y.FillBytes(point[33:65])
	return secp256k1.ParsePubKey(point)
}
