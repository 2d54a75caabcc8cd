package did

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/fiware/VCHolder/internal/jwk"
	"golang.org/x/crypto/sha3"
)

const ethrMethodPrefix = "did:ethr:"

const (
	addressLength             = 20
	compressedPublicKeyLength = 33
)

// EthereumAddress is the verification material of an address based did:ethr. Signatures are checked by recovering
// the signer and comparing its address.
type EthereumAddress string

// EthrIdentifier is the parsed form of a did:ethr. Exactly one of Address and PublicKey is set.
type EthrIdentifier struct {
	// optional network, either a name or a hex chain id
	Chain     string
	Address   string
	PublicKey *secp256k1.PublicKey
}

// CreateEthrDid creates the did:ethr of the (secp256k1) key, using the address form. The chain is optional.
func CreateEthrDid(key *jwk.JWK, chain string) (string, error) {
	publicKey, err := key.GetPublicKey()
	if err != nil {
		return "", err
	}
	secpKey, ok := publicKey.(*secp256k1.PublicKey)
	if !ok {
		return "", fmt.Errorf("%w: did:ethr requires a secp256k1 key, got %s", ErrorUnsupportedKeyType, key.Crv)
	}
	if chain == "" {
		return ethrMethodPrefix + AddressFromPublicKey(secpKey), nil
	}
	return ethrMethodPrefix + chain + ":" + AddressFromPublicKey(secpKey), nil
}

// ParseEthrDid parses did:ethr:[chain:]<0x-address | 0x-compressed-public-key>.
func ParseEthrDid(did string) (identifier EthrIdentifier, err error) {
	did, _ = SplitDidUrl(did)
	if !strings.HasPrefix(did, ethrMethodPrefix) {
		return identifier, fmt.Errorf("%w: %s is not a did:ethr", ErrorMalformedDid, did)
	}
	parts := strings.Split(strings.TrimPrefix(did, ethrMethodPrefix), ":")
	switch len(parts) {
	case 1:
	case 2:
		identifier.Chain = parts[0]
	default:
		return identifier, fmt.Errorf("%w: too many segments in %s", ErrorMalformedDid, did)
	}
	value := parts[len(parts)-1]
	if !strings.HasPrefix(value, "0x") {
		return identifier, fmt.Errorf("%w: did:ethr identifier has to start with 0x", ErrorMalformedDid)
	}
	raw, err := hex.DecodeString(value[2:])
	if err != nil {
		return identifier, fmt.Errorf("%w: %v", ErrorMalformedDid, err)
	}
	switch len(raw) {
	case addressLength:
		identifier.Address = value
	case compressedPublicKeyLength:
		identifier.PublicKey, err = secp256k1.ParsePubKey(raw)
		if err != nil {
			return identifier, fmt.Errorf("%w: %v", ErrorMalformedDid, err)
		}
	default:
		return identifier, fmt.Errorf("%w: did:ethr identifier of %d bytes", ErrorMalformedDid, len(raw))
	}
	return identifier, err
}

// AddressFromPublicKey derives the EIP-55 checksummed ethereum address of the key.
func AddressFromPublicKey(publicKey *secp256k1.PublicKey) string {
	hash := keccak256(publicKey.SerializeUncompressed()[1:])
	return checksumAddress(hash[len(hash)-addressLength:])
}

// SameAddress compares two hex addresses, ignoring the checksum casing.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimPrefix(a, "0x"), strings.TrimPrefix(b, "0x"))
}

// see https://eips.ethereum.org/EIPS/eip-55
func checksumAddress(address []byte) string {
	lower := hex.EncodeToString(address)
	hash := hex.EncodeToString(keccak256([]byte(lower)))
	checksummed := []byte(lower)
	for i, c := range checksummed {
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			checksummed[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(checksummed)
}

func keccak256(data []byte) []byte {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(data)
	return hasher.Sum(nil)
}
