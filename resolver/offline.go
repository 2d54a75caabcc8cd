package resolver

import (
	"context"
	"crypto"
	"fmt"

	"github.com/fiware/VCHolder/did"
	keyrecord "github.com/fiware/VCHolder/internal/jwk"
	"github.com/fiware/VCHolder/logging"
	"github.com/lestrrat-go/jwx/jwk"
	"golang.org/x/exp/slices"
)

// fragments of the default did:ethr document
var ethrFragments = []string{"", "controller", "controllerKey"}

// KeyResolver decodes the key contained in a did:key.
type KeyResolver struct{}

func (KeyResolver) ResolveKey(ctx context.Context, didString string, kid string) (crypto.PublicKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, publicKey, err := did.ParseKeyDid(didString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrorUnresolvableDid, err)
	}
	_, fragment := did.SplitDidUrl(kid)
	if fragment != "" && fragment != did.MethodSpecificId(didString) {
		return nil, fmt.Errorf("%w: %s", ErrorNoVerificationKey, kid)
	}
	return publicKey, nil
}

// EthrResolver resolves the default document of a did:ethr, without any registry lookup. Address identifiers resolve
// to a did.EthereumAddress.
type EthrResolver struct{}

func (EthrResolver) ResolveKey(ctx context.Context, didString string, kid string) (crypto.PublicKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	identifier, err := did.ParseEthrDid(didString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrorUnresolvableDid, err)
	}
	_, fragment := did.SplitDidUrl(kid)
	if !slices.Contains(ethrFragments, fragment) {
		return nil, fmt.Errorf("%w: %s", ErrorNoVerificationKey, kid)
	}
	if identifier.PublicKey != nil {
		return identifier.PublicKey, nil
	}
	return did.EthereumAddress(identifier.Address), nil
}

// JwkResolver decodes the key embedded in a did:jwk.
type JwkResolver struct{}

func (JwkResolver) ResolveKey(ctx context.Context, didString string, kid string) (crypto.PublicKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	encodedJWK, err := did.DecodeJwkDid(didString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrorUnresolvableDid, err)
	}
	_, fragment := did.SplitDidUrl(kid)
	if fragment != "" && fragment != did.JwkFragment {
		return nil, fmt.Errorf("%w: %s", ErrorNoVerificationKey, kid)
	}

	key, err := jwk.ParseKey(encodedJWK)
	if err == nil {
		var publicKey crypto.PublicKey
		if publicKey, err = jwk.PublicRawKeyOf(key); err == nil {
			return publicKey, nil
		}
	}
	// secp256k1 support of jwx requires a build tag, fall back to the internal representation
	logging.Log().Debugf("jwx could not read the key of %s, using the internal parser. Err: %v", didString, err)
	return parseInternal(encodedJWK)
}

func parseInternal(encodedJWK []byte) (crypto.PublicKey, error) {
	record, err := keyrecord.NewFromBytes(encodedJWK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrorUnresolvableDid, err)
	}
	publicKey, err := record.GetPublicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrorNoVerificationKey, err)
	}
	return publicKey, nil
}
