package resolver

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/fiware/VCHolder/logging"
	"github.com/trustbloc/did-go/method/jwk"
	"github.com/trustbloc/did-go/method/key"
	"github.com/trustbloc/did-go/method/web"
	"github.com/trustbloc/did-go/vdr"
)

var ErrorNotAValidVerficationMethod = errors.New("not_a_valid_verfication_method")

const Ed25519VerificationKey2018 = "Ed25519VerificationKey2018"

// WebResolver uses the trustbloc registry to resolve the did documents. Besides did:web, the registry also knows
// did:key and did:jwk.
type WebResolver struct {
	registry *vdr.Registry
}

func NewWebResolver() WebResolver {
	return WebResolver{registry: vdr.New(vdr.WithVDR(web.New()), vdr.WithVDR(key.New()), vdr.WithVDR(jwk.New()))}
}

func (wr WebResolver) ResolveKey(ctx context.Context, did string, kid string) (crypto.PublicKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	didDocument, err := wr.registry.Resolve(did)
	if err != nil {
		logging.Log().Warnf("Was not able to resolve the issuer %s. Err: %v", did, err)
		return nil, fmt.Errorf("%w: %v", ErrorUnresolvableDid, err)
	}
	for _, vm := range didDocument.DIDDocument.VerificationMethod {
		if !compareVerficationMethod(kid, absoluteMethodId(didDocument.DIDDocument.ID, vm.ID)) {
			continue
		}
		if webKey := vm.JSONWebKey(); webKey != nil {
			return webKey.Key, nil
		}
		if vm.Type == Ed25519VerificationKey2018 && len(vm.Value) == ed25519.PublicKeySize {
			return ed25519.PublicKey(vm.Value), nil
		}
		logging.Log().Infof("Verification method %s of type %s is not supported.", vm.ID, vm.Type)
		return nil, fmt.Errorf("%w: unsupported verification method type %s", ErrorNoVerificationKey, vm.Type)
	}
	return nil, fmt.Errorf("%w: %s", ErrorNoVerificationKey, kid)
}

// the jwt-vc standard defines multiple options for the kid-header, while the standard implementation only allows for absolute paths.
// see https://identity.foundation/jwt-vc-presentation-profile/#kid-jose-header
// potential headers:
//   - thePublicKey(1)
//   - did:web:theHost(2)
//   - did:web:theHost#id(3)
func compareVerficationMethod(presentedMethod string, didDocumentMethod string) (result bool) {
	keyId, absolutePath, fullAbsolutePath, _ := getKeyFromMethod(didDocumentMethod)

	if presentedMethod != "" {
		return keyId == presentedMethod || absolutePath == presentedMethod || fullAbsolutePath == presentedMethod
	}
	logging.Log().Info("No verification method presented.")
	return false
}

// relative ids(f.e. #key-1) are resolved against the did of the document
func absoluteMethodId(documentId string, methodId string) string {
	if strings.HasPrefix(methodId, "#") {
		return documentId + methodId
	}
	return methodId
}

func getKeyFromMethod(verficationMethod string) (keyId, absolutePath, fullAbsolutePath string, err error) {
	keyArray := strings.Split(verficationMethod, "#")
	if len(keyArray) == 2 {
		// full-absolute path - format 3
		return keyArray[1], keyArray[0], verficationMethod, nil
	} else if didParts := strings.Split(verficationMethod, ":"); len(didParts) == 1 && len(keyArray) == 1 {
		// just the key - format 1
		return verficationMethod, absolutePath, fullAbsolutePath, nil
	} else if len(didParts) > 1 && len(keyArray) == 1 {
		// absolute path did - format 2
		return didParts[len(didParts)-1], verficationMethod, fullAbsolutePath, nil
	}

	logging.Log().Warnf("The verification method %s is invalid.", verficationMethod)
	return keyId, absolutePath, fullAbsolutePath, ErrorNotAValidVerficationMethod
}
