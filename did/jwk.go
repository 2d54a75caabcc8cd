package did

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fiware/VCHolder/internal/jwk"
)

const jwkMethodPrefix = "did:jwk:"

// fragment of the single verification method of a did:jwk
const JwkFragment = "0"

// the public members of a key as embedded into a did:jwk
type publicJwk struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y,omitempty"`
}

// CreateJwkDid creates the did:jwk of the key. Only the public members are embedded, the y sentinel of Ed25519 keys
// is left out.
func CreateJwkDid(key *jwk.JWK) (did string, kid string, err error) {
	embedded := publicJwk{Kty: key.Kty, Crv: key.Crv, X: key.X}
	if key.Crv != jwk.Ed25519 {
		embedded.Y = key.Y
	}
	encoded, err := json.Marshal(embedded)
	if err != nil {
		return did, kid, err
	}
	did = jwkMethodPrefix + base64.RawURLEncoding.EncodeToString(encoded)
	return did, did + "#" + JwkFragment, err
}

// DecodeJwkDid returns the json encoded key embedded into the did:jwk.
func DecodeJwkDid(did string) ([]byte, error) {
	did, _ = SplitDidUrl(did)
	if !strings.HasPrefix(did, jwkMethodPrefix) {
		return nil, fmt.Errorf("%w: %s is not a did:jwk", ErrorMalformedDid, did)
	}
	encoded := strings.TrimRight(strings.TrimPrefix(did, jwkMethodPrefix), "=")
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrorMalformedDid, err)
	}
	return decoded, nil
}

// CurveOfJwkDid returns the curve of the key embedded into the did:jwk.
func CurveOfJwkDid(did string) (string, error) {
	decoded, err := DecodeJwkDid(did)
	if err != nil {
		return "", err
	}
	var embedded publicJwk
	if err := json.Unmarshal(decoded, &embedded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrorMalformedDid, err)
	}
	return embedded.Crv, nil
}
