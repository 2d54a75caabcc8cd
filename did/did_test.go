package did

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"errors"
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/fiware/VCHolder/internal/jwk"
	"github.com/fiware/VCHolder/logging"
	"github.com/multiformats/go-multicodec"
	"github.com/stretchr/testify/assert"
)

const (
	scalarOne   = "0x01"
	ed25519Seed = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
	// address of the secp256k1 key with scalar 1
	addressOfOne = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
)

func importKey(t *testing.T, scalar string, curve string) *jwk.JWK {
	adapter, _ := jwk.NewAdapter(jwk.Secp256k1, nil)
	key, err := adapter.ImportFromScalar(scalar, curve, "kid")
	if err != nil {
		t.Fatalf("Was not able to import the test key. Err: %v", err)
	}
	return key
}

func TestExtractDidMethod(t *testing.T) {
	type test struct {
		testName       string
		testDid        string
		expectedMethod string
		expectedOk     bool
	}
	tests := []test{
		{"The method of a did:key should be extracted.", "did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK", "key", true},
		{"The method of a did:ethr with chain should be extracted.", "did:ethr:0x5:0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", "ethr", true},
		{"The method of a did url should be extracted.", "did:web:example.org#key-1", "web", true},
		{"A value without did prefix has no method.", "key:z6Mk", "", false},
		{"A did without identifier has no method.", "did:key", "", false},
		{"A method with special characters is invalid.", "did:my-method:abc", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			method, ok := ExtractDidMethod(tc.testDid)
			if method != tc.expectedMethod || ok != tc.expectedOk {
				t.Errorf("%s - Expected %s/%v but was %s/%v.", tc.testName, tc.expectedMethod, tc.expectedOk, method, ok)
			}
		})
	}
}

func TestMethodSpecificId(t *testing.T) {
	assert.Equal(t, "z6Mk", MethodSpecificId("did:key:z6Mk"))
	assert.Equal(t, "0x5", MethodSpecificId("did:ethr:0x5:0xabc"))
	assert.Equal(t, "", MethodSpecificId("did:key"))

	didString, fragment := SplitDidUrl("did:key:z6Mk#z6Mk")
	assert.Equal(t, "did:key:z6Mk", didString)
	assert.Equal(t, "z6Mk", fragment)

	didString, fragment = SplitDidUrl("did:key:z6Mk")
	assert.Equal(t, "did:key:z6Mk", didString)
	assert.Equal(t, "", fragment)
}

func TestKeyDid(t *testing.T) {

	logging.Configure(true, "DEBUG", true, []string{})

	type test struct {
		testName       string
		testKey        *jwk.JWK
		expectedPrefix string
		expectedCurve  string
	}
	tests := []test{
		{"An Ed25519 key should be encoded with the ed25519-pub codec.", importKey(t, ed25519Seed, jwk.Ed25519), "did:key:z6Mk", jwk.Ed25519},
		{"A secp256k1 key should be encoded with the secp256k1-pub codec.", importKey(t, scalarOne, jwk.Secp256k1), "did:key:zQ3s", jwk.Secp256k1},
		{"A P-256 key should be encoded with the p256-pub codec.", importKey(t, scalarOne, jwk.P256), "did:key:zDn", jwk.P256},
	}

	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			keyDid, kid, err := CreateKeyDid(tc.testKey)
			assert.NoError(t, err, tc.testName)
			if !strings.HasPrefix(keyDid, tc.expectedPrefix) {
				t.Errorf("%s - Expected prefix %s but was %s.", tc.testName, tc.expectedPrefix, keyDid)
			}
			assert.Equal(t, keyDid+"#"+MethodSpecificId(keyDid), kid, tc.testName)

			curve, publicKey, err := ParseKeyDid(kid)
			assert.NoError(t, err, tc.testName)
			assert.Equal(t, tc.expectedCurve, curve, tc.testName)

			expectedKey, _ := tc.testKey.GetPublicKey()
			switch typed := publicKey.(type) {
			case ed25519.PublicKey:
				assert.True(t, typed.Equal(expectedKey), tc.testName)
			case *secp256k1.PublicKey:
				assert.True(t, typed.IsEqual(expectedKey.(*secp256k1.PublicKey)), tc.testName)
			case *ecdsa.PublicKey:
				assert.True(t, typed.Equal(expectedKey), tc.testName)
			default:
				t.Errorf("%s - Unexpected key type %T.", tc.testName, publicKey)
			}
		})
	}
}

func TestParseKeyDid_Invalid(t *testing.T) {

	logging.Configure(true, "DEBUG", true, []string{})

	type test struct {
		testName      string
		testDid       string
		expectedError error
	}
	tests := []test{
		{"Another method should be rejected.", "did:web:example.org", ErrorMalformedDid},
		{"A non-multibase identifier should be rejected.", "did:key:abc", ErrorMalformedDid},
		{"Invalid base58 should be rejected.", "did:key:z0OIl", ErrorMalformedDid},
		{"An ed25519 key of wrong length should be rejected.", "did:key:" + KeyFingerprint(multicodec.Ed25519Pub, make([]byte, 10)), ErrorMalformedDid},
		{"An invalid secp256k1 key should be rejected.", "did:key:" + KeyFingerprint(multicodec.Secp256k1Pub, make([]byte, 33)), ErrorMalformedDid},
		{"An invalid P-256 key should be rejected.", "did:key:" + KeyFingerprint(multicodec.P256Pub, make([]byte, 33)), ErrorMalformedDid},
		{"An unsupported codec should be rejected.", "did:key:" + KeyFingerprint(multicodec.Bls12_381G2Pub, make([]byte, 96)), ErrorUnsupportedKeyType},
	}

	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			_, _, err := ParseKeyDid(tc.testDid)
			if !errors.Is(err, tc.expectedError) {
				t.Errorf("%s - Expected error %v but was %v.", tc.testName, tc.expectedError, err)
			}
		})
	}
}

func TestEthrDid(t *testing.T) {

	logging.Configure(true, "DEBUG", true, []string{})

	key := importKey(t, scalarOne, jwk.Secp256k1)

	ethrDid, err := CreateEthrDid(key, "")
	assert.NoError(t, err)
	assert.Equal(t, "did:ethr:"+addressOfOne, ethrDid)

	ethrDid, err = CreateEthrDid(key, "0x5")
	assert.NoError(t, err)
	assert.Equal(t, "did:ethr:0x5:"+addressOfOne, ethrDid)

	identifier, err := ParseEthrDid(ethrDid + "#controller")
	assert.NoError(t, err)
	assert.Equal(t, EthrIdentifier{Chain: "0x5", Address: addressOfOne}, identifier)

	identifier, err = ParseEthrDid("did:ethr:0x0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	assert.NoError(t, err)
	assert.Equal(t, "", identifier.Chain)
	assert.True(t, SameAddress(addressOfOne, AddressFromPublicKey(identifier.PublicKey)))

	_, err = CreateEthrDid(importKey(t, scalarOne, jwk.P256), "")
	assert.ErrorIs(t, err, ErrorUnsupportedKeyType)

	_, err = ParseEthrDid("did:ethr:7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	assert.ErrorIs(t, err, ErrorMalformedDid)
	_, err = ParseEthrDid("did:ethr:0x7E5F45")
	assert.ErrorIs(t, err, ErrorMalformedDid)
	_, err = ParseEthrDid("did:ethr:mainnet:sub:0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	assert.ErrorIs(t, err, ErrorMalformedDid)
	_, err = ParseEthrDid("did:key:0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	assert.ErrorIs(t, err, ErrorMalformedDid)
}

func TestSameAddress(t *testing.T) {
	assert.True(t, SameAddress(addressOfOne, strings.ToLower(addressOfOne)))
	assert.True(t, SameAddress(addressOfOne, strings.TrimPrefix(addressOfOne, "0x")))
	assert.False(t, SameAddress(addressOfOne, "0x0000000000000000000000000000000000000000"))
}

func TestJwkDid(t *testing.T) {

	logging.Configure(true, "DEBUG", true, []string{})

	edKey := importKey(t, ed25519Seed, jwk.Ed25519)
	jwkDid, kid, err := CreateJwkDid(edKey)
	assert.NoError(t, err)
	assert.Equal(t, "did:jwk:eyJrdHkiOiJPS1AiLCJjcnYiOiJFZDI1NTE5IiwieCI6IjExcVlBWUt4Q3JmVlNfN1R5V1FIT2c3aGN2UGFwaU1scndJYWFQY0hVUm8ifQ", jwkDid)
	assert.Equal(t, jwkDid+"#0", kid)

	decoded, err := DecodeJwkDid(kid)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"kty":"OKP","crv":"Ed25519","x":"11qYAYKxCrfVS_7TyWQHOg7hcvPapiMlrwIaaPcHURo"}`, string(decoded))

	curve, err := CurveOfJwkDid(jwkDid)
	assert.NoError(t, err)
	assert.Equal(t, jwk.Ed25519, curve)

	secpKey := importKey(t, scalarOne, jwk.Secp256k1)
	jwkDid, _, err = CreateJwkDid(secpKey)
	assert.NoError(t, err)
	curve, err = CurveOfJwkDid(jwkDid)
	assert.NoError(t, err)
	assert.Equal(t, jwk.Secp256k1, curve)

	_, err = DecodeJwkDid("did:key:abc")
	assert.ErrorIs(t, err, ErrorMalformedDid)
	_, err = CurveOfJwkDid("did:jwk:bm90LWpzb24")
	assert.ErrorIs(t, err, ErrorMalformedDid)
}
