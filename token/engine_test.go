package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	configModel "github.com/fiware/VCHolder/config"
	"github.com/fiware/VCHolder/did"
	"github.com/fiware/VCHolder/internal/jwk"
	"github.com/fiware/VCHolder/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

const (
	scalarOne   = "0x01"
	testScalar  = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	ed25519Seed = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
	testIat     = int64(1700000000)
)

type mockClock struct {
	now time.Time
}

func (mc mockClock) Now() time.Time {
	return mc.now
}

func getAdapter() jwk.Adapter {
	adapter, _ := jwk.NewAdapter(jwk.Secp256k1, mockClock{now: time.Unix(testIat, 0)})
	return adapter
}

func getEngine(nbfPolicy string) *Engine {
	engine, _ := NewEngine(configModel.Signing{NbfPolicy: nbfPolicy}, getAdapter())
	return engine
}

func importKey(t *testing.T, scalar string, curve string) *jwk.JWK {
	key, err := getAdapter().ImportFromScalar(scalar, curve, "test-key")
	if err != nil {
		t.Fatalf("Was not able to import the test key. Err: %v", err)
	}
	return key
}

func keyDidOf(t *testing.T, key *jwk.JWK) string {
	keyDid, _, err := did.CreateKeyDid(key)
	if err != nil {
		t.Fatalf("Was not able to create the did:key. Err: %v", err)
	}
	return keyDid
}

func jwkDidOf(t *testing.T, key *jwk.JWK) string {
	jwkDid, _, err := did.CreateJwkDid(key)
	if err != nil {
		t.Fatalf("Was not able to create the did:jwk. Err: %v", err)
	}
	return jwkDid
}

func ethrDidOf(t *testing.T, key *jwk.JWK) string {
	ethrDid, err := did.CreateEthrDid(key, "")
	if err != nil {
		t.Fatalf("Was not able to create the did:ethr. Err: %v", err)
	}
	return ethrDid
}

func getClaims(issuer string) Claims {
	return Claims{Issuer: issuer, Subject: issuer, IssuedAt: testIat, ExpiresAt: testIat + 3600, VC: map[string]interface{}{"type": []interface{}{"VerifiableCredential"}}}
}

func parseUnverified(t *testing.T, signed string) (map[string]interface{}, *Claims) {
	parsed, _, err := jwt.NewParser().ParseUnverified(signed, &Claims{})
	if err != nil {
		t.Fatalf("Was not able to parse the signed token. Err: %v", err)
	}
	return parsed.Header, parsed.Claims.(*Claims)
}

func TestNewEngine(t *testing.T) {

	logging.Configure(true, "DEBUG", true, []string{})

	type test struct {
		testName          string
		testConfig        configModel.Signing
		expectedNbfPolicy string
		expectedTyp       string
		expectedError     error
	}
	tests := []test{
		{"Without config, the defaults should be used.", configModel.Signing{}, NbfPolicyIat, DefaultTyp, nil},
		{"The configured values should be used.", configModel.Signing{NbfPolicy: NbfPolicyKeep, Typ: "vc+jwt"}, NbfPolicyKeep, "vc+jwt", nil},
		{"An unknown nbf policy should be rejected.", configModel.Signing{NbfPolicy: "now"}, "", "", ErrorUnsupportedNbfPolicy},
	}

	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			engine, err := NewEngine(tc.testConfig, getAdapter())
			if tc.expectedError != nil {
				if !errors.Is(err, tc.expectedError) {
					t.Errorf("%s - Expected error %v but was %v.", tc.testName, tc.expectedError, err)
				}
				return
			}
			assert.NoError(t, err, tc.testName)
			assert.Equal(t, tc.expectedNbfPolicy, engine.nbfPolicy, tc.testName)
			assert.Equal(t, tc.expectedTyp, engine.defaultTyp, tc.testName)
		})
	}
}

func TestSign(t *testing.T) {

	logging.Configure(true, "DEBUG", true, []string{})

	secpKey := importKey(t, testScalar, jwk.Secp256k1)
	p256Key := importKey(t, testScalar, jwk.P256)
	edKey := importKey(t, ed25519Seed, jwk.Ed25519)

	type test struct {
		testName      string
		testIssuer    string
		testMaterial  KeyMaterial
		expectedAlg   string
		expectedKid   string
		expectedError error
	}
	tests := []test{
		{testName: "A secp256k1 did:key should be signed with ES256K.", testIssuer: keyDidOf(t, secpKey), testMaterial: KeyMaterial{PrivateKey: testScalar},
			expectedAlg: AlgES256K, expectedKid: keyDidOf(t, secpKey) + "#" + did.MethodSpecificId(keyDidOf(t, secpKey))},
		{testName: "A P-256 did:key should be signed with ES256.", testIssuer: keyDidOf(t, p256Key), testMaterial: KeyMaterial{PrivateKey: testScalar},
			expectedAlg: "ES256", expectedKid: keyDidOf(t, p256Key) + "#" + did.MethodSpecificId(keyDidOf(t, p256Key))},
		{testName: "An Ed25519 did:key should be signed with EdDSA.", testIssuer: keyDidOf(t, edKey), testMaterial: KeyMaterial{PrivateKey: ed25519Seed},
			expectedAlg: "EdDSA", expectedKid: keyDidOf(t, edKey) + "#" + did.MethodSpecificId(keyDidOf(t, edKey))},
		{testName: "A did:ethr should be signed with ES256K and the controller kid.", testIssuer: ethrDidOf(t, secpKey), testMaterial: KeyMaterial{PrivateKey: testScalar},
			expectedAlg: AlgES256K, expectedKid: ethrDidOf(t, secpKey) + "#controller"},
		{testName: "A did:jwk should be signed with the curve of the embedded key.", testIssuer: jwkDidOf(t, p256Key), testMaterial: KeyMaterial{PrivateKey: testScalar},
			expectedAlg: "ES256", expectedKid: jwkDidOf(t, p256Key) + "#0"},
		{testName: "A jwk should be delegated to the issuer of the did.", testIssuer: ethrDidOf(t, secpKey), testMaterial: KeyMaterial{JWK: secpKey},
			expectedAlg: AlgES256K, expectedKid: ethrDidOf(t, secpKey) + "#controller"},
		{testName: "A jwk should be signed directly if requested.", testIssuer: "did:web:example.org", testMaterial: KeyMaterial{JWK: p256Key, Direct: true},
			expectedAlg: "ES256", expectedKid: "did:web:example.org#example.org"},
		{testName: "The private key should take precedence over the jwk.", testIssuer: keyDidOf(t, edKey), testMaterial: KeyMaterial{PrivateKey: ed25519Seed, JWK: secpKey, Direct: true},
			expectedAlg: "EdDSA", expectedKid: keyDidOf(t, edKey) + "#" + did.MethodSpecificId(keyDidOf(t, edKey))},
		{testName: "Without key material, signing should fail.", testIssuer: keyDidOf(t, secpKey), expectedError: ErrorMissingSignOptions},
		{testName: "A non did issuer should be rejected.", testIssuer: "https://issuer.org", testMaterial: KeyMaterial{PrivateKey: testScalar}, expectedError: ErrorInvalidDid},
		{testName: "A non did issuer should be rejected for direct signing.", testIssuer: "issuer", testMaterial: KeyMaterial{JWK: secpKey, Direct: true}, expectedError: ErrorInvalidDid},
		{testName: "An unknown did method should be rejected.", testIssuer: "did:web:example.org", testMaterial: KeyMaterial{PrivateKey: testScalar}, expectedError: ErrorUnsupportedDidMethod},
		{testName: "The ev method should not be implemented.", testIssuer: "did:ev:0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", testMaterial: KeyMaterial{PrivateKey: testScalar}, expectedError: ErrorUnimplementedMethod},
		{testName: "A malformed did:key should be rejected.", testIssuer: "did:key:abc", testMaterial: KeyMaterial{PrivateKey: testScalar}, expectedError: ErrorInvalidDid},
		{testName: "A malformed did:ethr should be rejected.", testIssuer: "did:ethr:0x01", testMaterial: KeyMaterial{PrivateKey: testScalar}, expectedError: ErrorInvalidDid},
		{testName: "An invalid scalar should be rejected.", testIssuer: ethrDidOf(t, secpKey), testMaterial: KeyMaterial{PrivateKey: "0xnothex"}, expectedError: jwk.ErrorInvalidKeyMaterial},
	}

	engine := getEngine("")

	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			signed, err := engine.Sign(getClaims(tc.testIssuer), tc.testMaterial, SignParams{})
			if tc.expectedError != nil {
				if !errors.Is(err, tc.expectedError) {
					t.Errorf("%s - Expected error %v but was %v.", tc.testName, tc.expectedError, err)
				}
				return
			}
			assert.NoError(t, err, tc.testName)
			assert.Len(t, strings.Split(signed, "."), 3, tc.testName)

			header, claims := parseUnverified(t, signed)
			assert.Equal(t, tc.expectedAlg, header["alg"], tc.testName)
			assert.Equal(t, tc.expectedKid, header["kid"], tc.testName)
			assert.Equal(t, DefaultTyp, header["typ"], tc.testName)
			assert.Equal(t, tc.testIssuer, claims.Issuer, tc.testName)
		})
	}
}

func TestSign_ES256KDeterministic(t *testing.T) {

	logging.Configure(true, "DEBUG", true, []string{})

	secpKey := importKey(t, testScalar, jwk.Secp256k1)
	engine := getEngine("")

	keyDid := keyDidOf(t, secpKey)
	fromScalar, err := engine.Sign(getClaims(keyDid), KeyMaterial{PrivateKey: testScalar}, SignParams{})
	assert.NoError(t, err)
	fromScalarAgain, _ := engine.Sign(getClaims(keyDid), KeyMaterial{PrivateKey: testScalar}, SignParams{})
	fromJwk, _ := engine.Sign(getClaims(keyDid), KeyMaterial{JWK: secpKey}, SignParams{})
	direct, _ := engine.Sign(getClaims(keyDid), KeyMaterial{JWK: secpKey, Direct: true}, SignParams{})

	assert.Equal(t, fromScalar, fromScalarAgain, "Signing the same claims twice should result in the same token.")
	assert.Equal(t, fromScalar, fromJwk, "Signing with the jwk should be equal to signing with its scalar.")
	assert.Equal(t, fromScalar, direct, "Direct signing of a did:key should be equal to the delegated signature.")
}

func TestSign_Params(t *testing.T) {

	logging.Configure(true, "DEBUG", true, []string{})

	edKey := importKey(t, ed25519Seed, jwk.Ed25519)
	keyDid := keyDidOf(t, edKey)
	material := KeyMaterial{PrivateKey: ed25519Seed}

	type test struct {
		testName         string
		testNbfPolicy    string
		testClaims       Claims
		testParams       SignParams
		expectedTyp      string
		expectedAudience []string
		expectedNbf      int64
		expectedHeader   map[string]interface{}
		expectedError    error
	}
	tests := []test{
		{testName: "The nbf should be aligned with the iat.", testNbfPolicy: NbfPolicyIat, testClaims: Claims{Issuer: keyDid, IssuedAt: testIat, NotBefore: 5},
			expectedTyp: DefaultTyp, expectedNbf: testIat},
		{testName: "The nbf should be kept if configured.", testNbfPolicy: NbfPolicyKeep, testClaims: Claims{Issuer: keyDid, IssuedAt: testIat, NotBefore: 5},
			expectedTyp: DefaultTyp, expectedNbf: 5},
		{testName: "An absent nbf should not be added.", testNbfPolicy: NbfPolicyIat, testClaims: Claims{Issuer: keyDid, IssuedAt: testIat},
			expectedTyp: DefaultTyp},
		{testName: "The audience parameter should overwrite the claim.", testClaims: Claims{Issuer: keyDid, Audience: []string{"a", "b"}},
			testParams: SignParams{Audience: "https://verifier.org"}, expectedTyp: DefaultTyp, expectedAudience: []string{"https://verifier.org"}},
		{testName: "The audience claim should be kept without parameter.", testClaims: Claims{Issuer: keyDid, Audience: []string{"a", "b"}},
			expectedTyp: DefaultTyp, expectedAudience: []string{"a", "b"}},
		{testName: "The typ parameter should be used.", testClaims: Claims{Issuer: keyDid},
			testParams: SignParams{Typ: ProofTypeOpenId4VCI}, expectedTyp: ProofTypeOpenId4VCI},
		{testName: "The typ header should be used.", testClaims: Claims{Issuer: keyDid},
			testParams: SignParams{Headers: map[string]interface{}{"typ": "vp+jwt"}}, expectedTyp: "vp+jwt"},
		{testName: "Additional headers should be set, but alg and kid not be overwritten.", testClaims: Claims{Issuer: keyDid},
			testParams: SignParams{Headers: map[string]interface{}{"cty": "vc", "alg": "none", "kid": "other"}}, expectedTyp: DefaultTyp,
			expectedHeader: map[string]interface{}{"cty": "vc", "alg": "EdDSA", "kid": keyDid + "#" + did.MethodSpecificId(keyDid)}},
		{testName: "A presentation without vp should be rejected.", testClaims: Claims{Issuer: keyDid},
			testParams: SignParams{Presentation: true}, expectedError: ErrorMissingPresentation},
		{testName: "A presentation with vp should be signed.", testClaims: Claims{Issuer: keyDid, VP: map[string]interface{}{"type": "VerifiablePresentation"}},
			testParams: SignParams{Presentation: true}, expectedTyp: DefaultTyp},
	}

	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			signed, err := getEngine(tc.testNbfPolicy).Sign(tc.testClaims, material, tc.testParams)
			if tc.expectedError != nil {
				if !errors.Is(err, tc.expectedError) {
					t.Errorf("%s - Expected error %v but was %v.", tc.testName, tc.expectedError, err)
				}
				return
			}
			assert.NoError(t, err, tc.testName)
			header, claims := parseUnverified(t, signed)
			assert.Equal(t, tc.expectedTyp, header["typ"], tc.testName)
			assert.Equal(t, tc.expectedNbf, claims.NotBefore, tc.testName)
			if tc.expectedAudience != nil {
				assert.Equal(t, tc.expectedAudience, claims.Audience, tc.testName)
			}
			for k, v := range tc.expectedHeader {
				assert.Equal(t, v, header[k], tc.testName)
			}
		})
	}
}

func TestCreateCredentialToken(t *testing.T) {

	logging.Configure(true, "DEBUG", true, []string{})

	secpKey := importKey(t, testScalar, jwk.Secp256k1)
	engine := getEngine("")

	claims := getClaims(ethrDidOf(t, secpKey))
	signed, err := engine.CreateCredentialToken(claims, KeyMaterial{PrivateKey: testScalar})
	assert.NoError(t, err)
	_, parsedClaims := parseUnverified(t, signed)
	assert.Equal(t, claims.VC, parsedClaims.VC)

	claims.VC = nil
	_, err = engine.CreateCredentialToken(claims, KeyMaterial{PrivateKey: testScalar})
	assert.ErrorIs(t, err, ErrorMissingSignOptions)
}

func TestRegisterIssuer(t *testing.T) {

	logging.Configure(true, "DEBUG", true, []string{})

	engine := getEngine("")
	engine.RegisterIssuer("web", func(adapter jwk.Adapter, issuerDid string, scalar string) (Issuer, error) {
		return newIssuer(adapter, jwk.P256, scalar, issuerDid, issuerDid+"#key-1")
	})

	signed, err := engine.Sign(Claims{Issuer: "did:web:example.org"}, KeyMaterial{PrivateKey: testScalar}, SignParams{})
	assert.NoError(t, err)
	header, _ := parseUnverified(t, signed)
	assert.Equal(t, "did:web:example.org#key-1", header["kid"])
	assert.Equal(t, "ES256", header["alg"])
}
