package holder

import (
	"context"
	"errors"
	"time"

	"github.com/fiware/VCHolder/common"
	configModel "github.com/fiware/VCHolder/config"
	"github.com/fiware/VCHolder/credential"
	"github.com/fiware/VCHolder/did"
	"github.com/fiware/VCHolder/internal/jwk"
	"github.com/fiware/VCHolder/logging"
	"github.com/fiware/VCHolder/resolver"
	"github.com/fiware/VCHolder/siop"
	"github.com/fiware/VCHolder/token"
)

var ErrorNoHolderDid = errors.New("no_holder_did")

// Holder bundles the key handling, signing, verification and siop flow of the wallet.
type Holder struct {
	// did to act as, if the request does not name one
	did string
	// key to sign with, if the request does not contain one
	key        *jwk.JWK
	adapter    jwk.Adapter
	engine     *token.Engine
	controller *siop.Controller
	resolver   resolver.Resolver
	leeway     time.Duration
	clock      common.Clock
}

// KeyInfo is a key together with the dids it can act as.
type KeyInfo struct {
	Key  *jwk.JWK          `json:"key"`
	Dids map[string]string `json:"dids"`
}

var holder *Holder

/**
* Initialize the singleton holder from the configuration.
**/
func InitHolder(configuration *configModel.Configuration) (err error) {
	poster := siop.NewHttpFormPoster(time.Duration(configuration.Siop.DirectPostTimeout) * time.Second)
	holder, err = NewHolder(configuration, poster, common.RealClock{})
	if err != nil {
		logging.Log().Errorf("Was not able to initialize the holder. Err: %v", err)
		return err
	}
	logging.Log().Debug("Successfully initalized the holder")
	return
}

func GetHolder() *Holder {
	if holder == nil {
		logging.Log().Error("Holder is not initialized.")
	}
	return holder
}

func NewHolder(configuration *configModel.Configuration, poster siop.FormPoster, clock common.Clock) (*Holder, error) {
	adapter, err := jwk.NewAdapter(configuration.Holder.DefaultCurve, clock)
	if err != nil {
		return nil, err
	}
	var key *jwk.JWK
	if configuration.Holder.KeyPath != "" {
		key, err = jwk.NewJWKFromFile(configuration.Holder.KeyPath)
		if err != nil {
			logging.Log().Warnf("Was not able to read the holder key from %s. Err: %v", configuration.Holder.KeyPath, err)
			return nil, err
		}
	}
	engine, err := token.NewEngine(configuration.Signing, adapter)
	if err != nil {
		return nil, err
	}
	keyResolver, err := resolver.NewMultiResolver(configuration.Resolver)
	if err != nil {
		return nil, err
	}
	return &Holder{
		did:        configuration.Holder.Did,
		key:        key,
		adapter:    adapter,
		engine:     engine,
		controller: siop.NewController(configuration.Siop, configuration.Holder.ValidDays, engine, poster, clock),
		resolver:   keyResolver,
		leeway:     time.Duration(configuration.Resolver.ClockSkew) * time.Second,
		clock:      clock,
	}, nil
}

func (h *Holder) GenerateKey(curve string, kid string) (keyInfo KeyInfo, err error) {
	key, err := h.adapter.Generate(curve, kid)
	if err != nil {
		return keyInfo, err
	}
	return KeyInfo{Key: key, Dids: deriveDids(key)}, err
}

func (h *Holder) ImportKey(scalar string, curve string, kid string) (keyInfo KeyInfo, err error) {
	key, err := h.adapter.ImportFromScalar(scalar, curve, kid)
	if err != nil {
		return keyInfo, err
	}
	return KeyInfo{Key: key, Dids: deriveDids(key)}, err
}

func (h *Holder) ExportScalar(key *jwk.JWK) (string, error) {
	return jwk.ToScalar(key)
}

/**
* Answer the authorization request. Did and key material fall back to the configured holder identity.
**/
func (h *Holder) RunSiop(ctx context.Context, input siop.FlowInput) (siop.Outcome, error) {
	if input.HolderDid == "" {
		input.HolderDid = h.did
	}
	if input.HolderDid == "" {
		return siop.Outcome{}, ErrorNoHolderDid
	}
	input.Key = h.keyMaterial(input.Key)
	return h.controller.Run(ctx, input)
}

/**
* Shape the credential into a JWT-VC payload and sign it as the credentials issuer.
**/
func (h *Holder) IssueCredential(vc map[string]interface{}, material token.KeyMaterial) (string, error) {
	payload, err := credential.CreatePayloadVCV1(vc)
	if err != nil {
		return "", err
	}
	return h.engine.CreateCredentialToken(payload, h.keyMaterial(material))
}

// VerifyToken verifies a credential token, or a presentation token for the audience if presentation is requested.
func (h *Holder) VerifyToken(ctx context.Context, signedToken string, audience string, presentation bool) (token.VerificationResult, error) {
	options := token.VerifyOptions{Leeway: h.leeway, Clock: h.clock}
	if presentation {
		return token.VerifyPresentationToken(ctx, signedToken, h.resolver, audience, options)
	}
	return token.VerifyCredentialToken(ctx, signedToken, h.resolver, options)
}

// CheckProof checks an openid4vci key proof, including its signature if verify is requested.
func (h *Holder) CheckProof(ctx context.Context, proof string, verify bool) (token.ProofCheckResult, error) {
	if verify {
		return token.ProofTypeCheck(ctx, proof, h.resolver)
	}
	return token.ProofTypeCheck(ctx, proof, nil)
}

func (h *Holder) keyMaterial(material token.KeyMaterial) token.KeyMaterial {
	if material.PrivateKey == "" && material.JWK == nil && h.key != nil {
		return token.KeyMaterial{JWK: h.key}
	}
	return material
}

func deriveDids(key *jwk.JWK) map[string]string {
	dids := map[string]string{}
	if keyDid, _, err := did.CreateKeyDid(key); err == nil {
		dids[token.DidMethodKey] = keyDid
	}
	if jwkDid, _, err := did.CreateJwkDid(key); err == nil {
		dids[token.DidMethodJwk] = jwkDid
	}
	if key.Crv == jwk.Secp256k1 {
		if ethrDid, err := did.CreateEthrDid(key, ""); err == nil {
			dids[token.DidMethodEthr] = ethrDid
		}
	}
	return dids
}
