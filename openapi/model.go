package openapi

import "github.com/fiware/VCHolder/internal/jwk"

// ErrorMessage - error message to be returned by the api
type ErrorMessage struct {
	// A short summary of the error
	Summary string `json:"summary,omitempty"`
	// Details about the error
	Details string `json:"details,omitempty"`
}

type GenerateKeyRequest struct {
	Curve string `json:"curve"`
	Kid   string `json:"kid,omitempty"`
}

type ImportKeyRequest struct {
	// hex encoded private scalar, with or without 0x
	PrivateKey string `json:"privateKey" binding:"required"`
	Curve      string `json:"curve,omitempty"`
	Kid        string `json:"kid,omitempty"`
}

type ScalarResponse struct {
	PrivateKey string `json:"privateKey"`
}

// KeyMaterial to sign with, the configured holder key is used if empty
type KeyMaterial struct {
	PrivateKey string   `json:"privateKey,omitempty"`
	JWK        *jwk.JWK `json:"jwk,omitempty"`
	Direct     bool     `json:"direct,omitempty"`
}

type SiopRequest struct {
	// the authorization request of the relying party
	Request                string                 `json:"request" binding:"required"`
	Did                    string                 `json:"did,omitempty"`
	KeyMaterial            KeyMaterial            `json:"keyMaterial,omitempty"`
	Credentials            []interface{}          `json:"credentials,omitempty"`
	PresentationSubmission map[string]interface{} `json:"presentationSubmission,omitempty"`
	ValidDays              int                    `json:"validDays,omitempty"`
}

type CredentialRequest struct {
	Credential  map[string]interface{} `json:"credential" binding:"required"`
	KeyMaterial KeyMaterial            `json:"keyMaterial,omitempty"`
}

type CredentialResponse struct {
	Token string `json:"token"`
}

type VerifyRequest struct {
	Token        string `json:"token" binding:"required"`
	Audience     string `json:"audience,omitempty"`
	Presentation bool   `json:"presentation,omitempty"`
}

type ProofRequest struct {
	Proof  string `json:"proof" binding:"required"`
	Verify bool   `json:"verify,omitempty"`
}
