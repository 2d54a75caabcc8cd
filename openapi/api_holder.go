package openapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/fiware/VCHolder/credential"
	"github.com/fiware/VCHolder/holder"
	"github.com/fiware/VCHolder/internal/jwk"
	"github.com/fiware/VCHolder/logging"
	"github.com/fiware/VCHolder/resolver"
	"github.com/fiware/VCHolder/siop"
	"github.com/fiware/VCHolder/token"

	"github.com/gin-gonic/gin"
)

// HolderApi is the functionality offered through the api, implemented by the holder.Holder
type HolderApi interface {
	GenerateKey(curve string, kid string) (holder.KeyInfo, error)
	ImportKey(scalar string, curve string, kid string) (holder.KeyInfo, error)
	ExportScalar(key *jwk.JWK) (string, error)
	RunSiop(ctx context.Context, input siop.FlowInput) (siop.Outcome, error)
	IssueCredential(vc map[string]interface{}, material token.KeyMaterial) (string, error)
	VerifyToken(ctx context.Context, signedToken string, audience string, presentation bool) (token.VerificationResult, error)
	CheckProof(ctx context.Context, proof string, verify bool) (token.ProofCheckResult, error)
}

var apiHolder HolderApi

var ErrorMessageInvalidBody = ErrorMessage{"invalid_body", "The request body could not be read."}
var ErrorMessageNotInitialized = ErrorMessage{"holder_not_initialized", "The holder is not ready to serve requests."}

// status to be answered for an error, checked in order
var errorStatus = []struct {
	err    error
	status int
}{
	{jwk.ErrorInvalidKeyMaterial, http.StatusBadRequest},
	{jwk.ErrorUnsupportedCurve, http.StatusUnprocessableEntity},
	{token.ErrorMissingSignOptions, http.StatusPreconditionRequired},
	{token.ErrorUnsupportedDidMethod, http.StatusUnsupportedMediaType},
	{token.ErrorUnimplementedMethod, http.StatusNotImplemented},
	{token.ErrorInvalidProofType, http.StatusNotAcceptable},
	{token.ErrorInvalidDid, http.StatusPreconditionFailed},
	{token.ErrorMissingAudience, http.StatusBadRequest},
	{token.ErrorMissingPresentation, http.StatusBadRequest},
	{token.ErrorInvalidProof, http.StatusUnauthorized},
	{siop.ErrorNoCredentialsAvailable, http.StatusNotFound},
	{siop.ErrorDirectPostFailed, http.StatusBadGateway},
	{siop.ErrorInvalidRequest, http.StatusBadRequest},
	{siop.ErrorUnsupportedResponseMode, http.StatusBadRequest},
	{holder.ErrorNoHolderDid, http.StatusBadRequest},
	{resolver.ErrorUnresolvableDid, http.StatusFailedDependency},
	{resolver.ErrorNoVerificationKey, http.StatusFailedDependency},
	{resolver.ErrorUnsupportedResolverMethod, http.StatusFailedDependency},
	{credential.ErrorInvalidCredential, http.StatusConflict},
	{credential.ErrorMapCredential, http.StatusConflict},
	{credential.ErrorUnsupportedCredentialModel, http.StatusConflict},
	{credential.ErrorInvalidDate, http.StatusConflict},
}

func getApiHolder() HolderApi {
	if apiHolder == nil {
		// a nil *Holder must not end up inside the interface
		if initialized := holder.GetHolder(); initialized != nil {
			apiHolder = initialized
		}
	}
	return apiHolder
}

func holderOrAbort(c *gin.Context) (HolderApi, bool) {
	api := getApiHolder()
	if api == nil {
		logging.Log().Warnf("Request to %s before the holder was initialized.", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorMessageNotInitialized)
		return nil, false
	}
	return api, true
}

// GenerateKey - create a new key
func GenerateKey(c *gin.Context) {
	var request GenerateKeyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorMessageInvalidBody)
		return
	}
	api, ok := holderOrAbort(c)
	if !ok {
		return
	}
	keyInfo, err := api.GenerateKey(request.Curve, request.Kid)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, keyInfo)
}

// ImportKey - create the jwk of a private scalar
func ImportKey(c *gin.Context) {
	var request ImportKeyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorMessageInvalidBody)
		return
	}
	api, ok := holderOrAbort(c)
	if !ok {
		return
	}
	keyInfo, err := api.ImportKey(request.PrivateKey, request.Curve, request.Kid)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, keyInfo)
}

// ExportScalar - return the private scalar of a jwk
func ExportScalar(c *gin.Context) {
	var key jwk.JWK
	if err := c.ShouldBindJSON(&key); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorMessageInvalidBody)
		return
	}
	api, ok := holderOrAbort(c)
	if !ok {
		return
	}
	scalar, err := api.ExportScalar(&key)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ScalarResponse{PrivateKey: scalar})
}

// SiopFlow - answer an authorization request
func SiopFlow(c *gin.Context) {
	var request SiopRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorMessageInvalidBody)
		return
	}
	api, ok := holderOrAbort(c)
	if !ok {
		return
	}
	outcome, err := api.RunSiop(c.Request.Context(), siop.FlowInput{
		Request:                request.Request,
		HolderDid:              request.Did,
		Key:                    toKeyMaterial(request.KeyMaterial),
		Credentials:            request.Credentials,
		PresentationSubmission: request.PresentationSubmission,
		ValidDays:              request.ValidDays,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// IssueCredential - sign a credential as JWT-VC
func IssueCredential(c *gin.Context) {
	var request CredentialRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorMessageInvalidBody)
		return
	}
	api, ok := holderOrAbort(c)
	if !ok {
		return
	}
	signedToken, err := api.IssueCredential(request.Credential, toKeyMaterial(request.KeyMaterial))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CredentialResponse{Token: signedToken})
}

// VerifyToken - verify a credential or presentation token
func VerifyToken(c *gin.Context) {
	var request VerifyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorMessageInvalidBody)
		return
	}
	api, ok := holderOrAbort(c)
	if !ok {
		return
	}
	result, err := api.VerifyToken(c.Request.Context(), request.Token, request.Audience, request.Presentation)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CheckProof - check an openid4vci key proof
func CheckProof(c *gin.Context) {
	var request ProofRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorMessageInvalidBody)
		return
	}
	api, ok := holderOrAbort(c)
	if !ok {
		return
	}
	result, err := api.CheckProof(c.Request.Context(), request.Proof, request.Verify)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func toKeyMaterial(material KeyMaterial) token.KeyMaterial {
	return token.KeyMaterial{PrivateKey: material.PrivateKey, JWK: material.JWK, Direct: material.Direct}
}

func abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logging.Log().Warnf("Request to %s failed. Err: %v", c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, ErrorMessage{Summary: summaryOf(err), Details: err.Error()})
}

func statusOf(err error) int {
	for _, mapping := range errorStatus {
		if errors.Is(err, mapping.err) {
			return mapping.status
		}
	}
	return http.StatusInternalServerError
}

func summaryOf(err error) string {
	for _, mapping := range errorStatus {
		if errors.Is(err, mapping.err) {
			return mapping.err.Error()
		}
	}
	return "internal_error"
}
