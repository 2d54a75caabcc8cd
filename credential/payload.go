// Package credential shapes W3C verifiable credentials and presentations into token payloads.
package credential

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fiware/VCHolder/logging"
	"github.com/fiware/VCHolder/token"
	"github.com/google/uuid"
	"github.com/trustbloc/vc-go/verifiable"
	"golang.org/x/exp/slices"
)

const (
	CodeMapCredential              = "ECREDENTIAL0001"
	CodeInvalidCredential          = "ECREDENTIAL0002"
	CodeUnsupportedCredentialModel = "ECREDENTIAL0003"
	CodeInvalidDate                = "ECREDENTIAL0004"
)

const (
	ContextCredentialsV1       = "https://www.w3.org/2018/credentials/v1"
	ContextCredentialsV2       = "https://www.w3.org/ns/credentials/v2"
	TypeVerifiablePresentation = "VerifiablePresentation"
)

const credentialIdPrefix = "urn:uuid:"

const (
	missingSubjectMessage      = "Credential subject id is mandatory."
	missingIssuerMessage       = "Issuer is mandatory."
	missingIssuanceDateMessage = "Issuance date is mandatory."
)

var ErrorMapCredential = errors.New("failed_to_map_credential")
var ErrorInvalidCredential = errors.New("invalid_credential")
var ErrorUnsupportedCredentialModel = errors.New("unsupported_credential_model")
var ErrorInvalidDate = errors.New("invalid_date")

// accepted ISO 8601 representations
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

/**
* Build the JWT-VC payload of a W3C VC data model v1 credential. Subject id, issuer and issuance date are mandatory.
* The credential is completed with the default context and a uuid based id, if they are missing.
**/
func CreatePayloadVCV1(raw map[string]interface{}) (payload token.Claims, err error) {
	vc, err := MapCredential(raw)
	if err != nil {
		return payload, err
	}

	missing := []string{}
	if vc.CredentialSubject.Id == "" {
		missing = append(missing, missingSubjectMessage)
	}
	if vc.Issuer == "" {
		missing = append(missing, missingIssuerMessage)
	}
	if vc.IssuanceDate == "" {
		missing = append(missing, missingIssuanceDateMessage)
	}
	if len(missing) > 0 {
		logging.Log().Infof("Credential is not valid: %v", missing)
		return payload, codedError(ErrorInvalidCredential, CodeInvalidCredential, strings.Join(missing, " "))
	}
	if slices.Contains(vc.Context, interface{}(ContextCredentialsV2)) {
		return payload, codedError(ErrorUnsupportedCredentialModel, CodeUnsupportedCredentialModel, ContextCredentialsV2)
	}

	issuanceDate, err := ParseDate(vc.IssuanceDate)
	if err != nil {
		return payload, err
	}
	var expirationDate time.Time
	if vc.ExpirationDate != "" {
		expirationDate, err = ParseDate(vc.ExpirationDate)
		if err != nil {
			return payload, err
		}
	}

	credential := copyMap(raw)
	if len(vc.Context) == 0 {
		credential["@context"] = []interface{}{ContextCredentialsV1}
	}
	id := vc.Id
	if id == "" {
		id = credentialIdPrefix + uuid.NewString()
		credential["id"] = id
	}

	payload = token.Claims{
		Issuer:    vc.Issuer,
		Subject:   vc.CredentialSubject.Id,
		JwtId:     id,
		IssuedAt:  issuanceDate.Unix(),
		NotBefore: issuanceDate.Unix(),
		VC:        credential,
	}
	if !expirationDate.IsZero() {
		payload.ExpiresAt = expirationDate.Unix()
	}
	return payload, err
}

// CreatePresentation wraps the credentials into a presentation of the holder. The credentials are taken as they are,
// jwt encoded ones stay strings.
func CreatePresentation(holderDid string, credentials []interface{}) (presentation map[string]interface{}, err error) {
	vp, err := verifiable.NewPresentation()
	if err != nil {
		logging.Log().Warnf("Was not able to create a presentation. Err: %v", err)
		return presentation, err
	}
	vp.ID = holderDid
	vp.Holder = holderDid

	return map[string]interface{}{
		"id":                   vp.ID,
		"@context":             toInterfaces(vp.Context),
		"type":                 toInterfaces(vp.Type),
		"holder":               vp.Holder,
		"verifiableCredential": credentials,
	}, err
}

func toInterfaces(values []string) []interface{} {
	converted := make([]interface{}, 0, len(values))
	for _, v := range values {
		converted = append(converted, v)
	}
	return converted
}

// ParseDate parses an ISO 8601 date. Values without zone are taken as UTC.
func ParseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	logging.Log().Infof("%s is not a valid ISO date.", value)
	return time.Time{}, codedError(ErrorInvalidDate, CodeInvalidDate, value)
}

func codedError(err error, code string, details string) error {
	return fmt.Errorf("%w: %s (%s)", err, details, code)
}

func copyMap(source map[string]interface{}) map[string]interface{} {
	copied := make(map[string]interface{}, len(source))
	for k, v := range source {
		copied[k] = v
	}
	return copied
}
