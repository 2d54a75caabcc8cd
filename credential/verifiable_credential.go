package credential

import (
	"fmt"
	"reflect"

	"github.com/fiware/VCHolder/logging"
	"github.com/mitchellh/mapstructure"
)

// Subset of the structure of a Verifiable Credential
type VerifiableCredential struct {
	MappableVerifiableCredential
	raw map[string]interface{} // The unaltered complete credential
}

type MappableVerifiableCredential struct {
	Context           []interface{}     `mapstructure:"@context"`
	Id                string            `mapstructure:"id"`
	Types             []string          `mapstructure:"type"`
	Issuer            string            `mapstructure:"issuer"`
	IssuanceDate      string            `mapstructure:"issuanceDate"`
	ExpirationDate    string            `mapstructure:"expirationDate"`
	CredentialSubject CredentialSubject `mapstructure:"credentialSubject"`
}

// Subset of the structure of a CredentialSubject inside a Verifiable Credential
type CredentialSubject struct {
	Id     string                 `mapstructure:"id"`
	Claims map[string]interface{} `mapstructure:",remain"`
}

func (vc VerifiableCredential) GetRawData() map[string]interface{} {
	return vc.raw
}

func (vc VerifiableCredential) GetIssuer() string {
	return vc.Issuer
}

// MapCredential decodes the parts of a raw credential that are required to build its token payload.
func MapCredential(raw map[string]interface{}) (VerifiableCredential, error) {
	var data MappableVerifiableCredential

	config := &mapstructure.DecoderConfig{
		ErrorUnused:          false,
		Result:               &data,
		WeaklyTypedInput:     true,
		IgnoreUntaggedFields: true,
		DecodeHook:           mapstructure.ComposeDecodeHookFunc(credentialSubjectArrayDecoder, issuerObjectDecoder),
	}
	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return VerifiableCredential{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		logging.Log().Infof("Was not able to map the credential. Err: %v", err)
		return VerifiableCredential{}, codedError(ErrorMapCredential, CodeMapCredential, err.Error())
	}
	return VerifiableCredential{data, raw}, nil
}

func credentialSubjectArrayDecoder(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(CredentialSubject{}) {
		return data, nil
	}
	if reflect.TypeOf(data).Kind() != reflect.Slice {
		return data, nil
	}
	subjects := data.([]interface{})
	if len(subjects) > 0 {
		logging.Log().Warn("Found more than one credential subject. Will only use the first one.")
		return subjects[0], nil
	}
	return map[string]interface{}{}, nil
}

// issuers can be provided as object with an id
func issuerObjectDecoder(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.String || from.Kind() != reflect.Map {
		return data, nil
	}
	issuer, ok := data.(map[string]interface{})
	if !ok {
		return data, nil
	}
	id, ok := issuer["id"]
	if !ok {
		return data, fmt.Errorf("object without id")
	}
	return id, nil
}
