// Package siop implements the holder side of the Self-Issued OpenID Provider flow: answering an authorization request
// with a signed id_token or vp_token.
package siop

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/fiware/VCHolder/common"
	"github.com/fiware/VCHolder/logging"
	"github.com/mitchellh/mapstructure"
)

var ErrorInvalidRequest = errors.New("invalid_siop_request")

const (
	ResponseTypeNone    = "none"
	ResponseTypeIdToken = "id_token"
	ResponseTypeVpToken = "vp_token"
)

const (
	ResponseModeDirectPost = "direct_post"
	ResponseModeQuery      = "query"
	ResponseModeFragment   = "fragment"
)

// RequestParams are the parameters of an authorization request.
type RequestParams struct {
	ClientId                  string `mapstructure:"client_id"`
	ResponseType              string `mapstructure:"response_type"`
	ResponseMode              string `mapstructure:"response_mode"`
	RedirectUri               string `mapstructure:"redirect_uri"`
	State                     string `mapstructure:"state"`
	Nonce                     string `mapstructure:"nonce"`
	PresentationDefinition    string `mapstructure:"presentation_definition"`
	PresentationDefinitionUri string `mapstructure:"presentation_definition_uri"`
	Scope                     string `mapstructure:"scope"`
}

/**
* Parse the authorization request(f.e. an openid:// deep-link) into its parameters. The redirect_uri has to be an
* absolute url, the response_type one of id_token, vp_token or none.
**/
func ParseRequest(request string) (params RequestParams, err error) {
	rawParams := common.ReadUrlParams(request)
	if err = mapstructure.Decode(rawParams, &params); err != nil {
		logging.Log().Infof("Was not able to decode the request parameters. Err: %v", err)
		return params, fmt.Errorf("%w: %v", ErrorInvalidRequest, err)
	}
	params.ResponseType = strings.ToLower(params.ResponseType)
	params.ResponseMode = strings.ToLower(params.ResponseMode)

	switch params.ResponseType {
	case ResponseTypeIdToken, ResponseTypeVpToken, ResponseTypeNone:
	default:
		logging.Log().Infof("The response_type %q is not supported.", params.ResponseType)
		return params, fmt.Errorf("%w: response_type %q is not supported", ErrorInvalidRequest, params.ResponseType)
	}

	redirectUri, err := url.Parse(params.RedirectUri)
	if err != nil || !redirectUri.IsAbs() || redirectUri.Host == "" {
		logging.Log().Infof("The redirect_uri %q is not an absolute url.", params.RedirectUri)
		return params, fmt.Errorf("%w: redirect_uri %q is not an absolute url", ErrorInvalidRequest, params.RedirectUri)
	}
	return params, nil
}

// GetPresentationDefinition decodes the presentation definition carried by value in the request.
func (rp RequestParams) GetPresentationDefinition() (definition map[string]interface{}, err error) {
	if rp.PresentationDefinition == "" {
		return definition, err
	}
	if err = common.ParseJsonFromUrlParam(rp.PresentationDefinition, &definition); err != nil {
		logging.Log().Infof("The presentation_definition is not valid json. Err: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrorInvalidRequest, err)
	}
	return definition, err
}

// tokenParameter is the name under which the token is returned for the response type, empty for none.
func (rp RequestParams) tokenParameter() string {
	if rp.ResponseType == ResponseTypeNone {
		return ""
	}
	return rp.ResponseType
}
