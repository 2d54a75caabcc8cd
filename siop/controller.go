package siop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fiware/VCHolder/common"
	configModel "github.com/fiware/VCHolder/config"
	"github.com/fiware/VCHolder/credential"
	"github.com/fiware/VCHolder/logging"
	"github.com/fiware/VCHolder/token"
)

var ErrorNoCredentialsAvailable = errors.New("no_credentials_available")
var ErrorDirectPostFailed = errors.New("direct_post_failed")
var ErrorUnsupportedResponseMode = errors.New("unsupported_response_mode")

const (
	// the token was already delivered to the relying party
	ModeAsResponse = "response"
	// the caller has to send the user agent to the url
	ModeAsRequest = "request"
)

const (
	parameterState                  = "state"
	parameterPresentationSubmission = "presentation_submission"
)

// Signer creates the signed token for a claim set, implemented by the token.Engine.
type Signer interface {
	Sign(claims token.Claims, material token.KeyMaterial, params token.SignParams) (string, error)
}

// FlowInput is everything required to answer a single authorization request.
type FlowInput struct {
	// the authorization request, f.e. openid://?client_id=...
	Request   string
	HolderDid string
	Key       token.KeyMaterial
	// credentials to be presented, in their serialized(jwt) or json form
	Credentials            []interface{}
	PresentationSubmission map[string]interface{}
	// validity of the token, the controllers default if 0
	ValidDays int
}

// Outcome describes how the flow ended.
type Outcome struct {
	ModeAs       string `json:"modeAs"`
	Url          string `json:"url,omitempty"`
	ResponseMode string `json:"responseMode"`
}

type Controller struct {
	signer             Signer
	poster             FormPoster
	clock              common.Clock
	validDays          int
	strictResponseMode bool
}

func NewController(siopConfig configModel.Siop, validDays int, signer Signer, poster FormPoster, clock common.Clock) *Controller {
	if clock == nil {
		clock = common.RealClock{}
	}
	return &Controller{
		signer:             signer,
		poster:             poster,
		clock:              clock,
		validDays:          validDays,
		strictResponseMode: siopConfig.StrictResponseMode,
	}
}

/**
* Run the flow: parse the request, sign the token and dispatch it according to the response mode.
**/
func (c *Controller) Run(ctx context.Context, input FlowInput) (outcome Outcome, err error) {
	params, err := ParseRequest(input.Request)
	if err != nil {
		return outcome, err
	}
	if !c.knownResponseMode(params.ResponseMode) && c.strictResponseMode {
		logging.Log().Infof("Response mode %q is not supported.", params.ResponseMode)
		return outcome, fmt.Errorf("%w: %q", ErrorUnsupportedResponseMode, params.ResponseMode)
	}

	signedToken, err := c.GetToken(params, input.HolderDid, input.Key, input.Credentials, input.ValidDays)
	if err != nil {
		return outcome, err
	}

	if params.ResponseMode == ResponseModeDirectPost {
		return c.directPost(ctx, params, signedToken, input.PresentationSubmission)
	}
	redirectUrl, err := buildRedirect(params, signedToken)
	if err != nil {
		return outcome, err
	}
	logging.Log().Debugf("Answer %s by redirect.", params.ClientId)
	return Outcome{ModeAs: ModeAsRequest, Url: redirectUrl, ResponseMode: params.ResponseMode}, err
}

/**
* Build and sign the token answering the request. For vp_token requests, the credentials are wrapped into a
* presentation of the holder.
**/
func (c *Controller) GetToken(params RequestParams, holderDid string, key token.KeyMaterial, credentials []interface{}, validDays int) (string, error) {
	if validDays <= 0 {
		validDays = c.validDays
	}
	jwtTime := common.GetJwtTime(validDays, c.clock.Now())
	claims := token.Claims{
		Issuer:    holderDid,
		Subject:   holderDid,
		Nonce:     params.Nonce,
		IssuedAt:  jwtTime.Iat,
		ExpiresAt: jwtTime.Exp,
		NotBefore: jwtTime.Nbf,
	}
	if params.ResponseType == ResponseTypeVpToken {
		if len(credentials) == 0 {
			logging.Log().Info("A vp_token was requested, but no credentials are available.")
			return "", ErrorNoCredentialsAvailable
		}
		presentation, err := credential.CreatePresentation(holderDid, credentials)
		if err != nil {
			return "", err
		}
		claims.VP = presentation
	}
	return c.signer.Sign(claims, key, token.SignParams{Audience: params.ClientId})
}

func (c *Controller) directPost(ctx context.Context, params RequestParams, signedToken string, presentationSubmission map[string]interface{}) (outcome Outcome, err error) {
	if presentationSubmission == nil {
		presentationSubmission = map[string]interface{}{}
	}
	submission, err := json.Marshal(presentationSubmission)
	if err != nil {
		return outcome, err
	}
	form := url.Values{}
	form.Set(parameterPresentationSubmission, string(submission))
	if params.State != "" {
		form.Set(parameterState, params.State)
	}
	if tokenParameter := params.tokenParameter(); tokenParameter != "" {
		form.Set(tokenParameter, signedToken)
	}

	status, location, err := c.poster.PostForm(ctx, params.RedirectUri, form)
	if err != nil {
		logging.Log().Warnf("Was not able to post the response to %s. Err: %v", params.RedirectUri, err)
		return outcome, err
	}
	switch {
	case status < http.StatusMultipleChoices:
		return Outcome{ModeAs: ModeAsResponse, ResponseMode: params.ResponseMode}, nil
	case status == http.StatusFound && location != "":
		return Outcome{ModeAs: ModeAsResponse, Url: location, ResponseMode: params.ResponseMode}, nil
	default:
		logging.Log().Infof("The relying party %s answered the direct_post with %d.", params.RedirectUri, status)
		return outcome, &DirectPostError{Status: status}
	}
}

func (c *Controller) knownResponseMode(responseMode string) bool {
	switch responseMode {
	case ResponseModeDirectPost, ResponseModeQuery, ResponseModeFragment:
		return true
	default:
		return false
	}
}

// buildRedirect appends the token and the state, in that order, to the redirect_uri. For the fragment mode, the
// query is turned into the fragment.
func buildRedirect(params RequestParams, signedToken string) (string, error) {
	redirectUrl, err := url.Parse(params.RedirectUri)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrorInvalidRequest, err)
	}
	query := []string{}
	if redirectUrl.RawQuery != "" {
		query = append(query, redirectUrl.RawQuery)
	}
	if tokenParameter := params.tokenParameter(); tokenParameter != "" {
		query = append(query, tokenParameter+"="+url.QueryEscape(signedToken))
	}
	if params.State != "" {
		query = append(query, parameterState+"="+url.QueryEscape(params.State))
	}
	redirectUrl.RawQuery = strings.Join(query, "&")

	redirect := redirectUrl.String()
	if params.ResponseMode == ResponseModeFragment {
		redirect = strings.Replace(redirect, "?", "#", 1)
	}
	return redirect, nil
}

// DirectPostError is returned if the relying party does not accept the direct_post. It matches
// ErrorDirectPostFailed.
type DirectPostError struct {
	Status int
}

func (e *DirectPostError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrorDirectPostFailed.Error(), e.Status)
}

func (e *DirectPostError) Unwrap() error {
	return ErrorDirectPostFailed
}
