package siop

import (
	"errors"
	"testing"

	"github.com/fiware/VCHolder/logging"
	"github.com/stretchr/testify/assert"
)

func TestParseRequest(t *testing.T) {

	logging.Configure(true, "DEBUG", true, []string{})

	type test struct {
		testName       string
		testRequest    string
		expectedParams RequestParams
		expectedError  error
	}
	tests := []test{
		{"An id_token request should be parsed.", "openid://?response_type=id_token&response_mode=direct_post&client_id=https%3A%2F%2Fverifier.org&redirect_uri=https%3A%2F%2Fverifier.org%2Fresponse&state=af0ifjsldkj&nonce=n-0S6_WzA2Mj&scope=openid",
			RequestParams{ClientId: "https://verifier.org", ResponseType: ResponseTypeIdToken, ResponseMode: ResponseModeDirectPost, RedirectUri: "https://verifier.org/response", State: "af0ifjsldkj", Nonce: "n-0S6_WzA2Mj", Scope: "openid"}, nil},
		{"Response type and mode should be lower cased.", "openid://?response_type=VP_TOKEN&response_mode=Fragment&client_id=c&redirect_uri=https://rp.org/cb",
			RequestParams{ClientId: "c", ResponseType: ResponseTypeVpToken, ResponseMode: ResponseModeFragment, RedirectUri: "https://rp.org/cb"}, nil},
		{"The presentation definition should be kept.", "openid://?response_type=vp_token&redirect_uri=https://rp.org/cb&presentation_definition=%7B%22id%22%3A%22pd%22%7D",
			RequestParams{ResponseType: ResponseTypeVpToken, RedirectUri: "https://rp.org/cb", PresentationDefinition: `{"id":"pd"}`}, nil},
		{"A request without redirect_uri should be rejected.", "openid://?response_type=id_token&client_id=c", RequestParams{}, ErrorInvalidRequest},
		{"A relative redirect_uri should be rejected.", "openid://?response_type=id_token&redirect_uri=%2Fcallback", RequestParams{}, ErrorInvalidRequest},
		{"A redirect_uri without host should be rejected.", "openid://?response_type=id_token&redirect_uri=mailto%3Arp%40example.org", RequestParams{}, ErrorInvalidRequest},
		{"A request without parameters should be rejected.", "openid://", RequestParams{}, ErrorInvalidRequest},
		{"An unsupported response_type should be rejected.", "openid://?response_type=code&redirect_uri=https://rp.org/cb", RequestParams{}, ErrorInvalidRequest},
		{"A request without response_type should be rejected.", "openid://?client_id=c&redirect_uri=https://rp.org/cb", RequestParams{}, ErrorInvalidRequest},
	}

	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			params, err := ParseRequest(tc.testRequest)
			if tc.expectedError != nil {
				if !errors.Is(err, tc.expectedError) {
					t.Errorf("%s - Expected error %v but was %v.", tc.testName, tc.expectedError, err)
				}
				return
			}
			assert.NoError(t, err, tc.testName)
			if params != tc.expectedParams {
				t.Errorf("%s - Expected %v but was %v.", tc.testName, tc.expectedParams, params)
			}
		})
	}
}

func TestGetPresentationDefinition(t *testing.T) {

	logging.Configure(true, "DEBUG", true, []string{})

	definition, err := RequestParams{PresentationDefinition: `{"id":"pd","input_descriptors":[]}`}.GetPresentationDefinition()
	assert.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"id": "pd", "input_descriptors": []interface{}{}}, definition)

	definition, err = RequestParams{}.GetPresentationDefinition()
	assert.NoError(t, err)
	assert.Nil(t, definition)

	_, err = RequestParams{PresentationDefinition: `{"id":`}.GetPresentationDefinition()
	assert.ErrorIs(t, err, ErrorInvalidRequest)
}
