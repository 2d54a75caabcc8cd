package token

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	claimIssuer    = "iss"
	claimSubject   = "sub"
	claimAudience  = "aud"
	claimIssuedAt  = "iat"
	claimExpiresAt = "exp"
	claimNotBefore = "nbf"
	claimJwtId     = "jti"
	claimNonce     = "nonce"
	claimVC        = "vc"
	claimVP        = "vp"
)

var registeredClaims = []string{claimIssuer, claimSubject, claimAudience, claimIssuedAt, claimExpiresAt,
	claimNotBefore, claimJwtId, claimNonce, claimVC, claimVP}

// Claims is the payload of the tokens. Time values are in seconds, 0 marks a claim as absent. Everything not covered
// by a field is kept in Extensions.
// The json representation is canonical: keys are sorted and a single audience is written as a plain string.
type Claims struct {
	Issuer     string
	Subject    string
	Audience   []string
	IssuedAt   int64
	ExpiresAt  int64
	NotBefore  int64
	JwtId      string
	Nonce      string
	VC         map[string]interface{}
	VP         map[string]interface{}
	Extensions map[string]interface{}
}

// AsMap returns the flat claim set, as it is serialized.
func (c Claims) AsMap() map[string]interface{} {
	claimMap := map[string]interface{}{}
	for k, v := range c.Extensions {
		claimMap[k] = v
	}
	setString(claimMap, claimIssuer, c.Issuer)
	setString(claimMap, claimSubject, c.Subject)
	setString(claimMap, claimJwtId, c.JwtId)
	setString(claimMap, claimNonce, c.Nonce)
	setTime(claimMap, claimIssuedAt, c.IssuedAt)
	setTime(claimMap, claimExpiresAt, c.ExpiresAt)
	setTime(claimMap, claimNotBefore, c.NotBefore)
	switch len(c.Audience) {
	case 0:
	case 1:
		claimMap[claimAudience] = c.Audience[0]
	default:
		claimMap[claimAudience] = c.Audience
	}
	if c.VC != nil {
		claimMap[claimVC] = c.VC
	}
	if c.VP != nil {
		claimMap[claimVP] = c.VP
	}
	return claimMap
}

// encoding/json writes map keys in sorted order
func (c Claims) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.AsMap())
}

func (c *Claims) UnmarshalJSON(data []byte) error {
	var known struct {
		Issuer    string                 `json:"iss"`
		Subject   string                 `json:"sub"`
		Audience  jwt.ClaimStrings       `json:"aud"`
		IssuedAt  *jwt.NumericDate       `json:"iat"`
		ExpiresAt *jwt.NumericDate       `json:"exp"`
		NotBefore *jwt.NumericDate       `json:"nbf"`
		JwtId     string                 `json:"jti"`
		Nonce     string                 `json:"nonce"`
		VC        map[string]interface{} `json:"vc"`
		VP        map[string]interface{} `json:"vp"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]interface{}
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, registered := range registeredClaims {
		delete(all, registered)
	}

	*c = Claims{
		Issuer:    known.Issuer,
		Subject:   known.Subject,
		Audience:  known.Audience,
		IssuedAt:  seconds(known.IssuedAt),
		ExpiresAt: seconds(known.ExpiresAt),
		NotBefore: seconds(known.NotBefore),
		JwtId:     known.JwtId,
		Nonce:     known.Nonce,
		VC:        known.VC,
		VP:        known.VP,
	}
	if len(all) > 0 {
		c.Extensions = all
	}
	return nil
}

// jwt.Claims

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return numericDate(c.ExpiresAt), nil
}

func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return numericDate(c.IssuedAt), nil
}

func (c Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return numericDate(c.NotBefore), nil
}

func (c Claims) GetIssuer() (string, error) {
	return c.Issuer, nil
}

func (c Claims) GetSubject() (string, error) {
	return c.Subject, nil
}

func (c Claims) GetAudience() (jwt.ClaimStrings, error) {
	return c.Audience, nil
}

func setString(claimMap map[string]interface{}, key string, value string) {
	if value != "" {
		claimMap[key] = value
	}
}

func setTime(claimMap map[string]interface{}, key string, value int64) {
	if value != 0 {
		claimMap[key] = value
	}
}

func numericDate(value int64) *jwt.NumericDate {
	if value == 0 {
		return nil
	}
	return jwt.NewNumericDate(time.Unix(value, 0))
}

func seconds(date *jwt.NumericDate) int64 {
	if date == nil {
		return 0
	}
	return date.Unix()
}
