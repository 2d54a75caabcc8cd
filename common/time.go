package common

import "time"

// validity used when no explicit number of days is requested, effectively non-expiring
const DefaultValidDays = 100000

const secondsPerDay = 24 * 60 * 60

// time related claims of a jwt, all in unix seconds
type JwtTime struct {
	Iat int64 `json:"iat"`
	Exp int64 `json:"exp"`
	Nbf int64 `json:"nbf"`
}

/**
* Derive iat, nbf and exp for a token starting at the given instant. A validDays value <= 0 falls back to the
* DefaultValidDays.
**/
func GetJwtTime(validDays int, start time.Time) JwtTime {
	if validDays <= 0 {
		validDays = DefaultValidDays
	}
	iat := start.Unix()
	return JwtTime{Iat: iat, Nbf: iat, Exp: iat + int64(validDays)*secondsPerDay}
}
