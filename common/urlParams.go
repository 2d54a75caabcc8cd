package common

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/fiware/VCHolder/logging"
)

const maxDecodingRounds = 100

// parameter that is handed over without decoding
const rawParameter = "state"

/**
* Read the query parameters of the given (deep-)link into a flat map. Every &-separated segment is split at the first
* "=", all values but the state are percent-decoded. Segments without a value are mapped to the empty string.
**/
func ReadUrlParams(data string) map[string]string {
	params := map[string]string{}
	queryStart := strings.Index(data, "?")
	if queryStart < 0 {
		return params
	}
	query := data[queryStart+1:]
	if fragmentStart := strings.Index(query, "#"); fragmentStart >= 0 {
		query = query[:fragmentStart]
	}

	for _, segment := range strings.Split(query, "&") {
		if segment == "" {
			continue
		}
		key, value, _ := strings.Cut(segment, "=")
		if key == rawParameter {
			params[key] = value
			continue
		}
		decoded, err := url.PathUnescape(value)
		if err != nil {
			logging.Log().Debugf("Parameter %s is not properly encoded, will use it raw. Err: %v", key, err)
			decoded = value
		}
		params[key] = decoded
	}
	return params
}

/**
* Parse a json object that was put into a url parameter. Multiple rounds of percent-encoding are unwrapped before
* parsing.
**/
func ParseJsonFromUrlParam(param string, target interface{}) error {
	for counter := 0; strings.HasPrefix(param, "%") && counter < maxDecodingRounds; counter++ {
		decoded, err := url.PathUnescape(param)
		if err != nil {
			return err
		}
		param = decoded
	}
	return json.Unmarshal([]byte(param), target)
}
