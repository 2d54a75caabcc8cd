// Package did contains helpers to work with decentralized identifiers of the methods the holder can sign for:
// did:key, did:ethr and did:jwk.
package did

import (
	"errors"
	"regexp"
	"strings"
)

var ErrorMalformedDid = errors.New("malformed_did")
var ErrorUnsupportedKeyType = errors.New("unsupported_key_type")

const didPrefix = "did:"

var methodPattern = regexp.MustCompile(`^did:([a-zA-Z0-9]+):`)

// ExtractDidMethod returns the method of a did in the form did:method:specificId.
func ExtractDidMethod(did string) (method string, ok bool) {
	match := methodPattern.FindStringSubmatch(did)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// IsDid reports whether the value is DID shaped.
func IsDid(value string) bool {
	return strings.HasPrefix(value, didPrefix)
}

// MethodSpecificId returns the third ':'-separated segment of the did, the part directly following the method.
// For did:ethr:<chain>:<address> that is the chain.
func MethodSpecificId(did string) string {
	parts := strings.Split(did, ":")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// SplitDidUrl splits a did url like a kid into the did and the fragment. The fragment is empty if none is present.
func SplitDidUrl(didUrl string) (did string, fragment string) {
	did, fragment, _ = strings.Cut(didUrl, "#")
	return did, fragment
}
