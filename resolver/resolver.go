// Package resolver resolves the verification keys of DIDs.
package resolver

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"time"

	"github.com/fiware/VCHolder/common"
	configModel "github.com/fiware/VCHolder/config"
	"github.com/fiware/VCHolder/did"
	"github.com/fiware/VCHolder/logging"
)

var ErrorUnresolvableDid = errors.New("unresolvable_did")
var ErrorNoVerificationKey = errors.New("no_verification_key")
var ErrorUnsupportedResolverMethod = errors.New("unsupported_resolver_method")

const (
	MethodKey  = "key"
	MethodEthr = "ethr"
	MethodJwk  = "jwk"
	MethodWeb  = "web"
)

// Resolver returns the public key referenced by kid inside the document of did.
type Resolver interface {
	ResolveKey(ctx context.Context, did string, kid string) (crypto.PublicKey, error)
}

// MultiResolver dispatches to the resolver registered for the method of the did.
type MultiResolver struct {
	resolvers map[string]Resolver
	// optional, nil if caching is disabled
	cache       common.Cache
	cacheExpiry time.Duration
}

// NewMultiResolver creates a resolver for the configured methods, all known ones if none are configured. Unknown
// method names fail.
func NewMultiResolver(config configModel.Resolver) (*MultiResolver, error) {
	methods := config.Methods
	if len(methods) == 0 {
		methods = configModel.DefaultResolverMethods
	}
	resolvers := map[string]Resolver{}
	for _, method := range methods {
		switch method {
		case MethodKey:
			resolvers[method] = KeyResolver{}
		case MethodEthr:
			resolvers[method] = EthrResolver{}
		case MethodJwk:
			resolvers[method] = JwkResolver{}
		case MethodWeb:
			resolvers[method] = NewWebResolver()
		default:
			logging.Log().Warnf("Resolution for did:%s is not supported.", method)
			return nil, fmt.Errorf("%w: %s", ErrorUnsupportedResolverMethod, method)
		}
	}
	multiResolver := &MultiResolver{resolvers: resolvers}
	if config.CacheExpiry > 0 {
		multiResolver.cacheExpiry = time.Duration(config.CacheExpiry) * time.Second
		multiResolver.cache = common.NewCache(multiResolver.cacheExpiry)
	}
	return multiResolver, nil
}

// Register adds or replaces the resolver of a method.
func (mr *MultiResolver) Register(method string, resolver Resolver) {
	mr.resolvers[method] = resolver
}

func (mr *MultiResolver) ResolveKey(ctx context.Context, didString string, kid string) (crypto.PublicKey, error) {
	method, ok := did.ExtractDidMethod(didString)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a did", ErrorUnresolvableDid, didString)
	}
	resolver, ok := mr.resolvers[method]
	if !ok {
		logging.Log().Infof("No resolver for did:%s configured.", method)
		return nil, fmt.Errorf("%w: %s", ErrorUnsupportedResolverMethod, method)
	}
	cacheKey := didString + "|" + kid
	if mr.cache != nil {
		if cached, hit := mr.cache.Get(cacheKey); hit {
			logging.Log().Debugf("Key for %s served from cache.", cacheKey)
			return cached.(crypto.PublicKey), nil
		}
	}
	key, err := resolver.ResolveKey(ctx, didString, kid)
	if err != nil {
		logging.Log().Infof("Was not able to resolve %s. Err: %v", didString, err)
		return nil, err
	}
	if mr.cache != nil {
		mr.cache.Set(cacheKey, key, mr.cacheExpiry)
	}
	return key, nil
}
