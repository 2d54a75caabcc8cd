package common

import (
	"time"

	"github.com/patrickmn/go-cache"
)

type Cache interface {
	Set(k string, x interface{}, d time.Duration)
	Get(k string) (interface{}, bool)
	Delete(k string)
}

// NewCache creates an in-memory cache with the given default expiry. Expired entries are purged every two expiry
// periods.
func NewCache(expiry time.Duration) Cache {
	return cache.New(expiry, 2*expiry)
}
