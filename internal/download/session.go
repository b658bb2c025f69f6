// file: internal/download/session.go
// version: 1.0.0
// guid: 7d466362-f980-49fb-99bb-06ece0587eeb

package download

import (
	"time"

	"github.com/jdfalk/media-acquirer/internal/cache"
)

// SessionCache holds short-lived session tokens or cookies per backend
// endpoint. Implementations must be safe for concurrent use.
type SessionCache interface {
	Get(key string) (string, bool)
	Set(key, token string)
	Invalidate(key string)
	// InvalidateIf drops the entry only while it still holds token.
	InvalidateIf(key, token string) bool
}

// SessionKey identifies one backend endpoint.
func SessionKey(kind Kind, hostPort string) string {
	return string(kind) + ":" + hostPort
}

// TokenCache is the SessionCache backed by the generic TTL cache.
type TokenCache struct {
	c *cache.Cache[string]
}

// NewSessionCache returns a cache whose tokens expire after ttl. A zero ttl
// keeps tokens until the backend rejects them.
func NewSessionCache(ttl time.Duration) *TokenCache {
	return &TokenCache{c: cache.New[string](ttl)}
}

func (t *TokenCache) Get(key string) (string, bool) { return t.c.Get(key) }
func (t *TokenCache) Set(key, token string)         { t.c.Set(key, token) }
func (t *TokenCache) Invalidate(key string)         { t.c.Invalidate(key) }

func (t *TokenCache) InvalidateIf(key, token string) bool {
	return t.c.InvalidateIf(key, func(v string) bool { return v == token })
}
