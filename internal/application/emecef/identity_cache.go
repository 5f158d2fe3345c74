package emecef

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	domain "github.com/cavebenin/emecef-pos/internal/domain/emecef"
)

type identityEntry struct {
	value           *domain.VendorInfo
	lastRefreshedAt time.Time
}

// IdentityCache identité vendeur (nim, ifu) par point de vente, rafraîchie
// via /status après expiration du TTL.
type IdentityCache struct {
	mu      sync.RWMutex
	entries map[string]identityEntry
	group   singleflight.Group
	now     func() time.Time
}

func NewIdentityCache(clock func() time.Time) *IdentityCache {
	if clock == nil {
		clock = time.Now
	}
	return &IdentityCache{entries: make(map[string]identityEntry), now: clock}
}

// Get retourne l'identité en cache et sa date de rafraîchissement.
func (c *IdentityCache) Get(key string) (*domain.VendorInfo, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.value, e.lastRefreshedAt, ok
}

// Set enregistre une identité fraîche. info nil est ignoré.
func (c *IdentityCache) Set(key string, info *domain.VendorInfo) {
	if info == nil {
		return
	}
	c.mu.Lock()
	c.entries[key] = identityEntry{value: info, lastRefreshedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate oublie l'identité d'un point de vente.
func (c *IdentityCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll vide le cache (changement du point de vente actif).
func (c *IdentityCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]identityEntry)
	c.mu.Unlock()
}

// RefreshIfExpired retourne l'identité en cache si elle a moins de ttl,
// sinon appelle fetch. Les appels concurrents pour une même clé partagent
// un seul fetch. En cas d'échec, la valeur périmée éventuelle est retournée
// avec l'erreur.
func (c *IdentityCache) RefreshIfExpired(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (*domain.VendorInfo, error)) (*domain.VendorInfo, error) {
	stale, at, ok := c.Get(key)
	if ok && c.now().Sub(at) < ttl {
		return stale, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		info, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, info)
		return info, nil
	})
	if err != nil {
		return stale, err
	}
	info, _ := v.(*domain.VendorInfo)
	if info == nil {
		return stale, nil
	}
	return info, nil
}
