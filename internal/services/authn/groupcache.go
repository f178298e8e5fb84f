package authn

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const groupCacheSize = 4096

// GroupLister resolves the stored group memberships of an EPerson.
type GroupLister interface {
	GroupNamesForEPerson(ctx context.Context, epersonID string) ([]string, error)
}

// GroupCache memoises group memberships for a short TTL so that every
// authenticated request does not hit the membership table. Cached slices are
// never handed out directly.
type GroupCache struct {
	groups GroupLister
	cache  *expirable.LRU[string, []string]
}

// NewGroupCache creates a cache. A non-positive ttl disables caching.
func NewGroupCache(groups GroupLister, ttl time.Duration) *GroupCache {
	c := &GroupCache{groups: groups}
	if ttl > 0 {
		c.cache = expirable.NewLRU[string, []string](groupCacheSize, nil, ttl)
	}
	return c
}

// Groups returns the group names of the EPerson.
func (c *GroupCache) Groups(ctx context.Context, epersonID string) ([]string, error) {
	if c.cache != nil {
		if names, ok := c.cache.Get(epersonID); ok {
			return slices.Clone(names), nil
		}
	}
	names, err := c.groups.GroupNamesForEPerson(ctx, epersonID)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Add(epersonID, slices.Clone(names))
	}
	return names, nil
}

// Invalidate drops the cached memberships of the EPerson.
func (c *GroupCache) Invalidate(epersonID string) {
	if c.cache != nil {
		c.cache.Remove(epersonID)
	}
}
