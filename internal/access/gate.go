package access

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ActionSource returns the actions granted to a role.
type ActionSource interface {
	ActionsForRole(ctx context.Context, roleName string) ([]string, error)
}

// Gate checks whether a role holds a permission for an action. Role grants
// are cached per role name for ttl.
type Gate struct {
	source ActionSource
	cache  *expirable.LRU[string, map[string]struct{}]
}

// NewGate creates a Gate caching up to size roles.
func NewGate(source ActionSource, size int, ttl time.Duration) *Gate {
	if size <= 0 {
		size = 16
	}
	return &Gate{
		source: source,
		cache:  expirable.NewLRU[string, map[string]struct{}](size, nil, ttl),
	}
}

// Allowed reports whether roleName is granted action.
func (g *Gate) Allowed(ctx context.Context, roleName, action string) (bool, error) {
	actions, ok := g.cache.Get(roleName)
	if !ok {
		list, err := g.source.ActionsForRole(ctx, roleName)
		if err != nil {
			return false, err
		}
		actions = make(map[string]struct{}, len(list))
		for _, a := range list {
			actions[a] = struct{}{}
		}
		g.cache.Add(roleName, actions)
	}
	_, allowed := actions[action]
	return allowed, nil
}

// Invalidate drops all cached grants.
func (g *Gate) Invalidate() {
	g.cache.Purge()
}
