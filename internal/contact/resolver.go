package contact

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/shortsale-cli/internal/locality"
	"github.com/sells-group/shortsale-cli/internal/model"
)

// Cache is the durable (agent, locality) to contact mapping.
type Cache interface {
	GetContact(ctx context.Context, agent, locality string) (*model.Contact, error)
	PutContact(ctx context.Context, agent, locality string, c model.Contact) error
}

// Lookup discovers contact details for an agent through external providers.
type Lookup interface {
	Lookup(ctx context.Context, agent, locality, broker string) (model.Contact, error)
}

// Resolver answers contact queries cache-first, falling back to the
// lookup chain on a miss.
type Resolver struct {
	cache  Cache
	lookup Lookup
}

// NewResolver creates a resolver over the given cache and lookup chain.
func NewResolver(cache Cache, lookup Lookup) *Resolver {
	return &Resolver{cache: cache, lookup: lookup}
}

// CacheKey normalizes an agent name for use as a cache key: Unicode
// NFC, case-folded, inner whitespace collapsed.
func CacheKey(agent string) string {
	folded := cases.Fold().String(norm.NFC.String(agent))
	return strings.Join(strings.Fields(folded), " ")
}

// Resolve returns the best-known contact for the agent on the given
// listing. A cache hit never reaches the lookup chain. Lookup failures
// are absorbed: the listing is simply treated as unresolved this batch,
// and nothing negative is cached so a later batch retries.
func (r *Resolver) Resolve(ctx context.Context, agent, address, broker string) model.Contact {
	if strings.TrimSpace(agent) == "" {
		return model.Contact{}
	}

	loc := locality.FromAddress(address)
	key := CacheKey(agent)

	cached, err := r.cache.GetContact(ctx, key, loc)
	if err != nil {
		zap.L().Warn("contact cache read failed",
			zap.String("agent", agent),
			zap.String("locality", loc),
			zap.Error(err))
	} else if cached != nil {
		return *cached
	}

	found, err := r.lookup.Lookup(ctx, agent, loc, broker)
	if err != nil {
		zap.L().Warn("contact lookup failed",
			zap.String("agent", agent),
			zap.String("locality", loc),
			zap.Error(err))
		return model.Contact{}
	}
	if found.Empty() {
		return model.Contact{}
	}

	if err := r.cache.PutContact(ctx, key, loc, found); err != nil {
		zap.L().Warn("contact cache write failed",
			zap.String("agent", agent),
			zap.String("locality", loc),
			zap.Error(err))
	}

	return found
}
