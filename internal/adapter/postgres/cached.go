package postgres

import (
	"context"
	"errors"

	"github.com/couchcryptid/threat-zone-service/internal/cache"
	"github.com/couchcryptid/threat-zone-service/internal/domain"
	"github.com/couchcryptid/threat-zone-service/internal/observability"
)

// CachedCatalog wraps a catalog with an in-memory LRU cache. Chemical
// properties change rarely, so entries never expire.
type CachedCatalog struct {
	inner   domain.ChemicalCatalog
	cache   *cache.LRU[string, domain.Chemical]
	metrics *observability.Metrics
}

// NewCachedCatalog creates a cache decorator around a catalog.
func NewCachedCatalog(inner domain.ChemicalCatalog, maxEntries int, metrics *observability.Metrics) *CachedCatalog {
	return &CachedCatalog{
		inner:   inner,
		cache:   cache.NewLRU[string, domain.Chemical](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedCatalog) LookupChemical(ctx context.Context, name string) (domain.Chemical, error) {
	key := normalizeName(name)
	if chem, ok := c.cache.Get(key); ok {
		c.metrics.CatalogLookups.WithLabelValues("hit").Inc()
		return chem, nil
	}

	chem, err := c.inner.LookupChemical(ctx, name)
	switch {
	case errors.Is(err, domain.ErrChemicalNotFound):
		c.metrics.CatalogLookups.WithLabelValues("not_found").Inc()
		return chem, err
	case err != nil:
		c.metrics.CatalogLookups.WithLabelValues("error").Inc()
		return chem, err
	}

	c.metrics.CatalogLookups.WithLabelValues("miss").Inc()
	c.cache.Put(key, chem)
	return chem, nil
}
