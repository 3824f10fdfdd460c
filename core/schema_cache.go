package core

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jihuang-adobe/CIF-excelsheet/internal/metrics"
	"github.com/jihuang-adobe/CIF-excelsheet/pkg/cache"
	"github.com/jihuang-adobe/CIF-excelsheet/pkg/schema"
)

// schemaCacheKey is the fixed external cache key holding the ordered remote
// schema entry set.
const schemaCacheKey = "schemas"

// SchemaCache owns the composed schema's lifecycle: process memory first,
// then the external entry-set cache, then fresh composition. Concurrent
// first-use requests share one composition through singleflight; composition
// is idempotent, so a racing overwrite of the in-memory reference is
// harmless.
type SchemaCache struct {
	logger   *zap.Logger
	composer *schema.Composer
	store    cache.Store
	metrics  *metrics.Metrics

	current atomic.Pointer[schema.ComposedSchema]
	group   singleflight.Group
}

// SchemaCacheOptions configure a SchemaCache. Store may be nil to disable
// external persistence entirely.
type SchemaCacheOptions struct {
	Logger  *zap.Logger
	Store   cache.Store
	Metrics *metrics.Metrics
}

func NewSchemaCache(composer *schema.Composer, opts SchemaCacheOptions) *SchemaCache {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaCache{
		logger:   logger,
		composer: composer,
		store:    opts.Store,
		metrics:  opts.Metrics,
	}
}

// GetOrCompose returns the composed schema, reusing the in-memory instance
// when present, reconstructing from the external cache when a full entry set
// exists, and composing freshly otherwise. A positive ttl enables the
// external cache for both the read and the write of this call.
func (c *SchemaCache) GetOrCompose(ctx context.Context, remotes map[string]schema.RemoteSource, ttl time.Duration) (*schema.ComposedSchema, error) {
	if composed := c.current.Load(); composed != nil {
		return composed, nil
	}

	v, err, _ := c.group.Do(schemaCacheKey, func() (interface{}, error) {
		if composed := c.current.Load(); composed != nil {
			return composed, nil
		}

		useExternal := c.store != nil && ttl > 0 && len(remotes) > 0

		if useExternal {
			if composed := c.composeFromExternal(ctx); composed != nil {
				c.current.Store(composed)
				return composed, nil
			}
		}

		composed, entries, err := c.compose(ctx, remotes)
		if err != nil {
			if c.metrics != nil {
				c.metrics.CompositionFailures.Inc()
			}
			return nil, err
		}
		if c.metrics != nil {
			c.metrics.Compositions.Inc()
		}

		if useExternal && len(entries) > 0 {
			c.writeExternal(ctx, entries, ttl)
		}

		c.current.Store(composed)
		return composed, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*schema.ComposedSchema), nil
}

// Invalidate drops the in-memory composed schema; the next request
// recomposes. The external entry set expires by TTL on its own.
func (c *SchemaCache) Invalidate() {
	c.current.Store(nil)
}

func (c *SchemaCache) compose(ctx context.Context, remotes map[string]schema.RemoteSource) (*schema.ComposedSchema, []schema.CachedSchemaEntry, error) {
	if len(remotes) == 0 {
		composed, err := c.composer.ComposeLocal(ctx)
		return composed, nil, err
	}
	return c.composer.Compose(ctx, remotes)
}

// composeFromExternal reconstructs the composed schema from a persisted
// entry set, returning nil on any miss or decode/build failure; the caller
// then falls back to fresh composition.
func (c *SchemaCache) composeFromExternal(ctx context.Context) *schema.ComposedSchema {
	raw, ok, err := c.store.Get(ctx, schemaCacheKey)
	if err != nil {
		c.logger.Warn("schema cache read failed", zap.Error(err))
	}
	if err != nil || !ok {
		if c.metrics != nil {
			c.metrics.SchemaCacheMisses.Inc()
		}
		return nil
	}

	var entries []schema.CachedSchemaEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		c.logger.Warn("schema cache entry set is not decodable", zap.Error(err))
		if c.metrics != nil {
			c.metrics.SchemaCacheMisses.Inc()
		}
		return nil
	}

	composed, err := c.composer.ComposeFromCache(ctx, entries)
	if err != nil {
		c.logger.Warn("schema reconstruction from cache failed", zap.Error(err))
		if c.metrics != nil {
			c.metrics.SchemaCacheMisses.Inc()
		}
		return nil
	}

	if c.metrics != nil {
		c.metrics.SchemaCacheHits.Inc()
	}
	c.logger.Debug("composed schema from cache", zap.Int("entries", len(entries)))
	return composed
}

// writeExternal persists the complete ordered entry set in one write.
func (c *SchemaCache) writeExternal(ctx context.Context, entries []schema.CachedSchemaEntry, ttl time.Duration) {
	raw, err := json.Marshal(entries)
	if err != nil {
		c.logger.Warn("schema cache entry set is not encodable", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, schemaCacheKey, raw, ttl); err != nil {
		c.logger.Warn("schema cache write failed", zap.Error(err))
		return
	}
	c.logger.Debug("persisted schema cache",
		zap.Int("entries", len(entries)),
		zap.Duration("ttl", ttl),
	)
}
