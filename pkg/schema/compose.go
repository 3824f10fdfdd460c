package schema

import (
	"context"
	"fmt"
	"sort"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LocalSourceID is the sentinel source identifier of the local schema.
const LocalSourceID = "local"

// LocalSortOrder is the conflict-resolution priority of the local schema. A
// remote source carrying a lower order would win local conflicts; configured
// remotes conventionally start at 10.
const LocalSortOrder = 0

// RemoteSource is one configured remote schema: the action that hosts it and
// its sort order, used purely as conflict-resolution priority.
type RemoteSource struct {
	Action string `json:"action"`
	Order  int    `json:"order"`
}

// CachedSchemaEntry is the persisted form of one remote source schema. A
// full ordered entry set is sufficient to reconstruct executable remote
// schemas without a fresh introspection call.
type CachedSchemaEntry struct {
	SDL    string `json:"schema"`
	Action string `json:"action"`
	Order  int    `json:"order"`
}

// SourceInfo tags one source that contributed to a composition.
type SourceInfo struct {
	ID        string
	SortOrder int
}

// ComposedSchema is the single executable schema produced by one
// composition, together with the ordered sources that formed it.
type ComposedSchema struct {
	Schema  graphql.Schema
	Sources []SourceInfo
}

// FetcherFactory constructs the resolver fetcher for a remote action. Fresh
// fetchers are built both for introspected sources and for sources
// reconstructed from the cache.
type FetcherFactory func(action string) Fetcher

// ComposerOptions configure a Composer.
type ComposerOptions struct {
	Logger *zap.Logger
	// LocalRootResolver resolves the local schema's root fields, typically
	// an indirection through the per-request root bindings.
	LocalRootResolver FieldResolverFactory
	// LocalTypeResolvers binds resolvers to the local schema's named types.
	LocalTypeResolvers map[string]map[string]graphql.FieldResolveFn
	// FetcherFactory is required when remote sources are configured.
	FetcherFactory FetcherFactory
}

// Composer merges the local schema with configured remote sources into one
// executable schema. Composition is idempotent: the same ordered source set
// always yields the same type and field resolution.
type Composer struct {
	logger        *zap.Logger
	localSDL      string
	localRoot     FieldResolverFactory
	typeResolvers map[string]map[string]graphql.FieldResolveFn
	factory       FetcherFactory
}

func NewComposer(localSDL string, opts ComposerOptions) *Composer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{
		logger:        logger,
		localSDL:      localSDL,
		localRoot:     opts.LocalRootResolver,
		typeResolvers: opts.LocalTypeResolvers,
		factory:       opts.FetcherFactory,
	}
}

type remoteSchema struct {
	id      string
	order   int
	sdl     string
	fetcher Fetcher
}

// Compose introspects every configured remote source concurrently and merges
// the results with the local schema. Introspection is fail-fast: one failing
// source fails the whole composition, reporting that source; nothing is
// retained or cached on failure.
//
// The returned entries are the freshly introspected remote schemas in
// ascending sort order, ready to be persisted as one complete cache set.
func (c *Composer) Compose(ctx context.Context, remotes map[string]RemoteSource) (*ComposedSchema, []CachedSchemaEntry, error) {
	ids := make([]string, 0, len(remotes))
	for id := range remotes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	schemas := make([]remoteSchema, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		src := remotes[id]
		g.Go(func() error {
			f := c.factory(src.Action)
			c.logger.Debug("introspecting remote source",
				zap.String("source", id),
				zap.String("action", src.Action),
			)
			introspected, err := Introspect(gctx, f)
			if err != nil {
				return fmt.Errorf("remote source %q: %w", id, err)
			}
			schemas[i] = remoteSchema{
				id:      id,
				order:   src.Order,
				sdl:     RenderSDL(introspected),
				fetcher: f,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	composed, err := c.merge(schemas)
	if err != nil {
		return nil, nil, err
	}

	entries := make([]CachedSchemaEntry, 0, len(schemas))
	for _, s := range composed.Sources {
		if s.ID == LocalSourceID {
			continue
		}
		for _, r := range schemas {
			if r.id == s.ID {
				entries = append(entries, CachedSchemaEntry{
					SDL:    r.sdl,
					Action: remotes[r.id].Action,
					Order:  r.order,
				})
			}
		}
	}
	return composed, entries, nil
}

// ComposeFromCache reconstructs executable remote schemas from a persisted
// entry set, skipping introspection entirely, and merges them with the local
// schema.
func (c *Composer) ComposeFromCache(_ context.Context, entries []CachedSchemaEntry) (*ComposedSchema, error) {
	schemas := make([]remoteSchema, len(entries))
	for i, e := range entries {
		schemas[i] = remoteSchema{
			id:      e.Action,
			order:   e.Order,
			sdl:     e.SDL,
			fetcher: c.factory(e.Action),
		}
	}
	return c.merge(schemas)
}

// ComposeLocal merges the local schema alone, used when no remote sources
// are configured.
func (c *Composer) ComposeLocal(context.Context) (*ComposedSchema, error) {
	return c.merge(nil)
}

// merge builds every source, local first, in ascending sort order against
// one shared type registry. The first registration of a type or root field
// wins, so a conflict always resolves to the source with the numerically
// lowest sort order, independent of introspection completion order.
func (c *Composer) merge(remotes []remoteSchema) (*ComposedSchema, error) {
	sorted := make([]remoteSchema, len(remotes))
	copy(sorted, remotes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].order != sorted[j].order {
			return sorted[i].order < sorted[j].order
		}
		return sorted[i].id < sorted[j].id
	})

	reg := NewRegistry()
	queryFields := graphql.Fields{}
	mutationFields := graphql.Fields{}
	var sources []SourceInfo

	mergeSource := func(id string, order int, fields *SourceFields) {
		for name, field := range fields.Query {
			if _, exists := queryFields[name]; !exists {
				queryFields[name] = field
			}
		}
		for name, field := range fields.Mutation {
			if _, exists := mutationFields[name]; !exists {
				mutationFields[name] = field
			}
		}
		sources = append(sources, SourceInfo{ID: id, SortOrder: order})
	}

	// Insert the local schema at its sort order; on a tie it outranks
	// remotes.
	localMerged := false
	mergeLocal := func() error {
		localFields, err := Build(c.localSDL, BuildOptions{
			Registry:      reg,
			RootResolver:  c.localRoot,
			TypeResolvers: c.typeResolvers,
		})
		if err != nil {
			return fmt.Errorf("local schema: %w", err)
		}
		mergeSource(LocalSourceID, LocalSortOrder, localFields)
		localMerged = true
		return nil
	}

	for _, r := range sorted {
		if !localMerged && LocalSortOrder <= r.order {
			if err := mergeLocal(); err != nil {
				return nil, err
			}
		}
		remoteFields, err := Build(r.sdl, BuildOptions{
			Registry:     reg,
			RootResolver: DelegatingResolver(r.fetcher),
		})
		if err != nil {
			return nil, fmt.Errorf("remote source %q: %w", r.id, err)
		}
		mergeSource(r.id, r.order, remoteFields)
	}
	if !localMerged {
		if err := mergeLocal(); err != nil {
			return nil, err
		}
	}

	if len(queryFields) == 0 {
		return nil, fmt.Errorf("composition produced no query fields")
	}

	cfg := graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: queryFields,
		}),
	}
	if len(mutationFields) > 0 {
		cfg.Mutation = graphql.NewObject(graphql.ObjectConfig{
			Name:   "Mutation",
			Fields: mutationFields,
		})
	}

	merged, err := graphql.NewSchema(cfg)
	if err != nil {
		return nil, fmt.Errorf("merge schemas: %w", err)
	}

	c.logger.Debug("composed schema",
		zap.Int("sources", len(sources)),
		zap.Int("query_fields", len(queryFields)),
	)

	return &ComposedSchema{Schema: merged, Sources: sources}, nil
}
