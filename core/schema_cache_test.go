package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jihuang-adobe/CIF-excelsheet/pkg/cache"
	"github.com/jihuang-adobe/CIF-excelsheet/pkg/fetcher"
	"github.com/jihuang-adobe/CIF-excelsheet/pkg/schema"
)

// fakeRemote answers introspection and delegated execution from an
// in-memory schema and counts the introspection calls it serves.
type fakeRemote struct {
	mu             sync.Mutex
	schema         graphql.Schema
	introspections int
	lastToken      string
	fail           bool
}

func newFakeRemote(t *testing.T) *fakeRemote {
	t.Helper()
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"remoteHello": &graphql.Field{
				Type: graphql.String,
				Resolve: func(graphql.ResolveParams) (interface{}, error) {
					return "hello from remote", nil
				},
			},
		},
	})
	s, err := graphql.NewSchema(graphql.SchemaConfig{Query: query})
	require.NoError(t, err)
	return &fakeRemote{schema: s}
}

func (f *fakeRemote) Fetch(ctx context.Context, op fetcher.Operation) (*fetcher.Response, error) {
	f.mu.Lock()
	if f.fail {
		f.mu.Unlock()
		return nil, errors.New("remote action unavailable")
	}
	if strings.Contains(op.Query, "__schema") {
		f.introspections++
	}
	if token, ok := fetcher.TokenFromContext(ctx); ok {
		f.lastToken = token
	}
	f.mu.Unlock()

	result := graphql.Do(graphql.Params{
		Schema:         f.schema,
		RequestString:  op.Query,
		VariableValues: op.Variables,
		OperationName:  op.OperationName,
		Context:        ctx,
	})
	raw, err := json.Marshal(result.Data)
	if err != nil {
		return nil, err
	}
	resp := &fetcher.Response{Data: raw}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, fetcher.Error{Message: e.Message})
	}
	return resp, nil
}

func (f *fakeRemote) introspectionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.introspections
}

func (f *fakeRemote) token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastToken
}

const coreLocalSDL = `
type Query {
  localHello: String
}
`

func newTestComposer(remote *fakeRemote) *schema.Composer {
	return schema.NewComposer(coreLocalSDL, schema.ComposerOptions{
		LocalRootResolver: func(fieldName string) graphql.FieldResolveFn {
			return func(graphql.ResolveParams) (interface{}, error) {
				return "hello from local", nil
			}
		},
		FetcherFactory: func(action string) schema.Fetcher {
			return remote
		},
	})
}

func testRemotes() map[string]schema.RemoteSource {
	return map[string]schema.RemoteSource{
		"backend": {Action: "backend-action", Order: 10},
	}
}

func TestSchemaCache_ComposesOnceAcrossRequests(t *testing.T) {
	remote := newFakeRemote(t)
	sc := NewSchemaCache(newTestComposer(remote), SchemaCacheOptions{})
	ctx := context.Background()

	first, err := sc.GetOrCompose(ctx, testRemotes(), 0)
	require.NoError(t, err)
	second, err := sc.GetOrCompose(ctx, testRemotes(), 0)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, remote.introspectionCount())
}

func TestSchemaCache_ConcurrentFirstUseSharesComposition(t *testing.T) {
	remote := newFakeRemote(t)
	sc := NewSchemaCache(newTestComposer(remote), SchemaCacheOptions{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sc.GetOrCompose(ctx, testRemotes(), 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, remote.introspectionCount())
}

func TestSchemaCache_ExternalCacheSkipsIntrospection(t *testing.T) {
	remote := newFakeRemote(t)
	store, err := cache.NewMemory()
	require.NoError(t, err)
	sc := NewSchemaCache(newTestComposer(remote), SchemaCacheOptions{Store: store})
	ctx := context.Background()

	_, err = sc.GetOrCompose(ctx, testRemotes(), time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, remote.introspectionCount())

	// The persisted entry set must be complete and decodable.
	raw, ok, err := store.Get(ctx, schemaCacheKey)
	require.NoError(t, err)
	require.True(t, ok)
	var entries []schema.CachedSchemaEntry
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "backend-action", entries[0].Action)
	assert.Contains(t, entries[0].SDL, "remoteHello")

	// A cold process reconstructs from the entry set without introspecting.
	sc2 := NewSchemaCache(newTestComposer(remote), SchemaCacheOptions{Store: store})
	composed, err := sc2.GetOrCompose(ctx, testRemotes(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, remote.introspectionCount())

	result := graphql.Do(graphql.Params{
		Schema:        composed.Schema,
		RequestString: `{ localHello remoteHello }`,
		Context:       ctx,
	})
	require.Empty(t, result.Errors)
	data := result.Data.(map[string]interface{})
	assert.Equal(t, "hello from local", data["localHello"])
	assert.Equal(t, "hello from remote", data["remoteHello"])
}

func TestSchemaCache_InvalidateForcesRecomposition(t *testing.T) {
	remote := newFakeRemote(t)
	sc := NewSchemaCache(newTestComposer(remote), SchemaCacheOptions{})
	ctx := context.Background()

	_, err := sc.GetOrCompose(ctx, testRemotes(), 0)
	require.NoError(t, err)
	sc.Invalidate()
	_, err = sc.GetOrCompose(ctx, testRemotes(), 0)
	require.NoError(t, err)

	assert.Equal(t, 2, remote.introspectionCount())
}

func TestSchemaCache_CompositionFailureIsNotRetained(t *testing.T) {
	remote := newFakeRemote(t)
	remote.fail = true
	sc := NewSchemaCache(newTestComposer(remote), SchemaCacheOptions{})
	ctx := context.Background()

	_, err := sc.GetOrCompose(ctx, testRemotes(), 0)
	require.Error(t, err)

	// Recovery on the next attempt.
	remote.mu.Lock()
	remote.fail = false
	remote.mu.Unlock()
	composed, err := sc.GetOrCompose(ctx, testRemotes(), 0)
	require.NoError(t, err)
	assert.NotNil(t, composed)
}
