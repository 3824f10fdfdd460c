package core

import (
	"context"
	"net/http"
	"time"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/jihuang-adobe/CIF-excelsheet/internal/metrics"
	"github.com/jihuang-adobe/CIF-excelsheet/pkg/catalog"
	"github.com/jihuang-adobe/CIF-excelsheet/pkg/fetcher"
	"github.com/jihuang-adobe/CIF-excelsheet/pkg/schema"
)

// DispatcherOptions configure a Dispatcher.
type DispatcherOptions struct {
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	SheetClient *catalog.SheetClient

	// DataSource is the default sheet endpoint.
	DataSource string
	// DefaultStore partitions the sheet when the request names no store.
	DefaultStore string
	// DefaultCacheTTL enables external schema caching for requests that do
	// not carry their own TTL control.
	DefaultCacheTTL time.Duration
	// RemoteSchemas are the configured remote sources.
	RemoteSchemas map[string]schema.RemoteSource
}

// Dispatcher answers inbound GraphQL requests: fast path first, then schema
// resolution, request-scoped loader binding and execution.
type Dispatcher struct {
	logger      *zap.Logger
	metrics     *metrics.Metrics
	fastPath    *FastPath
	schemaCache *SchemaCache
	sheetClient *catalog.SheetClient

	dataSource      string
	defaultStore    string
	defaultCacheTTL time.Duration
	remotes         map[string]schema.RemoteSource
}

func NewDispatcher(schemaCache *SchemaCache, opts DispatcherOptions) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sheetClient := opts.SheetClient
	if sheetClient == nil {
		sheetClient = catalog.NewSheetClient(catalog.WithSheetLogger(logger))
	}
	return &Dispatcher{
		logger:          logger,
		metrics:         opts.Metrics,
		fastPath:        NewFastPath(),
		schemaCache:     schemaCache,
		sheetClient:     sheetClient,
		dataSource:      opts.DataSource,
		defaultStore:    opts.DefaultStore,
		defaultCacheTTL: opts.DefaultCacheTTL,
		remotes:         opts.RemoteSchemas,
	}
}

// Dispatch handles one request end to end. Execution-level field errors pass
// through in the result body; gateway-level failures produce an error
// envelope instead.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatch panicked", zap.Any("panic", r))
			resp = errorResponse(http.StatusInternalServerError, "server error")
		}
	}()

	if d.metrics != nil {
		d.metrics.Requests.Inc()
	}

	if body, ok := d.fastPath.Lookup(req.OperationName); ok {
		if d.metrics != nil {
			d.metrics.FastPathHits.Inc()
		}
		d.logger.Debug("fast path hit", zap.String("operation", req.OperationName))
		return Response{StatusCode: http.StatusOK, Body: body}
	}

	variables, err := req.ParsedVariables()
	if err != nil {
		return errorResponse(http.StatusBadRequest, err.Error())
	}

	remotes := d.remotes
	if req.RemoteSchemas != nil {
		remotes = req.RemoteSchemas
	}
	ttl := d.defaultCacheTTL
	if req.CacheTTL != nil {
		ttl = time.Duration(*req.CacheTTL) * time.Second
	}

	composed, err := d.schemaCache.GetOrCompose(ctx, remotes, ttl)
	if err != nil {
		d.logger.Error("schema composition failed", zap.Error(err))
		return errorResponse(http.StatusInternalServerError, "server error")
	}

	store := req.Store
	if store == "" {
		store = d.defaultStore
	}
	if req.Token != "" {
		ctx = fetcher.WithToken(ctx, req.Token)
	}

	loaders := catalog.NewLoaders(d.sheetClient, d.dataSource, store, d.logger)

	result := graphql.Do(graphql.Params{
		Schema:         composed.Schema,
		RequestString:  req.Query,
		RootObject:     catalog.RootBindings(loaders, req.OperationName),
		VariableValues: variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})

	d.logger.Info("request executed",
		zap.String("operation", req.OperationName),
		zap.String("store", store),
		zap.Int("errors", len(result.Errors)),
	)

	return Response{StatusCode: http.StatusOK, Body: result}
}
