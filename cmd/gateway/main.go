package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/akrylysov/algnhsa"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/jihuang-adobe/CIF-excelsheet/config"
	"github.com/jihuang-adobe/CIF-excelsheet/core"
	"github.com/jihuang-adobe/CIF-excelsheet/internal/metrics"
	"github.com/jihuang-adobe/CIF-excelsheet/internal/server"
	"github.com/jihuang-adobe/CIF-excelsheet/pkg/cache"
	"github.com/jihuang-adobe/CIF-excelsheet/pkg/catalog"
	"github.com/jihuang-adobe/CIF-excelsheet/pkg/fetcher"
	"github.com/jihuang-adobe/CIF-excelsheet/pkg/logging"
	"github.com/jihuang-adobe/CIF-excelsheet/pkg/schema"

	redis "github.com/redis/go-redis/v9"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	logLevel, err := logging.ZapLogLevelFromString(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Could not parse log level: %v", err)
	}
	logger := logging.New(!cfg.JSONLog, logLevel)
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Println("Could not sync logger", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	var store cache.Store
	if cfg.SchemaCacheTTL > 0 {
		switch cfg.CacheBackend {
		case "redis":
			store = cache.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		default:
			memory, err := cache.NewMemory()
			if err != nil {
				logger.Fatal("Could not create schema cache", zap.Error(err))
			}
			store = memory
		}
	}

	localSDL, err := catalog.LocalSchema()
	if err != nil {
		logger.Fatal("Could not build local schema", zap.Error(err))
	}

	composer := schema.NewComposer(localSDL, schema.ComposerOptions{
		Logger:             logger,
		LocalRootResolver:  schema.RootValueResolver,
		LocalTypeResolvers: catalog.TypeResolvers(),
		FetcherFactory: func(action string) schema.Fetcher {
			return fetcher.NewActionFetcher(action, fetcher.WithLogger(logger))
		},
	})

	schemaCache := core.NewSchemaCache(composer, core.SchemaCacheOptions{
		Logger:  logger,
		Store:   store,
		Metrics: m,
	})

	dispatcher := core.NewDispatcher(schemaCache, core.DispatcherOptions{
		Logger:          logger,
		Metrics:         m,
		SheetClient:     catalog.NewSheetClient(catalog.WithSheetLogger(logger)),
		DataSource:      cfg.DataSource,
		DefaultStore:    cfg.DefaultStore,
		DefaultCacheTTL: time.Duration(cfg.SchemaCacheTTL) * time.Second,
		RemoteSchemas:   cfg.RemoteSchemas,
	})

	srv := server.New(dispatcher,
		server.WithLogger(logger),
		server.WithMetricsRegistry(registry),
	)

	// Outside lambda the gateway runs as a plain HTTP server.
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") == "" {
		logger.Info("listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("default_store", cfg.DefaultStore),
			zap.Int("remote_schemas", len(cfg.RemoteSchemas)),
		)
		if err := http.ListenAndServe(cfg.ListenAddr, srv.Handler()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Could not start server", zap.Error(err))
		}
		return
	}

	lambdaHandler := algnhsa.New(srv.Handler(), nil)
	lambda.StartWithOptions(lambdaHandler, lambda.WithContext(ctx))
}
