package main

import (
	"context"
	"net"
	"net/http"

	"github.com/asaskevich/EventBus"
	"github.com/dgraph-io/ristretto"
	"github.com/elastic/go-elasticsearch/v8"
	protoTrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	_ "google.golang.org/grpc/encoding/gzip"

	"github.com/langwatch/collector/internal/collector/router"
	collectorService "github.com/langwatch/collector/internal/collector/service"
	"github.com/langwatch/collector/internal/config"
	"github.com/langwatch/collector/internal/db/elasticsearch/bootstrapper"
	"github.com/langwatch/collector/internal/db/elasticsearch/client"
	"github.com/langwatch/collector/internal/enrichment/queue"
	enrichmentService "github.com/langwatch/collector/internal/enrichment/service"
	traceServer "github.com/langwatch/collector/internal/otel_server/trace/server"
	projectService "github.com/langwatch/collector/internal/project/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticsearchURL},
	})
	if err != nil {
		logger.Fatal("Failed to create elasticsearch client", zap.Error(err))
	}

	bs := bootstrapper.NewBootstrapper(es, logger)
	if err := bs.BootstrapElasticsearch(); err != nil {
		logger.Fatal("Failed to bootstrap elasticsearch", zap.Error(err))
	}

	ac := client.NewCollectorClientImpl(es, client.Wait)

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1e4,
		BufferItems: 64,
	})
	if err != nil {
		logger.Fatal("Failed to create project cache", zap.Error(err))
	}
	ps := projectService.NewProjectServiceImpl(ac, cache, cfg.ProjectCacheTTL, logger)

	var embeddings enrichmentService.EmbeddingService
	if cfg.OpenAIApiKey != "" {
		embeddings = enrichmentService.NewOpenAIEmbeddingService(cfg.OpenAIApiKey)
	} else {
		logger.Warn("OPENAI_API_KEY not set, search embeddings will not be computed")
	}
	enrichment := enrichmentService.NewEnrichmentService(
		ac,
		embeddings,
		enrichmentService.NewPIIScrubber(),
		cfg.EnrichmentTimeout,
		logger,
	)

	var dispatcher queue.EnrichmentDispatcher
	if cfg.RedisURL != "" {
		redisDispatcher, err := queue.NewRedisDispatcher(cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal("Failed to create redis dispatcher", zap.Error(err))
		}
		defer redisDispatcher.Close()
		redisDispatcher.StartConsumer(context.Background(), enrichment.HandleJob)
		dispatcher = redisDispatcher
	} else {
		eventBusDispatcher := queue.NewEventBusDispatcher(EventBus.New(), logger)
		if err := eventBusDispatcher.Subscribe(enrichment.HandleJob); err != nil {
			logger.Fatal("Failed to subscribe enrichment worker", zap.Error(err))
		}
		dispatcher = eventBusDispatcher
	}

	cs := collectorService.NewCollectorService(
		ac,
		collectorService.NewMetricCalculator(collectorService.DefaultPricingTable()),
		dispatcher,
		cfg.StoreTimeout,
		logger,
	)

	listener, err := net.Listen("tcp", cfg.GrpcAddress)
	if err != nil {
		logger.Fatal("Failed to listen for gRPC", zap.Error(err))
	}
	srv := grpc.NewServer()
	traceServiceServer := traceServer.NewTraceServiceServerImpl(logger, cs, ps)
	protoTrace.RegisterTraceServiceServer(srv, traceServiceServer)
	go func() {
		logger.Info("gRPC service started, listening for OpenTelemetry traces...",
			zap.String("address", cfg.GrpcAddress))
		if err := srv.Serve(listener); err != nil {
			logger.Fatal("Failed to serve gRPC", zap.Error(err))
		}
	}()

	r := router.CreateRouter(ps, cs, logger)
	logger.Info("Starting collector server", zap.String("address", cfg.ServerAddress))
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		logger.Fatal("Failed to serve: %v", zap.Error(err))
	}
}
