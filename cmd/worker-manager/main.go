// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"clarity-workers/internal/analysis"
	"clarity-workers/internal/api"
	"clarity-workers/internal/catalog"
	"clarity-workers/internal/common/aws"
	"clarity-workers/internal/common/camunda"
	"clarity-workers/internal/common/config"
	"clarity-workers/internal/common/database"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/common/observability"
	"clarity-workers/internal/delivery"
	"clarity-workers/internal/document"
	"clarity-workers/internal/engine"
	"clarity-workers/internal/service"
	"clarity-workers/internal/session"
	"clarity-workers/pkg/registry"

	analyzesession "clarity-workers/internal/workers/pipeline/analyze-session"
	exportdocument "clarity-workers/internal/workers/pipeline/export-document"
	generatedocument "clarity-workers/internal/workers/pipeline/generate-document"
	validatesession "clarity-workers/internal/workers/pipeline/validate-session"
)

const registryPath = "configs/activity-registry.json"

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	tracer, err := observability.InitTracing(ctx, cfg.App.Name, cfg.App.Environment, cfg.Tracing)
	if err != nil {
		zapLog.Fatal("tracing init failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tracer.Shutdown(shutdownCtx)
	}()

	// --- Storage backends, only those the configuration selects ---
	checks := map[string]api.ReadinessCheck{}

	var redis *database.RedisClient
	if needsRedis(cfg) {
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		checks["redis"] = redis.Ping
		zapLog.Info("Redis connected successfully")
	}

	var pg *database.PostgresClient
	if cfg.Persistence.Backend == "postgres" {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		checks["postgres"] = pg.Ping
		zapLog.Info("PostgreSQL connected successfully")
	}

	var indexer delivery.DocumentIndexer
	if cfg.Delivery.IndexEnabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		indexer = es
		checks["elasticsearch"] = es.Ping
		zapLog.Info("Elasticsearch connected successfully")
	}

	var snsClient delivery.SNSService
	if cfg.Delivery.SNSEnabled {
		c, err := aws.NewSNSClient(ctx, cfg.Delivery.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		snsClient = c
	}
	var sesClient delivery.SESService
	if cfg.Delivery.SESEnabled {
		c, err := aws.NewSESClient(ctx, cfg.Delivery.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		sesClient = c
	}

	// --- Catalogs ---
	cached := catalog.NewCachedSource(catalog.NewFileSource(cfg.Catalog.Dir), config.GetDuration(cfg.Catalog.CacheTTL))
	if cfg.Catalog.Watch {
		watcher, err := catalog.NewWatcher(cfg.Catalog.Dir, cached.Invalidate, log)
		if err != nil {
			zapLog.Warn("catalog watcher disabled", zap.Error(err))
		} else {
			defer watcher.Close()
		}
	}
	catalogs := catalog.NewOverlay(cached)

	// --- Pipeline ---
	var viability analysis.ViabilityService
	if cfg.Analysis.BaseURL != "" {
		viability = analysis.NewClient(cfg.Analysis, log)
	}

	var translationCache document.Cache = document.NewMemoryCache()
	if cfg.Translation.Cache == "redis" {
		translationCache = document.NewRedisCache(redis, config.GetDuration(cfg.Translation.CacheTTL), log)
	}

	store, err := session.NewStore(cfg.Persistence, redis, pg)
	if err != nil {
		zapLog.Fatal("session store init failed", zap.Error(err))
	}

	pipeline := service.New(service.Deps{
		Catalog:    catalogs,
		Validator:  engine.NewValidator(log),
		Aggregator: analysis.NewAggregator(log, analysis.DefaultAnalyzers(viability, log)...),
		Generator:  document.NewGenerator(document.NewAdapter(document.NewTranslator(cfg.Translation, log), translationCache, log), log),
		Gate:       session.NewGate(store, cfg.Persistence.KeyPrefix, log, session.WithPerSessionKeys()),
		Delivery:   delivery.NewService(cfg.Delivery, indexer, snsClient, sesClient, log),
		Tracer:     tracer,
		Metrics:    obs,
	}, log)

	// --- Workers ---
	workers := startWorkers(cfg, pipeline, checks, log, zapLog)

	// --- HTTP API, health and metrics ---
	routerOpts := api.RouterOptions{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Checks:         checks,
	}
	if cfg.Catalog.AllowEdits {
		routerOpts.Catalog = catalogs
	}
	server := api.NewServer(cfg.HTTP, api.NewRouter(pipeline, routerOpts, log))
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	for _, w := range workers.started {
		w.Stop()
	}
	if workers.client != nil {
		if err := workers.client.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Worker manager stopped gracefully")
}

type runningWorkers struct {
	client  *camunda.Client
	started []*camunda.Worker
}

// startWorkers connects to Zeebe and opens a job worker per enabled task
// type. Without enabled workers only the HTTP API runs.
func startWorkers(cfg *config.Config, pipeline *service.Pipeline, checks map[string]api.ReadinessCheck, log logger.Logger, zapLog *zap.Logger) runningWorkers {
	handlers := map[string]camunda.JobHandler{}

	if cfg.Workers[validatesession.TaskType].Enabled {
		handlers[validatesession.TaskType] = validatesession.NewHandler(validatesession.LoadConfig(cfg), pipeline, log)
	}
	if cfg.Workers[analyzesession.TaskType].Enabled {
		handlers[analyzesession.TaskType] = analyzesession.NewHandler(analyzesession.LoadConfig(cfg), pipeline, log)
	}
	if cfg.Workers[generatedocument.TaskType].Enabled {
		handlers[generatedocument.TaskType] = generatedocument.NewHandler(generatedocument.LoadConfig(cfg), pipeline, log)
	}
	if cfg.Workers[exportdocument.TaskType].Enabled {
		handlers[exportdocument.TaskType] = exportdocument.NewHandler(exportdocument.LoadConfig(cfg), pipeline, log)
	}

	var running runningWorkers
	if len(handlers) == 0 {
		zapLog.Info("No workers enabled, serving HTTP only")
		return running
	}

	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		zapLog.Warn("activity registry unavailable", zap.String("path", registryPath), zap.Error(err))
		reg = nil
	} else if err := reg.Validate(); err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}

	err = retryWithBackoff(func() error {
		var err error
		running.client, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	checks["zeebe"] = running.client.HealthCheck
	zapLog.Info("Zeebe client connected successfully")

	for taskType, handler := range handlers {
		if reg != nil {
			if a, ok := reg.Find(taskType); ok {
				zapLog.Info("Registering activity", zap.String("activityId", a.ID), zap.String("taskType", taskType))
			} else {
				zapLog.Warn("Task type missing from activity registry", zap.String("taskType", taskType))
			}
		}
		w := camunda.StartWorker(running.client.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), handler, log)
		running.started = append(running.started, w)
	}
	zapLog.Info("Workers registered", zap.Int("count", len(running.started)))
	return running
}

func needsRedis(cfg *config.Config) bool {
	return cfg.Persistence.Backend == "redis" || cfg.Translation.Cache == "redis"
}
