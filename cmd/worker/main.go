package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/lexgraph/internal/observability"
	"github.com/OFFIS-RIT/lexgraph/internal/queue"
	"github.com/OFFIS-RIT/lexgraph/internal/server"
	"github.com/OFFIS-RIT/lexgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/lexgraph/internal/storage"
	"github.com/OFFIS-RIT/lexgraph/internal/util"

	"github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/OFFIS-RIT/lexgraph/pkg/ai"
	"github.com/OFFIS-RIT/lexgraph/pkg/ai/adapter"
	"github.com/OFFIS-RIT/lexgraph/pkg/config"
	"github.com/OFFIS-RIT/lexgraph/pkg/leaselock"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger/console"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger/jsonlog"
	"github.com/OFFIS-RIT/lexgraph/pkg/pipeline"
	"github.com/OFFIS-RIT/lexgraph/pkg/store"
	"github.com/OFFIS-RIT/lexgraph/pkg/store/backend"
	pgstore "github.com/OFFIS-RIT/lexgraph/pkg/store/pgx"
)

var version = "dev"

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	if util.GetEnvString("LOG_FORMAT", "json") == "console" {
		logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
			Debug: debug,
		}))
	} else {
		jsonLogger, err := jsonlog.NewJSONLogger(jsonlog.JSONLoggerParams{
			Debug:       debug,
			ServiceName: "lexgraph-worker",
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to create logger:", err)
			os.Exit(1)
		}
		logger.Init(jsonLogger)
	}
	defer logger.Sync()

	// tracing
	shutdownOtel := observability.InitOTel(ctx, observability.OtelConfig{
		ServiceName: "lexgraph-worker",
		Environment: util.GetEnv("ENVIRONMENT"),
		Version:     version,
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(ctx); err != nil {
			logger.Error("Failed to flush traces", "err", err)
		}
	}()

	// config
	cfg := config.Default()
	if path := util.GetEnv("LEXGRAPH_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			logger.Fatal("Failed to load config", "err", err)
		}
		cfg = loaded
	}
	cfg = config.ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid config", "err", err)
	}

	// graph storage
	graphStore, err := backend.Open(ctx, cfg.Store)
	if err != nil {
		logger.Fatal("Failed to open graph store", "backend", cfg.Store.Backend, "err", err)
	}
	defer graphStore.Close()

	// leases live next to the graph when it is in Postgres
	leases := leaselock.NewLocal()
	if pg, ok := graphStore.(*pgstore.GraphDBStorage); ok && pg.Pool() != nil {
		leases = leaselock.New(pg.Pool())
	}

	// Init s3 client
	var objects storage.ObjectStore
	if bucket := util.GetEnv("AWS_BUCKET"); bucket != "" {
		client, err := storage.NewS3Client(ctx)
		if err != nil {
			logger.Fatal("Failed to create S3 client", "err", err)
		}
		objects = storage.NewS3Store(client, bucket)
	}

	// text generation for community summaries
	generator, err := adapter.New(cfg.Summary)
	if err != nil {
		logger.Fatal("Failed to create text generator", "err", err)
	}

	p, err := pipeline.New(cfg, pipeline.Options{Storage: graphStore, Generator: generator})
	if err != nil {
		logger.Fatal("Failed to create pipeline", "err", err)
	}

	// Init rabbitmq
	conn, err := queue.Dial(queue.URL())
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	retryDelay := util.GetEnvDuration("QUEUE_RETRY_DELAY", 30*time.Second)
	if err := queue.SetupQueues(ch, []string{queue.RunQueue, queue.ResultsQueue}, retryDelay); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	processor := &queue.Processor{
		Runner:       &metricsRunner{Runner: p, generator: generator},
		Leases:       leases,
		Objects:      objects,
		Publisher:    ch,
		ResultsQueue: queue.ResultsQueue,
		LeaseOptions: leaselock.Options{
			TTL:  util.GetEnvDuration("LEASE_TTL", 2*time.Minute),
			Wait: util.GetEnvBool("LEASE_WAIT", false),
		},
		RunTimeout: util.GetEnvDuration("RUN_TIMEOUT", 30*time.Minute),
	}

	e := server.New(&middleware.App{
		Queue:    ch,
		RunQueue: queue.RunQueue,
		Objects:  objects,
		APIKey:   util.GetEnv("API_KEY"),
		Checks: map[string]middleware.Check{
			"queue": func(context.Context) error {
				if conn.IsClosed() {
					return amqp091.ErrClosed
				}
				return nil
			},
			"store": storeCheck(graphStore),
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx, e, util.GetEnvString("PORT", "8080"))
	})
	g.Go(func() error {
		logger.Info("Listening for messages", "queue", queue.RunQueue)
		return queue.Consume(
			gctx,
			consumerCh,
			queue.RunQueue,
			util.GetEnvInt("WORKER_CONCURRENCY", 1),
			util.GetEnvInt("QUEUE_MAX_RETRIES", queue.DefaultMaxRetries),
			processor.ProcessRunMessage,
		)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", "err", err)
		return
	}
	logger.Info("Shutdown signal received, exiting...")
}

// storeCheck pings Postgres backed stores; other backends have no cheap
// liveness probe.
func storeCheck(s store.GraphStorage) middleware.Check {
	return func(ctx context.Context) error {
		if pg, ok := s.(*pgstore.GraphDBStorage); ok && pg.Pool() != nil {
			return pg.Pool().Ping(ctx)
		}
		return nil
	}
}

// metricsRunner logs the token usage of the summarizer after each run.
type metricsRunner struct {
	queue.Runner
	generator ai.TextGenerator
}

func (m *metricsRunner) Run(ctx context.Context, in pipeline.Input) pipeline.Result {
	res := m.Runner.Run(ctx, in)

	reporter, ok := m.generator.(ai.MetricsReporter)
	if !ok {
		return res
	}
	metrics := reporter.GetMetrics()
	logger.Info(
		"AI Metrics",
		"run_id", res.Summary.RunID,
		"requests", metrics.Requests,
		"input_tokens", metrics.InputTokens,
		"output_tokens", metrics.OutputTokens,
		"total_tokens", metrics.TotalTokens,
		"duration", (time.Duration(metrics.DurationMs) * time.Millisecond).String(),
	)
	return res
}
