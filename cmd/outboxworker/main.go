// Command outboxworker drains the transactional outbox: claims pending rows,
// publishes them to the broker, and retries or dead-letters on failure.
package main

import (
	"context"
	"net"
	"net/http"
	"os"

	"github.com/vortex-fintech/payments-ledger/internal/broker"
	"github.com/vortex-fintech/payments-ledger/internal/broker/franzgo"
	"github.com/vortex-fintech/payments-ledger/internal/config"
	metrics "github.com/vortex-fintech/payments-ledger/internal/obs"
	"github.com/vortex-fintech/payments-ledger/internal/outbox"
	dbpg "github.com/vortex-fintech/payments-ledger/internal/storage/pgx"
	pgstore "github.com/vortex-fintech/payments-ledger/internal/storage/postgres"
	logger "github.com/vortex-fintech/payments-ledger/pkg/logging"
	retryutil "github.com/vortex-fintech/payments-ledger/pkg/retryutil"
	"github.com/vortex-fintech/payments-ledger/pkg/shutdown"
	"github.com/vortex-fintech/payments-ledger/pkg/shutdown/adapters"
	"github.com/vortex-fintech/payments-ledger/pkg/shutdown/prommetrics"
)

// workerRunner adapts outbox.Worker.Run to the shutdown.Server interface so
// it shares the same graceful-stop path as the gRPC and HTTP servers.
type workerRunner struct {
	w *outbox.Worker
}

func (r *workerRunner) Name() string { return "outbox-worker" }

func (r *workerRunner) Serve(ctx context.Context) error {
	r.w.Run(ctx)
	return ctx.Err()
}

func (r *workerRunner) GracefulStopWithTimeout(ctx context.Context) error { return nil }

func (r *workerRunner) ForceStop() {}

func main() {
	log := logger.Init("outboxworker", os.Getenv("APP_ENV"))
	defer log.SafeSync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var dbClient *dbpg.Client
	if err := retryutil.RetryInit(ctx, func() error {
		c, openErr := dbpg.Open(ctx, dbpg.Config{URL: cfg.StorageURL})
		if openErr != nil {
			return openErr
		}
		dbClient = c
		return nil
	}); err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer dbClient.Close()
	store := pgstore.New(dbClient)

	var kafkaClient *franzgo.Client
	if err := retryutil.RetryInit(ctx, func() error {
		c, dialErr := franzgo.NewClient(franzgo.Config{
			SeedBrokers: cfg.BrokerAddrs,
			ClientID:    "outboxworker",
		})
		if dialErr != nil {
			return dialErr
		}
		kafkaClient = c
		return nil
	}); err != nil {
		log.Fatalf("broker: %v", err)
	}
	defer kafkaClient.Close()
	publisher := broker.NewPublisher(kafkaClient, cfg.TopicPrefix)

	collectors := metrics.NewCollectors("payments_outbox")

	worker := outbox.New(store, publisher, outbox.Config{
		BatchSize:              cfg.OutboxBatchSize,
		PollInterval:           cfg.OutboxPollInterval,
		MaxRetries:             cfg.OutboxMaxRetries,
		BaseDelay:              cfg.OutboxBaseDelay,
		MaxDelay:               cfg.OutboxMaxDelay,
		MaxConsecutiveFailures: outbox.DefaultConfig().MaxConsecutiveFailures,
	}, collectors, log)

	obsHandler, registry := metrics.New(metrics.Options{
		Register: collectors.Register,
		Health: func(ctx context.Context, r *http.Request) error {
			return dbClient.Pool.Ping(ctx)
		},
	})
	obsServer := &http.Server{Addr: net.JoinHostPort(cfg.MetricsHost, cfg.MetricsPort), Handler: obsHandler}

	shutdownMetrics, err := prommetrics.New(registry, "payments_outbox", "shutdown")
	if err != nil {
		log.Fatalf("shutdown metrics: %v", err)
	}

	mgr := shutdown.New(shutdown.Config{
		ShutdownTimeout: cfg.ShutdownGrace,
		HandleSignals:   true,
		Metrics:         shutdownMetrics,
		Logger: func(level, msg string, kv ...any) {
			log.Infow(msg, append([]any{"level", level}, kv...)...)
		},
	})
	mgr.Add(&workerRunner{w: worker})
	mgr.Add(&adapters.HTTP{Srv: obsServer, NameStr: "outbox-metrics"})

	if err := mgr.Run(ctx); err != nil {
		log.Fatalf("worker exited with error: %v", err)
	}
}
