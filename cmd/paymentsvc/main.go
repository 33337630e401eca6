// Command paymentsvc serves the payments authorization and read gRPC API,
// alongside a plain-text metrics/health endpoint on a separate port.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vortex-fintech/payments-ledger/api/paymentspb"
	"github.com/vortex-fintech/payments-ledger/internal/broker"
	"github.com/vortex-fintech/payments-ledger/internal/broker/franzgo"
	"github.com/vortex-fintech/payments-ledger/internal/config"
	"github.com/vortex-fintech/payments-ledger/internal/grpcapi"
	"github.com/vortex-fintech/payments-ledger/internal/grpcmw/chain"
	"github.com/vortex-fintech/payments-ledger/internal/grpcmw/circuitbreaker"
	"github.com/vortex-fintech/payments-ledger/internal/grpcmw/deadlinemw"
	"github.com/vortex-fintech/payments-ledger/internal/grpcmw/drainmw"
	metricsmw "github.com/vortex-fintech/payments-ledger/internal/grpcmw/metricsmw"
	"github.com/vortex-fintech/payments-ledger/internal/grpcmw/metricsmw/promreporter"
	"github.com/vortex-fintech/payments-ledger/internal/grpcmw/ratelimitmw"
	"github.com/vortex-fintech/payments-ledger/internal/grpcmw/recoverymw"
	"github.com/vortex-fintech/payments-ledger/internal/ledger"
	metrics "github.com/vortex-fintech/payments-ledger/internal/obs"
	"github.com/vortex-fintech/payments-ledger/internal/outbox"
	"github.com/vortex-fintech/payments-ledger/internal/ratelimit"
	dbpg "github.com/vortex-fintech/payments-ledger/internal/storage/pgx"
	pgstore "github.com/vortex-fintech/payments-ledger/internal/storage/postgres"
	logger "github.com/vortex-fintech/payments-ledger/pkg/logging"
	rediskv "github.com/vortex-fintech/payments-ledger/pkg/rediskv"
	retryutil "github.com/vortex-fintech/payments-ledger/pkg/retryutil"
	"github.com/vortex-fintech/payments-ledger/pkg/shutdown"
	"github.com/vortex-fintech/payments-ledger/pkg/shutdown/adapters"
	"github.com/vortex-fintech/payments-ledger/pkg/shutdown/prommetrics"
)

// rateLimitLogAdapter lets the structured zap-backed logger satisfy the
// single-method interface internal/ratelimit expects for degraded-mode
// warnings.
type rateLimitLogAdapter struct{ log logger.LoggerInterface }

func (a rateLimitLogAdapter) Warn(msg string, kv ...any) { a.log.Warnw(msg, kv...) }

// grpcDrainAdapter wraps adapters.GRPC so the shutdown manager's PreStop
// hook puts the server into drain mode and flips the health check to
// NOT_SERVING before the graceful-stop grace period begins, instead of
// only gating new RPCs after traffic has already stopped being routed away.
type grpcDrainAdapter struct {
	*adapters.GRPC
	drain  *drainmw.Controller
	health *health.Server
}

func (g *grpcDrainAdapter) PreStop() {
	g.drain.StartDraining()
	g.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}

// embeddedOutboxRunner adapts outbox.Worker's poll loop to shutdown.Server so
// it can share the single-process deployment's shutdown manager when
// OUTBOX_EMBEDDED is set, instead of requiring cmd/outboxworker separately.
type embeddedOutboxRunner struct {
	w *outbox.Worker
}

func (r *embeddedOutboxRunner) Name() string { return "embedded-outbox-worker" }
func (r *embeddedOutboxRunner) Serve(ctx context.Context) error {
	r.w.Run(ctx)
	return ctx.Err()
}
func (r *embeddedOutboxRunner) GracefulStopWithTimeout(ctx context.Context) error { return nil }
func (r *embeddedOutboxRunner) ForceStop()                                       {}

func main() {
	log := logger.Init("paymentsvc", os.Getenv("APP_ENV"))
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

	var redisClient redis.UniversalClient
	if err := retryutil.RetryInit(ctx, func() error {
		c, dialErr := rediskv.NewRedisClient(ctx, rediskv.Config{
			Mode: rediskv.ModeSingle,
			Addr: cfg.KVURL,
		})
		if dialErr != nil {
			return dialErr
		}
		redisClient = c
		return nil
	}); err != nil {
		log.Fatalf("rate limit store: %v", err)
	}
	limiter := ratelimit.New(redisClient, rateLimitLogAdapter{log: log})

	engine := ledger.New(store)
	apiServer := grpcapi.New(engine, store)

	collectors := metrics.NewCollectors("payments")

	drainController := drainmw.NewController()
	cb := circuitbreaker.New(
		circuitbreaker.WithFailureThreshold(5),
		circuitbreaker.WithRecoveryTimeout(10*time.Second),
		circuitbreaker.WithHalfOpenSuccess(2),
		circuitbreaker.WithGoLibLogger(log),
	)

	unaryChain := chain.Default(chain.Options{
		Pre: []grpc.UnaryServerInterceptor{
			ratelimitmw.Unary(limiter, collectors, cfg.RateLimitPerWindow, cfg.RateLimitWindow, isMutatingMethod),
			recoverymw.Unary(recoverymw.Options{
				OnPanic: func(ctx context.Context, method string, recovered any) {
					log.Errorw("panic recovered", "method", method, "panic", recoverymw.PanicString(recovered))
				},
			}),
			metricsmw.UnaryFull(promreporter.Reporter{M: collectors}),
		},
		CircuitBreaker: cb,
		Post: []grpc.UnaryServerInterceptor{
			deadlinemw.Unary(deadlinemw.Config{DefaultTimeout: 10 * time.Second, MaxTimeout: 30 * time.Second}),
			drainmw.Unary(drainController, isMutatingMethod),
		},
	})

	grpcServer := grpc.NewServer(unaryChain)
	paymentspb.RegisterPaymentsServiceServer(grpcServer, apiServer)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.RPCPort)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}

	obsHandler, registry := metrics.New(metrics.Options{
		Register: collectors.Register,
		Health: func(ctx context.Context, r *http.Request) error {
			return dbClient.Pool.Ping(ctx)
		},
	})
	obsServer := &http.Server{Addr: net.JoinHostPort(cfg.MetricsHost, cfg.MetricsPort), Handler: obsHandler}

	shutdownMetrics, err := prommetrics.New(registry, "payments", "shutdown")
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
	mgr.Add(&grpcDrainAdapter{
		GRPC:   &adapters.GRPC{Srv: grpcServer, Lis: lis, NameStr: "payments-grpc"},
		drain:  drainController,
		health: healthServer,
	})
	mgr.Add(&adapters.HTTP{Srv: obsServer, NameStr: "payments-metrics"})

	if cfg.OutboxEmbedded {
		var kafkaClient *franzgo.Client
		if err := retryutil.RetryInit(ctx, func() error {
			c, dialErr := franzgo.NewClient(franzgo.Config{
				SeedBrokers: cfg.BrokerAddrs,
				ClientID:    "paymentsvc-embedded-outbox",
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

		worker := outbox.New(store, publisher, outbox.Config{
			BatchSize:              cfg.OutboxBatchSize,
			PollInterval:           cfg.OutboxPollInterval,
			MaxRetries:             cfg.OutboxMaxRetries,
			BaseDelay:              cfg.OutboxBaseDelay,
			MaxDelay:               cfg.OutboxMaxDelay,
			MaxConsecutiveFailures: outbox.DefaultConfig().MaxConsecutiveFailures,
		}, collectors, log)
		mgr.Add(&embeddedOutboxRunner{w: worker})
	}

	if err := mgr.Run(ctx); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

// isMutatingMethod reports whether fullMethod is the write path. Drain mode
// rejects only such calls while the process finishes in-flight work, and the
// rate limiter gates only them; GetPayment/GetAccountBalance stay available
// during drain.
func isMutatingMethod(fullMethod string) bool {
	return fullMethod == paymentspb.PaymentsService_AuthorizePayment_FullMethodName
}
