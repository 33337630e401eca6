// Package outbox implements the at-least-once delivery worker that relays
// committed OutboxRecord rows to the broker, with retry backoff, a
// consecutive-failure circuit breaker, and dead-letter routing.
package outbox

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/vortex-fintech/payments-ledger/internal/broker"
	dbpg "github.com/vortex-fintech/payments-ledger/internal/storage/pgx"
	"github.com/vortex-fintech/payments-ledger/internal/model"
	logger "github.com/vortex-fintech/payments-ledger/pkg/logging"
)

// Store is the worker's storage dependency: claim-and-lock a batch of
// pending rows, then resolve each to published or retried.
type Store interface {
	WithTx(ctx context.Context, fn func(run dbpg.Runner) error) error
	RunnerFromPool() dbpg.Runner
	ClaimPendingOutboxBatch(ctx context.Context, run dbpg.Runner, limit int) ([]model.OutboxRecord, error)
	MarkOutboxPublished(ctx context.Context, run dbpg.Runner, id string) error
	IncrementOutboxRetry(ctx context.Context, run dbpg.Runner, id string) error
	CountPendingOutbox(ctx context.Context, run dbpg.Runner) (int64, error)
}

// Publisher is the worker's broker dependency.
type Publisher interface {
	Publish(ctx context.Context, env broker.Envelope) error
	PublishDeadLetter(ctx context.Context, env broker.Envelope, retryCount int, failedAt time.Time, reason string) error
}

// Metrics is the worker's observability dependency.
type Metrics interface {
	IncPublished(eventType string)
	IncFailed(eventType string)
	IncDeadLettered(eventType string)
	SetPendingDepth(n int64)
}

type nopMetrics struct{}

func (nopMetrics) IncPublished(string)      {}
func (nopMetrics) IncFailed(string)         {}
func (nopMetrics) IncDeadLettered(string)   {}
func (nopMetrics) SetPendingDepth(int64)    {}

// Config holds the worker's tunables, all passed in at construction — no
// process-wide singletons for settings.
type Config struct {
	BatchSize              int
	PollInterval           time.Duration
	MaxRetries             int
	BaseDelay              time.Duration
	MaxDelay               time.Duration
	MaxConsecutiveFailures int
}

func DefaultConfig() Config {
	return Config{
		BatchSize:              100,
		PollInterval:           2 * time.Second,
		MaxRetries:             5,
		BaseDelay:              500 * time.Millisecond,
		MaxDelay:               30 * time.Second,
		MaxConsecutiveFailures: 10,
	}
}

// Worker is the long-running outbox delivery loop.
type Worker struct {
	store   Store
	pub     Publisher
	cfg     Config
	metrics Metrics
	log     logger.LoggerInterface
}

func New(store Store, pub Publisher, cfg Config, metrics Metrics, log logger.LoggerInterface) *Worker {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Worker{store: store, pub: pub, cfg: cfg, metrics: metrics, log: log}
}

// Run polls until ctx is cancelled or the circuit breaker latches open.
func (w *Worker) Run(ctx context.Context) {
	consecutiveEmpty := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		processed, published := w.cycle(ctx)

		if processed > 0 && published == 0 {
			consecutiveEmpty++
			if consecutiveEmpty >= w.cfg.MaxConsecutiveFailures {
				w.log.Errorw("outbox worker latching circuit breaker: no successful publishes across consecutive cycles",
					"consecutive_failures", consecutiveEmpty)
				return
			}
		} else {
			consecutiveEmpty = 0
		}

		fullBatch := processed >= w.cfg.BatchSize && w.cfg.BatchSize > 0
		if fullBatch {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// cycle claims one batch, publishes or dead-letters each record, and reports
// how many rows it processed and how many it successfully published.
func (w *Worker) cycle(ctx context.Context) (processed, published int) {
	var batch []model.OutboxRecord
	err := w.store.WithTx(ctx, func(run dbpg.Runner) error {
		b, err := w.store.ClaimPendingOutboxBatch(ctx, run, w.cfg.BatchSize)
		if err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		w.log.Errorw("claim outbox batch failed", "error", err)
		return 0, 0
	}
	if len(batch) == 0 {
		w.reportPendingDepth(ctx)
		return 0, 0
	}

	var toPublish, toDeadLetter []model.OutboxRecord
	for _, rec := range batch {
		if rec.RetryCount >= w.cfg.MaxRetries {
			toDeadLetter = append(toDeadLetter, rec)
		} else {
			toPublish = append(toPublish, rec)
		}
	}

	for _, rec := range toPublish {
		if w.publishOne(ctx, rec) {
			published++
		}
	}
	for _, rec := range toDeadLetter {
		w.deadLetterOne(ctx, rec)
	}

	w.reportPendingDepth(ctx)
	return len(batch), published
}

func (w *Worker) publishOne(ctx context.Context, rec model.OutboxRecord) bool {
	env := broker.Envelope{
		EventID:       rec.ID,
		AggregateType: rec.AggregateType,
		AggregateID:   rec.AggregateID,
		EventType:     rec.EventType,
		Payload:       json.RawMessage(rec.Payload),
		Timestamp:     rec.CreatedAt,
	}

	if err := w.pub.Publish(ctx, env); err != nil {
		delay := backoffDelay(w.cfg.BaseDelay, w.cfg.MaxDelay, rec.RetryCount)
		w.log.Warnw("outbox publish failed, will retry",
			"event_id", rec.ID, "event_type", rec.EventType, "attempt", rec.RetryCount+1,
			"backoff", delay, "error", err)
		w.metrics.IncFailed(rec.EventType)

		if incErr := w.store.WithTx(ctx, func(run dbpg.Runner) error {
			return w.store.IncrementOutboxRetry(ctx, run, rec.ID)
		}); incErr != nil {
			w.log.Errorw("increment outbox retry failed", "event_id", rec.ID, "error", incErr)
		}
		return false
	}

	if err := w.store.WithTx(ctx, func(run dbpg.Runner) error {
		return w.store.MarkOutboxPublished(ctx, run, rec.ID)
	}); err != nil {
		w.log.Errorw("mark outbox published failed", "event_id", rec.ID, "error", err)
		return false
	}
	w.metrics.IncPublished(rec.EventType)
	return true
}

func (w *Worker) deadLetterOne(ctx context.Context, rec model.OutboxRecord) {
	env := broker.Envelope{
		EventID:       rec.ID,
		AggregateType: rec.AggregateType,
		AggregateID:   rec.AggregateID,
		EventType:     rec.EventType,
		Payload:       json.RawMessage(rec.Payload),
		Timestamp:     rec.CreatedAt,
	}

	if err := w.pub.PublishDeadLetter(ctx, env, rec.RetryCount, time.Now().UTC(), "max_retries_exceeded"); err != nil {
		w.log.Errorw("dead letter publish failed, will retry next cycle", "event_id", rec.ID, "error", err)
		return
	}

	if err := w.store.WithTx(ctx, func(run dbpg.Runner) error {
		return w.store.MarkOutboxPublished(ctx, run, rec.ID)
	}); err != nil {
		w.log.Errorw("mark dead-lettered outbox published failed", "event_id", rec.ID, "error", err)
		return
	}
	w.metrics.IncDeadLettered(rec.EventType)
}

func (w *Worker) reportPendingDepth(ctx context.Context) {
	n, err := w.store.CountPendingOutbox(ctx, w.store.RunnerFromPool())
	if err != nil {
		return
	}
	w.metrics.SetPendingDepth(n)
}

// backoffDelay computes the advisory retry delay: min(base*2^retry, max)
// plus up to 10% jitter. The poll loop's natural cadence is what actually
// paces retries; this value is logged, not slept on, so a failed send never
// blocks the rest of the batch.
func backoffDelay(base, max time.Duration, retryCount int) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if max > 0 && delay >= max {
			delay = max
			break
		}
	}
	if max > 0 && delay > max {
		delay = max
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/10 + 1))
	return delay + jitter
}
