package outbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vortex-fintech/payments-ledger/internal/broker"
	"github.com/vortex-fintech/payments-ledger/internal/model"
	dbpg "github.com/vortex-fintech/payments-ledger/internal/storage/pgx"
	logger "github.com/vortex-fintech/payments-ledger/pkg/logging"
)

// fakeStore mimics the real store's semantics closely enough for the
// worker's retry and recovery behavior to be meaningfully exercised:
// unpublished records stay claimable across cycles instead of being
// consumed once, same as rows with published_at IS NULL in postgres.
type fakeStore struct {
	mu    sync.Mutex
	order []string
	recs  map[string]*model.OutboxRecord

	published map[string]bool
	retries   map[string]int
}

func newFakeStore(records ...model.OutboxRecord) *fakeStore {
	recs := make(map[string]*model.OutboxRecord, len(records))
	order := make([]string, 0, len(records))
	for _, r := range records {
		rCopy := r
		recs[r.ID] = &rCopy
		order = append(order, r.ID)
	}
	return &fakeStore{
		order:     order,
		recs:      recs,
		published: map[string]bool{},
		retries:   map[string]int{},
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(run dbpg.Runner) error) error {
	return fn(nil)
}

func (f *fakeStore) RunnerFromPool() dbpg.Runner { return nil }

func (f *fakeStore) ClaimPendingOutboxBatch(ctx context.Context, run dbpg.Runner, limit int) ([]model.OutboxRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var batch []model.OutboxRecord
	for _, id := range f.order {
		if limit > 0 && len(batch) >= limit {
			break
		}
		r := f.recs[id]
		if r.PublishedAt == nil {
			batch = append(batch, *r)
		}
	}
	return batch, nil
}

func (f *fakeStore) MarkOutboxPublished(ctx context.Context, run dbpg.Runner, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.recs[id].PublishedAt = &now
	f.published[id] = true
	return nil
}

func (f *fakeStore) IncrementOutboxRetry(ctx context.Context, run dbpg.Runner, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[id].RetryCount++
	f.retries[id]++
	return nil
}

func (f *fakeStore) CountPendingOutbox(ctx context.Context, run dbpg.Runner) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range f.order {
		if f.recs[id].PublishedAt == nil {
			n++
		}
	}
	return n, nil
}

type fakePublisher struct {
	mu           sync.Mutex
	failOn       map[string]bool
	down         bool
	published    []string
	deadLettered []string
}

func newFakePublisher(failOn ...string) *fakePublisher {
	set := map[string]bool{}
	for _, id := range failOn {
		set[id] = true
	}
	return &fakePublisher{failOn: set}
}

func (p *fakePublisher) Publish(ctx context.Context, env broker.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down || p.failOn[env.EventID] {
		return assertErr
	}
	p.published = append(p.published, env.EventID)
	return nil
}

func (p *fakePublisher) setDown(down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.down = down
}

func (p *fakePublisher) PublishDeadLetter(ctx context.Context, env broker.Envelope, retryCount int, failedAt time.Time, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deadLettered = append(p.deadLettered, env.EventID)
	return nil
}

var assertErr = assertError("publish failed")

type assertError string

func (e assertError) Error() string { return string(e) }

type fakeMetrics struct {
	mu          sync.Mutex
	published   int
	failed      int
	deadLettered int
	depth       int64
}

func (m *fakeMetrics) IncPublished(string)    { m.mu.Lock(); m.published++; m.mu.Unlock() }
func (m *fakeMetrics) IncFailed(string)       { m.mu.Lock(); m.failed++; m.mu.Unlock() }
func (m *fakeMetrics) IncDeadLettered(string) { m.mu.Lock(); m.deadLettered++; m.mu.Unlock() }
func (m *fakeMetrics) SetPendingDepth(n int64) { m.mu.Lock(); m.depth = n; m.mu.Unlock() }

func noopLogger(t *testing.T) logger.LoggerInterface {
	t.Helper()
	l, err := logger.New("outbox-test", "test")
	require.NoError(t, err)
	return l
}

func TestCycle_PublishesPendingRecords(t *testing.T) {
	store := newFakeStore(
		model.OutboxRecord{ID: "e1", EventType: broker.EventPaymentAuthorized, AggregateID: "p1", RetryCount: 0},
		model.OutboxRecord{ID: "e2", EventType: broker.EventPaymentDeclined, AggregateID: "p2", RetryCount: 0},
	)
	pub := newFakePublisher()
	metrics := &fakeMetrics{}
	w := New(store, pub, Config{BatchSize: 10, MaxRetries: 5, BaseDelay: time.Millisecond, MaxDelay: time.Second}, metrics, noopLogger(t))

	processed, published := w.cycle(context.Background())
	require.Equal(t, 2, processed)
	require.Equal(t, 2, published)
	require.True(t, store.published["e1"])
	require.True(t, store.published["e2"])
	require.Equal(t, 2, metrics.published)
}

func TestCycle_FailedPublishIncrementsRetryNotPublished(t *testing.T) {
	store := newFakeStore(
		model.OutboxRecord{ID: "e1", EventType: broker.EventPaymentAuthorized, AggregateID: "p1", RetryCount: 0},
	)
	pub := newFakePublisher("e1")
	metrics := &fakeMetrics{}
	w := New(store, pub, Config{BatchSize: 10, MaxRetries: 5, BaseDelay: time.Millisecond, MaxDelay: time.Second}, metrics, noopLogger(t))

	_, published := w.cycle(context.Background())
	require.Equal(t, 0, published)
	require.False(t, store.published["e1"])
	require.Equal(t, 1, store.retries["e1"])
	require.Equal(t, 1, metrics.failed)
}

func TestCycle_RoutesExhaustedRetriesToDeadLetter(t *testing.T) {
	store := newFakeStore(
		model.OutboxRecord{ID: "e1", EventType: broker.EventPaymentAuthorized, AggregateID: "p1", RetryCount: 5},
	)
	pub := newFakePublisher()
	metrics := &fakeMetrics{}
	w := New(store, pub, Config{BatchSize: 10, MaxRetries: 5, BaseDelay: time.Millisecond, MaxDelay: time.Second}, metrics, noopLogger(t))

	w.cycle(context.Background())
	require.Contains(t, pub.deadLettered, "e1")
	require.True(t, store.published["e1"], "dead-lettered records are marked published once the DLQ send succeeds")
	require.Equal(t, 1, metrics.deadLettered)
}

func TestCycle_EmptyBatchIsNoop(t *testing.T) {
	store := newFakeStore()
	pub := newFakePublisher()
	metrics := &fakeMetrics{}
	w := New(store, pub, Config{BatchSize: 10, MaxRetries: 5}, metrics, noopLogger(t))

	processed, published := w.cycle(context.Background())
	require.Equal(t, 0, processed)
	require.Equal(t, 0, published)
}

func TestRun_LatchesCircuitBreakerAfterConsecutiveEmptyPublishes(t *testing.T) {
	store := newFakeStore(
		model.OutboxRecord{ID: "e", EventType: broker.EventPaymentAuthorized, AggregateID: "p", RetryCount: 0},
	)
	pub := newFakePublisher("e")
	metrics := &fakeMetrics{}
	w := New(store, pub, Config{
		BatchSize: 10, MaxRetries: 100, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond,
		PollInterval: time.Millisecond, MaxConsecutiveFailures: 3,
	}, metrics, noopLogger(t))

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not latch its circuit breaker in time")
	}
}

// TestCycle_RecoversPendingDepthToZeroAfterBrokerComesBack exercises property 9
// and scenario S6: records committed while the broker is unreachable stay
// pending, and once the broker accepts sends again the very next cycle
// drains them without operator intervention.
func TestCycle_RecoversPendingDepthToZeroAfterBrokerComesBack(t *testing.T) {
	store := newFakeStore(
		model.OutboxRecord{ID: "e1", EventType: broker.EventPaymentAuthorized, AggregateID: "p1", RetryCount: 0},
		model.OutboxRecord{ID: "e2", EventType: broker.EventPaymentAuthorized, AggregateID: "p2", RetryCount: 0},
		model.OutboxRecord{ID: "e3", EventType: broker.EventPaymentDeclined, AggregateID: "p3", RetryCount: 0},
	)
	pub := newFakePublisher()
	pub.setDown(true)
	metrics := &fakeMetrics{}
	w := New(store, pub, Config{
		BatchSize: 10, MaxRetries: 100, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond,
	}, metrics, noopLogger(t))

	processed, published := w.cycle(context.Background())
	require.Equal(t, 3, processed)
	require.Equal(t, 0, published)
	depth, err := store.CountPendingOutbox(context.Background(), nil)
	require.NoError(t, err)
	require.EqualValues(t, 3, depth)

	pub.setDown(false)
	processed, published = w.cycle(context.Background())
	require.Equal(t, 3, processed)
	require.Equal(t, 3, published)

	depth, err = store.CountPendingOutbox(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, depth)
	require.ElementsMatch(t, []string{"e1", "e2", "e3"}, pub.published)
}

func TestBackoffDelay_BoundedByMax(t *testing.T) {
	d := backoffDelay(time.Second, 5*time.Second, 10)
	require.LessOrEqual(t, d, 6*time.Second)
}
