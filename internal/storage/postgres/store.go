// Package postgres implements the storage adapter: transactional access to
// accounts, balances, payments, ledger entries, idempotency records, and the
// outbox, built atop the pgx runner/transaction foundation.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	dbpg "github.com/vortex-fintech/payments-ledger/internal/storage/pgx"
)

var ErrNotFound = errors.New("postgres: not found")

// Store groups the queries the authorization engine, outbox worker, and read
// paths issue against the relational store. Every method takes a dbpg.Runner
// so callers can run inside or outside a transaction transparently.
type Store struct {
	client *dbpg.Client
}

func New(client *dbpg.Client) *Store {
	return &Store{client: client}
}

// WithTx delegates to the underlying client's panic-safe transaction helper.
func (s *Store) WithTx(ctx context.Context, fn func(run dbpg.Runner) error) error {
	return s.client.WithTx(ctx, fn)
}

// WithSerializable runs fn in a SERIALIZABLE transaction, retrying on 40001.
func (s *Store) WithSerializable(ctx context.Context, maxRetries int, fn func(run dbpg.Runner) error) error {
	return s.client.WithSerializable(ctx, maxRetries, fn)
}

// RunnerFromPool returns a Runner usable outside any transaction, for the
// read-only lookups that don't need one.
func (s *Store) RunnerFromPool() dbpg.Runner {
	return s.client.RunnerFromPool()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func scanErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func normalizeUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
