package ledger

import (
	"context"
	"time"

	dbpg "github.com/vortex-fintech/payments-ledger/internal/storage/pgx"
	"github.com/vortex-fintech/payments-ledger/internal/model"
)

// The engine depends only on these capability sets, never on the concrete
// storage type, so a transaction-scoped fake can stand in for tests without
// a database.

type AccountsReader interface {
	GetAccount(ctx context.Context, run dbpg.Runner, id string) (*model.Account, error)
}

type BalancesWriter interface {
	GetBalanceForUpdate(ctx context.Context, run dbpg.Runner, accountID string) (*model.AccountBalance, error)
	UpdateBalance(ctx context.Context, run dbpg.Runner, accountID string, newAvailableMinor, expectedVersion int64) (bool, error)
}

type LedgerWriter interface {
	InsertPayment(ctx context.Context, run dbpg.Runner, p model.Payment) error
	InsertLedgerEntry(ctx context.Context, run dbpg.Runner, e model.LedgerEntry) error
}

type IdempotencyWriter interface {
	ClaimIdempotencyKey(ctx context.Context, run dbpg.Runner, key string, ttl time.Duration) (*model.IdempotencyRecord, bool, error)
	CompleteIdempotencyKey(ctx context.Context, run dbpg.Runner, key, paymentID string, status model.IdempotencyStatus, snapshot []byte) error
}

type OutboxWriter interface {
	InsertOutboxRecord(ctx context.Context, run dbpg.Runner, rec model.OutboxRecord) error
}

// UnitOfWork runs fn inside a single atomic transaction, explicitly
// committing on a nil return and rolling back otherwise.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(run dbpg.Runner) error) error
}

// Store is the engine's full storage dependency: the union of the
// capability sets above plus the transaction boundary.
type Store interface {
	AccountsReader
	BalancesWriter
	LedgerWriter
	IdempotencyWriter
	OutboxWriter
	UnitOfWork
}
