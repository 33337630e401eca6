//go:build integration

package ledger_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vortex-fintech/payments-ledger/internal/broker"
	"github.com/vortex-fintech/payments-ledger/internal/idgen"
	"github.com/vortex-fintech/payments-ledger/internal/ledger"
	"github.com/vortex-fintech/payments-ledger/internal/model"
	dbpg "github.com/vortex-fintech/payments-ledger/internal/storage/pgx"
	pgstore "github.com/vortex-fintech/payments-ledger/internal/storage/postgres"
)

type accountTag struct{}

func setupStore(t *testing.T) *pgstore.Store {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "payments",
			"POSTGRES_PASSWORD": "payments",
			"POSTGRES_DB":       "payments",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req, Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	client, err := dbpg.OpenWithDBConfig(ctx, dbpg.DBConfig{
		Host: host, Port: port.Port(), User: "payments", Password: "payments",
		DBName: "payments", SSLMode: "disable",
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	migration, err := os.ReadFile(migrationPath())
	require.NoError(t, err)
	_, err = client.Pool.Exec(ctx, string(migration))
	require.NoError(t, err)

	return pgstore.New(client)
}

func migrationPath() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations", "0001_init.sql")
}

func seedAccount(t *testing.T, store *pgstore.Store, currency string, availableMinor int64) string {
	t.Helper()
	ctx := context.Background()
	id, err := idgen.NewID[accountTag]()
	require.NoError(t, err)

	run := store.RunnerFromPool()
	_, err = run.Exec(ctx, `
		INSERT INTO accounts (id, owner_id, currency, status, created_at, updated_at)
		VALUES ($1, $1, $2, 'ACTIVE', now(), now())
	`, id.String(), currency)
	require.NoError(t, err)
	_, err = run.Exec(ctx, `
		INSERT INTO account_balances (account_id, available_minor, pending_minor, currency, version)
		VALUES ($1, $2, 0, $3, 0)
	`, id.String(), availableMinor, currency)
	require.NoError(t, err)
	return id.String()
}

func TestAuthorize_HappyPathMovesFunds(t *testing.T) {
	store := setupStore(t)
	engine := ledger.New(store)
	ctx := context.Background()

	payer := seedAccount(t, store, "USD", 10000)
	payee := seedAccount(t, store, "USD", 0)

	res, err := engine.Authorize(ctx, ledger.Command{
		IdempotencyKey: "k1", PayerID: payer, PayeeID: payee,
		AmountMinor: 2500, Currency: "USD",
	})
	require.NoError(t, err)
	require.Equal(t, ledger.StatusAuthorized, res.Status)

	run := store.RunnerFromPool()
	payerBal, err := store.GetBalance(ctx, run, payer)
	require.NoError(t, err)
	require.EqualValues(t, 7500, payerBal.AvailableMinor)
	require.EqualValues(t, 1, payerBal.Version)

	payeeBal, err := store.GetBalance(ctx, run, payee)
	require.NoError(t, err)
	require.EqualValues(t, 2500, payeeBal.AvailableMinor)

	entries, err := store.ListLedgerEntries(ctx, run, res.PaymentID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var debit, credit *model.LedgerEntry
	for i := range entries {
		switch entries[i].EntryType {
		case model.EntryDebit:
			debit = &entries[i]
		case model.EntryCredit:
			credit = &entries[i]
		}
	}
	require.NotNil(t, debit, "missing DEBIT entry")
	require.NotNil(t, credit, "missing CREDIT entry")
	require.Equal(t, debit.AmountMinor, credit.AmountMinor)
	require.Equal(t, "USD", debit.Currency)
	require.Equal(t, "USD", credit.Currency)
	require.EqualValues(t, 7500, debit.BalanceAfterMinor)
	require.EqualValues(t, 2500, credit.BalanceAfterMinor)

	pending, err := store.ClaimPendingOutboxBatch(ctx, run, 10)
	require.NoError(t, err)
	found := false
	for _, rec := range pending {
		if rec.AggregateID == res.PaymentID {
			require.Equal(t, broker.EventPaymentAuthorized, rec.EventType)
			found = true
		}
	}
	require.True(t, found, "expected an outbox record for the authorized payment")
}

func TestAuthorize_DuplicateReplaysSnapshot(t *testing.T) {
	store := setupStore(t)
	engine := ledger.New(store)
	ctx := context.Background()

	payer := seedAccount(t, store, "USD", 10000)
	payee := seedAccount(t, store, "USD", 0)

	cmd := ledger.Command{IdempotencyKey: "k2", PayerID: payer, PayeeID: payee, AmountMinor: 1000, Currency: "USD"}
	first, err := engine.Authorize(ctx, cmd)
	require.NoError(t, err)

	second, err := engine.Authorize(ctx, cmd)
	require.NoError(t, err)
	require.Equal(t, ledger.StatusDuplicate, second.Status)
	require.Equal(t, first.PaymentID, second.PaymentID)

	run := store.RunnerFromPool()
	payerBal, err := store.GetBalance(ctx, run, payer)
	require.NoError(t, err)
	require.EqualValues(t, 9000, payerBal.AvailableMinor, "duplicate must not move funds twice")
}

func TestAuthorize_InsufficientFundsDeclines(t *testing.T) {
	store := setupStore(t)
	engine := ledger.New(store)
	ctx := context.Background()

	payer := seedAccount(t, store, "USD", 500)
	payee := seedAccount(t, store, "USD", 0)

	res, err := engine.Authorize(ctx, ledger.Command{
		IdempotencyKey: "k3", PayerID: payer, PayeeID: payee, AmountMinor: 100000, Currency: "USD",
	})
	require.NoError(t, err)
	require.Equal(t, ledger.StatusDeclined, res.Status)
	require.NotNil(t, res.Error)
	require.Equal(t, model.DeclineInsufficientFunds, res.Error.Code)

	run := store.RunnerFromPool()
	payerBal, err := store.GetBalance(ctx, run, payer)
	require.NoError(t, err)
	require.EqualValues(t, 500, payerBal.AvailableMinor)
}

func TestAuthorize_SameAccountDeclines(t *testing.T) {
	store := setupStore(t)
	engine := ledger.New(store)
	ctx := context.Background()

	payer := seedAccount(t, store, "USD", 500)

	res, err := engine.Authorize(ctx, ledger.Command{
		IdempotencyKey: "k4", PayerID: payer, PayeeID: payer, AmountMinor: 100, Currency: "USD",
	})
	require.NoError(t, err)
	require.Equal(t, ledger.StatusDeclined, res.Status)
	require.Equal(t, model.DeclineSameAccount, res.Error.Code)
}

func TestAuthorize_ConcurrentOverdrawLeavesExactlyOneAuthorized(t *testing.T) {
	store := setupStore(t)
	engine := ledger.New(store)
	ctx := context.Background()

	payer := seedAccount(t, store, "USD", 10000)
	payee := seedAccount(t, store, "USD", 0)

	cmds := []ledger.Command{
		{IdempotencyKey: "k5", PayerID: payer, PayeeID: payee, AmountMinor: 7000, Currency: "USD"},
		{IdempotencyKey: "k6", PayerID: payer, PayeeID: payee, AmountMinor: 6000, Currency: "USD"},
	}

	results := make([]ledger.Result, len(cmds))
	errs := make([]error, len(cmds))

	var wg sync.WaitGroup
	for i, cmd := range cmds {
		wg.Add(1)
		go func(i int, cmd ledger.Command) {
			defer wg.Done()
			results[i], errs[i] = engine.Authorize(ctx, cmd)
		}(i, cmd)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	authorized, declined := 0, 0
	for _, res := range results {
		switch res.Status {
		case ledger.StatusAuthorized:
			authorized++
		case ledger.StatusDeclined:
			declined++
			require.Equal(t, model.DeclineInsufficientFunds, res.Error.Code)
		}
	}
	require.Equal(t, 1, authorized, "exactly one request must fit inside the available balance")
	require.Equal(t, 1, declined)

	run := store.RunnerFromPool()
	payerBal, err := store.GetBalance(ctx, run, payer)
	require.NoError(t, err)
	require.GreaterOrEqual(t, payerBal.AvailableMinor, int64(0))
	require.Contains(t, []int64{3000, 4000}, payerBal.AvailableMinor)
}
