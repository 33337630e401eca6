package postgres

import (
	"context"

	dbpg "github.com/vortex-fintech/payments-ledger/internal/storage/pgx"
	"github.com/vortex-fintech/payments-ledger/internal/model"
)

// GetAccount reads an account by id. Returns ErrNotFound if absent.
func (s *Store) GetAccount(ctx context.Context, run dbpg.Runner, id string) (*model.Account, error) {
	ctx = ensureContext(ctx)

	var a model.Account
	err := run.QueryRow(ctx, `
		SELECT id, owner_id, currency, status, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id).Scan(&a.ID, &a.OwnerID, &a.Currency, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, scanErr(err)
	}
	return &a, nil
}

// GetBalance reads the balance row for an account. Returns ErrNotFound if absent.
func (s *Store) GetBalance(ctx context.Context, run dbpg.Runner, accountID string) (*model.AccountBalance, error) {
	ctx = ensureContext(ctx)

	var b model.AccountBalance
	err := run.QueryRow(ctx, `
		SELECT account_id, available_minor, pending_minor, currency, version
		FROM account_balances
		WHERE account_id = $1
	`, accountID).Scan(&b.AccountID, &b.AvailableMinor, &b.PendingMinor, &b.Currency, &b.Version)
	if err != nil {
		return nil, scanErr(err)
	}
	return &b, nil
}

// GetBalanceForUpdate locks the balance row. Callers must hold a deterministic
// lock order (the caller sorts account IDs before issuing two of these calls)
// to avoid deadlocking against a concurrent authorization on the same pair.
func (s *Store) GetBalanceForUpdate(ctx context.Context, run dbpg.Runner, accountID string) (*model.AccountBalance, error) {
	ctx = ensureContext(ctx)

	var b model.AccountBalance
	err := run.QueryRow(ctx, `
		SELECT account_id, available_minor, pending_minor, currency, version
		FROM account_balances
		WHERE account_id = $1
		FOR UPDATE
	`, accountID).Scan(&b.AccountID, &b.AvailableMinor, &b.PendingMinor, &b.Currency, &b.Version)
	if err != nil {
		return nil, scanErr(err)
	}
	return &b, nil
}

// UpdateBalance applies an optimistic-version update: the WHERE clause
// requires the caller's observed version, so a concurrent writer that already
// advanced it causes this to affect zero rows. Returns false (no error) in
// that case, signaling the caller to abort as a transient failure.
func (s *Store) UpdateBalance(ctx context.Context, run dbpg.Runner, accountID string, newAvailableMinor, expectedVersion int64) (bool, error) {
	ctx = ensureContext(ctx)

	tag, err := run.Exec(ctx, `
		UPDATE account_balances
		SET available_minor = $1, version = version + 1
		WHERE account_id = $2 AND version = $3
	`, newAvailableMinor, accountID, expectedVersion)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
