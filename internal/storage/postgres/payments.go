package postgres

import (
	"context"

	dbpg "github.com/vortex-fintech/payments-ledger/internal/storage/pgx"
	"github.com/vortex-fintech/payments-ledger/internal/model"
)

// InsertPayment persists a Payment row (AUTHORIZED or DECLINED) exactly once
// per accepted idempotency claim.
func (s *Store) InsertPayment(ctx context.Context, run dbpg.Runner, p model.Payment) error {
	ctx = ensureContext(ctx)

	_, err := run.Exec(ctx, `
		INSERT INTO payments (
			id, idempotency_key, payer_account_id, payee_account_id,
			amount_minor, currency, status, description, error_code, error_message,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		p.ID, p.IdempotencyKey, p.PayerAccountID, p.PayeeAccountID,
		p.AmountMinor, p.Currency, p.Status, nullIfEmpty(p.Description),
		nullIfEmpty(p.ErrorCode), nullIfEmpty(p.ErrorMessage),
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetPayment reads a payment by id. Returns ErrNotFound if absent.
func (s *Store) GetPayment(ctx context.Context, run dbpg.Runner, id string) (*model.Payment, error) {
	ctx = ensureContext(ctx)

	var p model.Payment
	var description, errorCode, errorMessage *string
	err := run.QueryRow(ctx, `
		SELECT id, idempotency_key, payer_account_id, payee_account_id,
		       amount_minor, currency, status, description, error_code, error_message,
		       created_at, updated_at
		FROM payments
		WHERE id = $1
	`, id).Scan(
		&p.ID, &p.IdempotencyKey, &p.PayerAccountID, &p.PayeeAccountID,
		&p.AmountMinor, &p.Currency, &p.Status, &description, &errorCode, &errorMessage,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, scanErr(err)
	}
	p.Description = derefOrEmpty(description)
	p.ErrorCode = derefOrEmpty(errorCode)
	p.ErrorMessage = derefOrEmpty(errorMessage)
	return &p, nil
}

// InsertLedgerEntry writes one immutable DEBIT or CREDIT row.
func (s *Store) InsertLedgerEntry(ctx context.Context, run dbpg.Runner, e model.LedgerEntry) error {
	ctx = ensureContext(ctx)

	_, err := run.Exec(ctx, `
		INSERT INTO ledger_entries (
			id, payment_id, account_id, entry_type, amount_minor, currency,
			balance_after_minor, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		e.ID, e.PaymentID, e.AccountID, e.EntryType, e.AmountMinor, e.Currency,
		e.BalanceAfterMinor, e.CreatedAt,
	)
	return err
}

// ListLedgerEntries returns the entries for a payment, in insertion order.
func (s *Store) ListLedgerEntries(ctx context.Context, run dbpg.Runner, paymentID string) ([]model.LedgerEntry, error) {
	ctx = ensureContext(ctx)

	rows, err := run.Query(ctx, `
		SELECT id, payment_id, account_id, entry_type, amount_minor, currency,
		       balance_after_minor, created_at
		FROM ledger_entries
		WHERE payment_id = $1
		ORDER BY created_at ASC
	`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.PaymentID, &e.AccountID, &e.EntryType,
			&e.AmountMinor, &e.Currency, &e.BalanceAfterMinor, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
