package postgres

import (
	"context"
	"time"

	dbpg "github.com/vortex-fintech/payments-ledger/internal/storage/pgx"
	"github.com/vortex-fintech/payments-ledger/internal/model"
)

// ClaimIdempotencyKey inserts a PENDING record for key if absent, or replaces
// an expired one in place, in a single statement so two concurrent attempts
// on the same key can't both believe they claimed it. If a non-expired row
// already exists, claimed is false and rec holds it so the caller can branch
// on its status (COMPLETED → replay snapshot, FAILED → replay decline,
// PENDING → transient conflict).
func (s *Store) ClaimIdempotencyKey(ctx context.Context, run dbpg.Runner, key string, ttl time.Duration) (rec *model.IdempotencyRecord, claimed bool, err error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	var paymentID *string
	var out model.IdempotencyRecord
	err = run.QueryRow(ctx, `
		INSERT INTO idempotency_keys (key, status, created_at, expires_at)
		VALUES ($1, 'PENDING', $2, $3)
		ON CONFLICT (key) DO UPDATE
		   SET status = 'PENDING',
		       payment_id = NULL,
		       response_snapshot = NULL,
		       created_at = $2,
		       expires_at = $3
		 WHERE idempotency_keys.expires_at <= $2
		RETURNING key, payment_id, response_snapshot, status, created_at, expires_at
	`, key, now, expiresAt).Scan(&out.Key, &paymentID, &out.ResponseSnapshot, &out.Status, &out.CreatedAt, &out.ExpiresAt)
	if err == nil {
		if paymentID != nil {
			out.PaymentID = *paymentID
		}
		out.CreatedAt = normalizeUTC(out.CreatedAt)
		out.ExpiresAt = normalizeUTC(out.ExpiresAt)
		return &out, true, nil
	}
	if scanErr(err) != ErrNotFound {
		return nil, false, err
	}

	// The WHERE guard rejected the update: a non-expired row already exists.
	existing, getErr := s.getIdempotencyKey(ctx, run, key)
	if getErr != nil {
		return nil, false, getErr
	}
	return existing, false, nil
}

func (s *Store) getIdempotencyKey(ctx context.Context, run dbpg.Runner, key string) (*model.IdempotencyRecord, error) {
	var rec model.IdempotencyRecord
	var paymentID *string
	err := run.QueryRow(ctx, `
		SELECT key, payment_id, response_snapshot, status, created_at, expires_at
		FROM idempotency_keys
		WHERE key = $1
	`, key).Scan(&rec.Key, &paymentID, &rec.ResponseSnapshot, &rec.Status, &rec.CreatedAt, &rec.ExpiresAt)
	if err != nil {
		return nil, scanErr(err)
	}
	if paymentID != nil {
		rec.PaymentID = *paymentID
	}
	rec.CreatedAt = normalizeUTC(rec.CreatedAt)
	rec.ExpiresAt = normalizeUTC(rec.ExpiresAt)
	return &rec, nil
}

// CompleteIdempotencyKey transitions a PENDING record to a terminal status,
// attaching the payment id and an opaque response snapshot to replay on a
// future duplicate. Only one PENDING→terminal transition may succeed.
func (s *Store) CompleteIdempotencyKey(ctx context.Context, run dbpg.Runner, key, paymentID string, status model.IdempotencyStatus, snapshot []byte) error {
	ctx = ensureContext(ctx)

	_, err := run.Exec(ctx, `
		UPDATE idempotency_keys
		SET status = $1, payment_id = $2, response_snapshot = $3
		WHERE key = $4 AND status = 'PENDING'
	`, status, paymentID, snapshot, key)
	return err
}
