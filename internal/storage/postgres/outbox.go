package postgres

import (
	"context"

	dbpg "github.com/vortex-fintech/payments-ledger/internal/storage/pgx"
	"github.com/vortex-fintech/payments-ledger/internal/model"
)

// InsertOutboxRecord enqueues an event inside the caller's transaction.
func (s *Store) InsertOutboxRecord(ctx context.Context, run dbpg.Runner, rec model.OutboxRecord) error {
	ctx = ensureContext(ctx)

	_, err := run.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at, retry_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, rec.ID, rec.AggregateType, rec.AggregateID, rec.EventType, rec.Payload, rec.CreatedAt, rec.RetryCount)
	return err
}

// ClaimPendingOutboxBatch selects up to limit unpublished rows, oldest first,
// using FOR UPDATE SKIP LOCKED so multiple worker instances can run safely
// against the same table.
func (s *Store) ClaimPendingOutboxBatch(ctx context.Context, run dbpg.Runner, limit int) ([]model.OutboxRecord, error) {
	ctx = ensureContext(ctx)

	rows, err := run.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at, published_at, retry_count
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OutboxRecord
	for rows.Next() {
		var rec model.OutboxRecord
		if err := rows.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType,
			&rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.RetryCount); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkOutboxPublished sets published_at, making the row terminal.
func (s *Store) MarkOutboxPublished(ctx context.Context, run dbpg.Runner, id string) error {
	ctx = ensureContext(ctx)

	_, err := run.Exec(ctx, `
		UPDATE outbox SET published_at = now() WHERE id = $1 AND published_at IS NULL
	`, id)
	return err
}

// IncrementOutboxRetry bumps retry_count after a failed send attempt.
func (s *Store) IncrementOutboxRetry(ctx context.Context, run dbpg.Runner, id string) error {
	ctx = ensureContext(ctx)

	_, err := run.Exec(ctx, `
		UPDATE outbox SET retry_count = retry_count + 1 WHERE id = $1 AND published_at IS NULL
	`, id)
	return err
}

// CountPendingOutbox reports the current backlog depth, for the
// outbox_pending_depth gauge.
func (s *Store) CountPendingOutbox(ctx context.Context, run dbpg.Runner) (int64, error) {
	ctx = ensureContext(ctx)

	var n int64
	err := run.QueryRow(ctx, `SELECT count(*) FROM outbox WHERE published_at IS NULL`).Scan(&n)
	return n, err
}
