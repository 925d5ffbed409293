package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Vidhub/internal/domain/outbox"
)

var _ outbox.Repository = (*OutboxRepo)(nil)

// OutboxRepo stores session events next to the user rows they describe.
type OutboxRepo struct{ db *DB }

func NewOutboxRepo(db *DB) *OutboxRepo { return &OutboxRepo{db: db} }

const (
	qOutboxInsert = `
INSERT INTO outbox (idempotency_key, kind, data, traceparent, tracestate, baggage)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (idempotency_key) DO NOTHING`

	// Rows left IN_PROGRESS longer than $2 belong to a crashed relay and are taken again.
	qOutboxClaim = `
UPDATE outbox o
SET status = 'IN_PROGRESS', updated_at = now()
FROM (
    SELECT idempotency_key
    FROM outbox
    WHERE status = 'CREATED'
       OR (status = 'IN_PROGRESS' AND updated_at < now() - $2::interval)
    ORDER BY created_at
    LIMIT $1
    FOR UPDATE SKIP LOCKED
) picked
WHERE o.idempotency_key = picked.idempotency_key
RETURNING o.idempotency_key, o.kind, o.data, o.status, o.created_at, o.updated_at,
          o.traceparent, o.tracestate, o.baggage`

	qOutboxDone = `
UPDATE outbox SET status = 'SUCCESS', updated_at = now()
WHERE idempotency_key = ANY($1)`
)

type outboxRow struct {
	IdempotencyKey string    `db:"idempotency_key"`
	Kind           int       `db:"kind"`
	Data           []byte    `db:"data"`
	Status         string    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
	Traceparent    string    `db:"traceparent"`
	Tracestate     string    `db:"tracestate"`
	Baggage        string    `db:"baggage"`
}

func (r outboxRow) message() outbox.Message {
	return outbox.Message{
		IdempotencyKey: r.IdempotencyKey,
		Kind:           outbox.Kind(r.Kind),
		Data:           r.Data,
		Status:         outbox.Status(r.Status),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Traceparent:    r.Traceparent,
		Tracestate:     r.Tracestate,
		Baggage:        r.Baggage,
	}
}

// Enqueue joins the transaction in ctx, so the event commits together with the
// refresh state change it describes.
func (r *OutboxRepo) Enqueue(ctx context.Context, m outbox.Message) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qOutboxInsert,
		m.IdempotencyKey, int(m.Kind), m.Data, m.Traceparent, m.Tracestate, m.Baggage,
	); err != nil {
		return mapErr("outbox enqueue", err)
	}
	return nil
}

// PickBatch claims up to batch messages for the caller. Concurrent relays never receive the same row.
func (r *OutboxRepo) PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]outbox.Message, error) {
	if batch <= 0 {
		return nil, errors.New("outbox: batch must be positive")
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qOutboxClaim, batch, inProgressTTL)
	if err != nil {
		return nil, mapErr("outbox claim", err)
	}
	claimed, err := pgx.CollectRows(rows, pgx.RowToStructByName[outboxRow])
	if err != nil {
		return nil, fmt.Errorf("outbox scan: %w", err)
	}

	out := make([]outbox.Message, 0, len(claimed))
	for _, row := range claimed {
		out = append(out, row.message())
	}
	return out, nil
}

func (r *OutboxRepo) MarkSuccess(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qOutboxDone, keys); err != nil {
		return mapErr("outbox mark success", err)
	}
	return nil
}
