// Package outbox records "gateway call dispatched" events, on the caller's
// database transaction when ctx carries one, so a process crash
// between a completed gateway call and its persisted result is detectable
// and replayable on retry. Publishing runs out-of-band via
// internal/platform/reconcile's polling loop.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/platform/dbctx"
)

// Status is the lifecycle of an outbox message.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Topic names the two Kafka topics this engine dispatches to.
const (
	TopicChargeDispatched = "payments.charge.dispatched"
	TopicRefundDispatched = "payments.refund.dispatched"
)

// Message is one recorded dispatch of a gateway call.
type Message struct {
	ID         string
	Topic      string
	Key        string // idempotency key, doubles as the Kafka partition key
	Payload    []byte
	Status     Status
	RetryCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ChargeDispatched and RefundDispatched are the two event payloads this
// engine emits: one per gateway call a workflow makes.
type ChargeDispatched struct {
	TransactionID  string    `json:"transactionId"`
	IdempotencyKey string    `json:"idempotencyKey"`
	AmountCents    int64     `json:"amountCents"`
	DispatchedAt   time.Time `json:"dispatchedAt"`
}

type RefundDispatched struct {
	TransactionID  string    `json:"transactionId"`
	ChargeID       string    `json:"chargeId"`
	IdempotencyKey string    `json:"idempotencyKey"`
	AmountCents    int64     `json:"amountCents"`
	DispatchedAt   time.Time `json:"dispatchedAt"`
}

// Repository persists and queries outbox messages. Record writes inside
// the DB transaction carried by ctx, or against the pool when there is
// none; reads (for the reconciler) run against the pool directly.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ ports.OutboxWriter = (*Repository)(nil)

// Record inserts a pending outbox message, writing through the
// transaction carried on ctx (via dbctx) when the caller is inside one, so
// the message commits or rolls back with the booking/refund that
// triggered it; otherwise it writes directly against the pool.
func (r *Repository) Record(ctx context.Context, topic, key string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding outbox payload: %w", err)
	}
	now := time.Now()
	id := uuid.NewString()

	query := `
		INSERT INTO outbox_messages (id, topic, message_key, payload, status, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	args := []any{id, topic, key, encoded, StatusPending, 0, now, now}

	if tx, ok := dbctx.TxFromContext(ctx); ok {
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return apperrors.NewAppError(500, "failed to record outbox message", err)
		}
		return nil
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return apperrors.NewAppError(500, "failed to record outbox message", err)
	}
	return nil
}

// PendingMessages returns up to limit messages in status PENDING, oldest
// first.
func (r *Repository) PendingMessages(ctx context.Context, limit int) ([]*Message, error) {
	query := `
		SELECT id, topic, message_key, payload, status, retry_count, created_at, updated_at
		FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2;
	`
	rows, err := r.pool.Query(ctx, query, StatusPending, limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query pending outbox messages", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.Topic, &m.Key, &m.Payload, &m.Status, &m.RetryCount, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan outbox message", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating outbox messages", err)
	}
	return messages, nil
}

// MarkSent transitions a message to SENT.
func (r *Repository) MarkSent(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE outbox_messages SET status = $2, updated_at = now() WHERE id = $1;`, id, StatusSent)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark outbox message sent", err)
	}
	return nil
}

// IncrementRetry bumps retry_count by one.
func (r *Repository) IncrementRetry(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE outbox_messages SET retry_count = retry_count + 1, updated_at = now() WHERE id = $1;`, id)
	if err != nil {
		return apperrors.NewAppError(500, "failed to increment outbox retry count", err)
	}
	return nil
}

// MarkFailed transitions a message to FAILED, terminal until manually
// requeued.
func (r *Repository) MarkFailed(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE outbox_messages SET status = $2, retry_count = retry_count + 1, updated_at = now() WHERE id = $1;`, id, StatusFailed)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark outbox message failed", err)
	}
	return nil
}
