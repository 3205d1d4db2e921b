package pgsql

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

// PaymentRepository implements ports.PaymentWriter. Data is the raw
// gateway payload (charge or error); stored as jsonb, round-tripped
// through encoding/json since domain.Payment.Data is typed any.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

var _ ports.PaymentWriter = (*PaymentRepository)(nil)

func (r *PaymentRepository) InsertPayment(ctx context.Context, p *domain.Payment) error {
	data, err := json.Marshal(p.Data)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode payment data for "+p.ID, err)
	}
	_, err = q(ctx, r.pool).Exec(ctx, `
		INSERT INTO payments (id, transaction_id, payment_resource, data, is_micro, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`, p.ID, p.TransactionID, p.PaymentResource, data, p.Options.IsMicro, p.CreatedAt, p.CreatedBy, p.LastUpdatedAt, p.LastUpdatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert payment "+p.ID, err)
	}
	return nil
}

func (r *PaymentRepository) UpdatePaymentSuccess(ctx context.Context, paymentID, paymentResource string, data any, isMicro bool) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode payment data for "+paymentID, err)
	}
	cmd, err := q(ctx, r.pool).Exec(ctx, `
		UPDATE payments SET payment_resource = $2, data = $3, is_micro = $4, last_updated_at = now() WHERE id = $1;
	`, paymentID, paymentResource, encoded, isMicro)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update payment success for "+paymentID, err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("payment " + paymentID + " not found")
	}
	return nil
}

func (r *PaymentRepository) UpdatePaymentFailure(ctx context.Context, paymentID string, errData any) error {
	encoded, err := json.Marshal(errData)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode payment error data for "+paymentID, err)
	}
	cmd, err := q(ctx, r.pool).Exec(ctx, `
		UPDATE payments SET data = $2, last_updated_at = now() WHERE id = $1;
	`, paymentID, encoded)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update payment failure for "+paymentID, err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("payment " + paymentID + " not found")
	}
	return nil
}

func (r *PaymentRepository) FindPaymentByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	var p domain.Payment
	var data []byte
	err := q(ctx, r.pool).QueryRow(ctx, `
		SELECT id, transaction_id, payment_resource, data, is_micro, created_at, created_by, last_updated_at, last_updated_by
		FROM payments WHERE transaction_id = $1;
	`, transactionID).Scan(&p.ID, &p.TransactionID, &p.PaymentResource, &data, &p.Options.IsMicro,
		&p.CreatedAt, &p.CreatedBy, &p.LastUpdatedAt, &p.LastUpdatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("no payment for transaction " + transactionID)
		}
		return nil, apperrors.NewAppError(500, "failed to find payment for transaction "+transactionID, err)
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, apperrors.NewAppError(500, "failed to decode payment data for "+p.ID, err)
	}
	p.Data = decoded
	return &p, nil
}
