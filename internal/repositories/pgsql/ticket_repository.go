package pgsql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

// TicketRepository implements ports.TicketReader and ports.TicketWriter.
type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

var _ ports.TicketReader = (*TicketRepository)(nil)
var _ ports.TicketWriter = (*TicketRepository)(nil)

const ticketColumns = `id, user_id, trip_id, board_stop_id, alight_stop_id, status, discount_value, refunded_transaction_id, created_at, created_by, last_updated_at, last_updated_by`

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	err := row.Scan(
		&t.ID, &t.UserID, &t.TripID, &t.BoardStopID, &t.AlightStopID, &t.Status,
		&t.Notes.DiscountValue, &t.Notes.RefundedTransactionID,
		&t.CreatedAt, &t.CreatedBy, &t.LastUpdatedAt, &t.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TicketRepository) FindTicketByID(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	row := q(ctx, r.pool).QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1;`, ticketID)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("ticket " + ticketID + " not found")
		}
		return nil, apperrors.NewAppError(500, "failed to find ticket "+ticketID, err)
	}
	return t, nil
}

func (r *TicketRepository) FindActiveTicketForUserTrip(ctx context.Context, userID, tripID, excludeTicketID string) (*domain.Ticket, error) {
	row := q(ctx, r.pool).QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE user_id = $1 AND trip_id = $2 AND status IN ($3, $4) AND id != $5
		ORDER BY created_at ASC
		LIMIT 1;
	`, userID, tripID, domain.TicketValid, domain.TicketPending, excludeTicketID)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewAppError(500, "failed to find active ticket for user "+userID, err)
	}
	return t, nil
}

func (r *TicketRepository) InsertPendingTicket(ctx context.Context, t *domain.Ticket) error {
	_, err := q(ctx, r.pool).Exec(ctx, `
		INSERT INTO tickets (id, user_id, trip_id, board_stop_id, alight_stop_id, status, discount_value, refunded_transaction_id, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`, t.ID, t.UserID, t.TripID, t.BoardStopID, t.AlightStopID, t.Status, t.Notes.DiscountValue, t.Notes.RefundedTransactionID,
		t.CreatedAt, t.CreatedBy, t.LastUpdatedAt, t.LastUpdatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert ticket "+t.ID, err)
	}
	return nil
}

func (r *TicketRepository) UpdateTicketStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error {
	cmd, err := q(ctx, r.pool).Exec(ctx, `UPDATE tickets SET status = $2, last_updated_at = now() WHERE id = $1;`, ticketID, status)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update status for ticket "+ticketID, err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("ticket " + ticketID + " not found")
	}
	return nil
}

func (r *TicketRepository) UpdateTicketDiscount(ctx context.Context, ticketID string, discountValue string) error {
	cmd, err := q(ctx, r.pool).Exec(ctx, `UPDATE tickets SET discount_value = $2, last_updated_at = now() WHERE id = $1;`, ticketID, discountValue)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update discount for ticket "+ticketID, err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("ticket " + ticketID + " not found")
	}
	return nil
}

func (r *TicketRepository) UpdateTicketRefund(ctx context.Context, ticketID string, status domain.TicketStatus, refundedTransactionID string) error {
	cmd, err := q(ctx, r.pool).Exec(ctx, `
		UPDATE tickets SET status = $2, refunded_transaction_id = $3, last_updated_at = now() WHERE id = $1;
	`, ticketID, status, refundedTransactionID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update refund for ticket "+ticketID, err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("ticket " + ticketID + " not found")
	}
	return nil
}
