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

// RoutePassRepository implements ports.RoutePassReader and
// ports.RoutePassWriter.
type RoutePassRepository struct {
	pool *pgxpool.Pool
}

func NewRoutePassRepository(pool *pgxpool.Pool) *RoutePassRepository {
	return &RoutePassRepository{pool: pool}
}

var _ ports.RoutePassReader = (*RoutePassRepository)(nil)
var _ ports.RoutePassWriter = (*RoutePassRepository)(nil)

const routePassColumns = `id, user_id, company_id, tag, status, price, discount_value, refunded_transaction_id, created_at, created_by, last_updated_at, last_updated_by`

func scanRoutePass(row pgx.Row) (*domain.RoutePass, error) {
	var p domain.RoutePass
	err := row.Scan(
		&p.ID, &p.UserID, &p.CompanyID, &p.Tag, &p.Status,
		&p.Notes.Price, &p.Notes.DiscountValue, &p.Notes.RefundedTransactionID,
		&p.CreatedAt, &p.CreatedBy, &p.LastUpdatedAt, &p.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RoutePassRepository) FindRoutePassByID(ctx context.Context, id string) (*domain.RoutePass, error) {
	row := q(ctx, r.pool).QueryRow(ctx, `SELECT `+routePassColumns+` FROM route_passes WHERE id = $1;`, id)
	p, err := scanRoutePass(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("route pass " + id + " not found")
		}
		return nil, apperrors.NewAppError(500, "failed to find route pass "+id, err)
	}
	return p, nil
}

// FindRedeemableRoutePasses returns valid passes for (userID, tag,
// companyID), oldest first so redemption consumes the longest-held pass.
func (r *RoutePassRepository) FindRedeemableRoutePasses(ctx context.Context, userID, tag, companyID string, limit int) ([]*domain.RoutePass, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT `+routePassColumns+`
		FROM route_passes
		WHERE user_id = $1 AND tag = $2 AND company_id = $3 AND status = $4
		ORDER BY created_at ASC
		LIMIT $5;
	`, userID, tag, companyID, domain.RoutePassValid, limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query redeemable route passes", err)
	}
	defer rows.Close()

	var passes []*domain.RoutePass
	for rows.Next() {
		p, err := scanRoutePass(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan route pass", err)
		}
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating route passes", err)
	}
	return passes, nil
}

func (r *RoutePassRepository) InsertRoutePass(ctx context.Context, p *domain.RoutePass) error {
	_, err := q(ctx, r.pool).Exec(ctx, `
		INSERT INTO route_passes (id, user_id, company_id, tag, status, price, discount_value, refunded_transaction_id, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`, p.ID, p.UserID, p.CompanyID, p.Tag, p.Status, p.Notes.Price, p.Notes.DiscountValue, p.Notes.RefundedTransactionID,
		p.CreatedAt, p.CreatedBy, p.LastUpdatedAt, p.LastUpdatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert route pass "+p.ID, err)
	}
	return nil
}

func (r *RoutePassRepository) UpdateRoutePassStatus(ctx context.Context, id string, status domain.RoutePassStatus) error {
	cmd, err := q(ctx, r.pool).Exec(ctx, `UPDATE route_passes SET status = $2, last_updated_at = now() WHERE id = $1;`, id, status)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update status for route pass "+id, err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("route pass " + id + " not found")
	}
	return nil
}

func (r *RoutePassRepository) UpdateRoutePassDiscount(ctx context.Context, id string, discountValue string) error {
	cmd, err := q(ctx, r.pool).Exec(ctx, `UPDATE route_passes SET discount_value = $2, last_updated_at = now() WHERE id = $1;`, id, discountValue)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update discount for route pass "+id, err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("route pass " + id + " not found")
	}
	return nil
}

func (r *RoutePassRepository) UpdateRoutePassRefund(ctx context.Context, id string, status domain.RoutePassStatus, refundedTransactionID string) error {
	cmd, err := q(ctx, r.pool).Exec(ctx, `
		UPDATE route_passes SET status = $2, refunded_transaction_id = $3, last_updated_at = now() WHERE id = $1;
	`, id, status, refundedTransactionID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update refund for route pass "+id, err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("route pass " + id + " not found")
	}
	return nil
}
