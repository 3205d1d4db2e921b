package pgsql

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
)

// ReportingRepository implements ports.ReportingRepository as two
// read-only projections over the tables tickets/route-passes already
// write: a per-trip manifest and a per-user route-pass ledger.
type ReportingRepository struct {
	pool *pgxpool.Pool
}

func NewReportingRepository(pool *pgxpool.Pool) *ReportingRepository {
	return &ReportingRepository{pool: pool}
}

// TripManifest returns every ticket booked against tripID, in any status,
// alongside the trip's current seat count.
func (r *ReportingRepository) TripManifest(ctx context.Context, tripID string) (*ports.TripManifest, error) {
	var seatsAvailable int
	err := r.pool.QueryRow(ctx, `SELECT seats_available FROM trips WHERE id = $1;`, tripID).Scan(&seatsAvailable)
	if err != nil {
		return nil, apperrors.NewNotFoundError("trip " + tripID + " not found")
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, board_stop_id, alight_stop_id, status
		FROM tickets
		WHERE trip_id = $1
		ORDER BY created_at ASC;
	`, tripID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query trip manifest", err)
	}
	defer rows.Close()

	manifest := &ports.TripManifest{TripID: tripID, SeatsAvailable: seatsAvailable}
	for rows.Next() {
		var entry ports.ManifestEntry
		if err := rows.Scan(&entry.TicketID, &entry.UserID, &entry.BoardStopID, &entry.AlightStopID, &entry.Status); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan manifest entry", err)
		}
		manifest.Entries = append(manifest.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating manifest entries", err)
	}
	return manifest, nil
}

// AccountLedger returns every route pass userID holds, optionally scoped
// to a single company, with each pass's outstanding balance against its
// purchase price.
func (r *ReportingRepository) AccountLedger(ctx context.Context, userID, companyID string) (*ports.AccountLedger, error) {
	query := `
		SELECT id, tag, status, price, discount_value
		FROM route_passes
		WHERE user_id = $1 AND ($2 = '' OR company_id = $2)
		ORDER BY created_at ASC;
	`
	rows, err := r.pool.Query(ctx, query, userID, companyID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query account ledger", err)
	}
	defer rows.Close()

	ledger := &ports.AccountLedger{UserID: userID}
	for rows.Next() {
		var entry ports.AccountLedgerEntry
		if err := rows.Scan(&entry.RoutePassID, &entry.Tag, &entry.Status, &entry.Price, &entry.DiscountValue); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan account ledger entry", err)
		}
		entry.OutstandingBalance = entry.Price.Sub(entry.DiscountValue)
		if entry.OutstandingBalance.IsNegative() {
			entry.OutstandingBalance = decimal.Zero
		}
		ledger.Entries = append(ledger.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating account ledger entries", err)
	}
	return ledger, nil
}
