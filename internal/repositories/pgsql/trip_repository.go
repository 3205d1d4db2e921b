package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

// TripRepository implements ports.TripReader and ports.TripWriter.
type TripRepository struct {
	pool *pgxpool.Pool
}

func NewTripRepository(pool *pgxpool.Pool) *TripRepository {
	return &TripRepository{pool: pool}
}

var _ ports.TripReader = (*TripRepository)(nil)
var _ ports.TripWriter = (*TripRepository)(nil)

// FindTripForBooking loads a Trip and its stops, optionally locking the
// trip row FOR UPDATE so two concurrent sales can't both decrement the
// same seat.
func (r *TripRepository) FindTripForBooking(ctx context.Context, tripID string, forUpdate bool) (*domain.Trip, error) {
	query := `
		SELECT id, route_id, transport_company_id, is_running, seats_available, price, booking_window_type, booking_window_size
		FROM trips
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}
	query += ";"

	var t domain.Trip
	var windowType string
	var windowSizeSeconds int64
	err := q(ctx, r.pool).QueryRow(ctx, query, tripID).Scan(
		&t.ID, &t.RouteID, &t.TransportCompanyID, &t.IsRunning, &t.SeatsAvailable, &t.Price, &windowType, &windowSizeSeconds,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("trip " + tripID + " not found")
		}
		return nil, apperrors.NewAppError(500, "failed to find trip "+tripID, err)
	}
	t.BookingInfo = domain.BookingInfo{
		WindowType: domain.BookingWindowType(windowType),
		WindowSize: time.Duration(windowSizeSeconds) * time.Second,
	}

	stops, err := r.findStops(ctx, tripID)
	if err != nil {
		return nil, err
	}
	t.Stops = stops
	return &t, nil
}

func (r *TripRepository) findStops(ctx context.Context, tripID string) ([]domain.TripStop, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `SELECT id, trip_id, stop_time FROM trip_stops WHERE trip_id = $1 ORDER BY stop_time ASC;`, tripID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query trip stops for "+tripID, err)
	}
	defer rows.Close()

	var stops []domain.TripStop
	for rows.Next() {
		var s domain.TripStop
		if err := rows.Scan(&s.ID, &s.TripID, &s.Time); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan trip stop", err)
		}
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating trip stops", err)
	}
	return stops, nil
}

func (r *TripRepository) FindRouteByID(ctx context.Context, routeID string) (*domain.Route, error) {
	var rt domain.Route
	err := q(ctx, r.pool).QueryRow(ctx, `SELECT id, transport_company_id, tags FROM routes WHERE id = $1;`, routeID).
		Scan(&rt.ID, &rt.TransportCompanyID, &rt.Tags)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("route " + routeID + " not found")
		}
		return nil, apperrors.NewAppError(500, "failed to find route "+routeID, err)
	}
	return &rt, nil
}

func (r *TripRepository) FindTransportCompanyByID(ctx context.Context, companyID string) (*domain.TransportCompany, error) {
	var c domain.TransportCompany
	err := q(ctx, r.pool).QueryRow(ctx, `
		SELECT id, name, sms_op_code, client_merchant_id, sandbox_merchant_id
		FROM transport_companies WHERE id = $1;
	`, companyID).Scan(&c.ID, &c.Name, &c.SmsOpCode, &c.ClientMerchantID, &c.SandboxMerchantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("transport company " + companyID + " not found")
		}
		return nil, apperrors.NewAppError(500, "failed to find transport company "+companyID, err)
	}
	return &c, nil
}

// NextUpcomingTripByTag finds the running trip with the soonest stop still
// in the future whose route carries tag, deriving a route pass's price from
// live trip pricing rather than a stored snapshot.
func (r *TripRepository) NextUpcomingTripByTag(ctx context.Context, tag string) (*domain.Trip, error) {
	query := `
		SELECT t.id
		FROM trips t
		JOIN routes rt ON rt.id = t.route_id
		JOIN trip_stops ts ON ts.trip_id = t.id
		WHERE t.is_running = TRUE AND rt.tags @> ARRAY[$1]::text[] AND ts.stop_time > now()
		GROUP BY t.id
		ORDER BY MIN(ts.stop_time) ASC
		LIMIT 1;
	`
	var tripID string
	err := q(ctx, r.pool).QueryRow(ctx, query, tag).Scan(&tripID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("no upcoming trip for tag " + tag)
		}
		return nil, apperrors.NewAppError(500, "failed to find next trip for tag "+tag, err)
	}
	return r.FindTripForBooking(ctx, tripID, false)
}

func (r *TripRepository) DecrementSeatsAvailable(ctx context.Context, tripID string, n int) error {
	cmd, err := q(ctx, r.pool).Exec(ctx, `UPDATE trips SET seats_available = seats_available - $2 WHERE id = $1 AND seats_available >= $2;`, tripID, n)
	if err != nil {
		return apperrors.NewAppError(500, "failed to decrement seats for trip "+tripID, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: insufficient seats available on trip %s", apperrors.ErrConflict, tripID)
	}
	return nil
}

func (r *TripRepository) IncrementSeatsAvailable(ctx context.Context, tripID string, n int) error {
	_, err := q(ctx, r.pool).Exec(ctx, `UPDATE trips SET seats_available = seats_available + $2 WHERE id = $1;`, tripID, n)
	if err != nil {
		return apperrors.NewAppError(500, "failed to increment seats for trip "+tripID, err)
	}
	return nil
}
