package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marwanAmeen/beeline-server/internal/core/ports"
)

// NewRepositoryProvider wires every pgx-backed repository into one
// ports.RepositoryProvider.
func NewRepositoryProvider(pool *pgxpool.Pool) *ports.RepositoryProvider {
	tickets := NewTicketRepository(pool)
	routePasses := NewRoutePassRepository(pool)
	transactions := NewTransactionRepository(pool)

	return &ports.RepositoryProvider{
		Tx:           NewTxManager(pool),
		Trips:        NewTripRepository(pool),
		TripWrites:   NewTripRepository(pool),
		Tickets:      tickets,
		RoutePasses:  routePasses,
		Transactions: transactions,
		Payments:     NewPaymentRepository(pool),
		Reporting:    NewReportingRepository(pool),
	}
}
