package checks_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/marwanAmeen/beeline-server/internal/core/checks"
	"github.com/marwanAmeen/beeline-server/internal/core/ledger"
	"github.com/marwanAmeen/beeline-server/internal/core/ports/portstest"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

func buildWithTrip(trip *domain.Trip, ticket *domain.Ticket) *ledger.Builder {
	b := ledger.New(domain.Creator{Scope: domain.ScopeUser, ID: ticket.UserID}, true, false, "")
	b.TripsByID[trip.ID] = trip
	b.TicketsTouched()[ticket.ID] = ticket
	b.AppendItem(domain.NewCredit(domain.ItemTicketSale, trip.Price, ticket.ID, ""))
	return b
}

func TestRun_RejectsNonRunningTrip(t *testing.T) {
	ctx := context.Background()
	trip := &domain.Trip{ID: "trip-a", IsRunning: false, TransportCompanyID: "co-1"}
	ticket := &domain.Ticket{ID: "t1", UserID: "u1", TripID: "trip-a"}
	b := buildWithTrip(trip, ticket)

	err := checks.Run(ctx, portstest.NewRepositoryProvider(nil, new(portstest.MockTripRepo), new(portstest.MockTicketRepo), nil, nil, nil), b, checks.DefaultOptions())
	assert.Error(t, err)
}

func TestRun_RejectsInvalidStops(t *testing.T) {
	ctx := context.Background()
	trip := &domain.Trip{ID: "trip-a", IsRunning: true, TransportCompanyID: "co-1", Stops: []domain.TripStop{{ID: "s1"}, {ID: "s2"}}}
	ticket := &domain.Ticket{ID: "t1", UserID: "u1", TripID: "trip-a", BoardStopID: "s1", AlightStopID: "nope"}
	b := buildWithTrip(trip, ticket)

	err := checks.Run(ctx, portstest.NewRepositoryProvider(nil, new(portstest.MockTripRepo), new(portstest.MockTicketRepo), nil, nil, nil), b, checks.DefaultOptions())
	assert.Error(t, err)
}

func TestRun_RejectsPastBookingWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	checks.Now = func() time.Time { return now }
	defer func() { checks.Now = time.Now }()

	stopTime := now.Add(-2 * time.Hour)
	trip := &domain.Trip{
		ID: "trip-a", IsRunning: true, TransportCompanyID: "co-1",
		Stops:       []domain.TripStop{{ID: "s1", Time: stopTime}, {ID: "s2", Time: stopTime.Add(time.Hour)}},
		BookingInfo: domain.BookingInfo{WindowType: domain.WindowTypeStop, WindowSize: time.Hour},
	}
	ticket := &domain.Ticket{ID: "t1", UserID: "u1", TripID: "trip-a", BoardStopID: "s1", AlightStopID: "s2"}
	b := buildWithTrip(trip, ticket)

	err := checks.Run(ctx, portstest.NewRepositoryProvider(nil, new(portstest.MockTripRepo), new(portstest.MockTicketRepo), nil, nil, nil), b, checks.DefaultOptions())
	assert.Error(t, err)
}

func TestRun_RejectsDuplicateBooking(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	checks.Now = func() time.Time { return now }
	defer func() { checks.Now = time.Now }()

	trip := &domain.Trip{ID: "trip-a", IsRunning: true, TransportCompanyID: "co-1", Stops: []domain.TripStop{{ID: "s1", Time: now.Add(time.Hour)}, {ID: "s2", Time: now.Add(2 * time.Hour)}}, SeatsAvailable: 5}
	ticket := &domain.Ticket{ID: "t1", UserID: "u1", TripID: "trip-a", BoardStopID: "s1", AlightStopID: "s2"}
	b := buildWithTrip(trip, ticket)

	tickets := new(portstest.MockTicketRepo)
	existing := &domain.Ticket{ID: "existing-ticket", Status: domain.TicketValid}
	tickets.On("FindActiveTicketForUserTrip", ctx, "u1", "trip-a", "t1").Return(existing, nil)

	err := checks.Run(ctx, portstest.NewRepositoryProvider(nil, new(portstest.MockTripRepo), tickets, nil, nil, nil), b, checks.DefaultOptions())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "existing-ticket")
}

func TestRun_RejectsSeatsExhausted(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	checks.Now = func() time.Time { return now }
	defer func() { checks.Now = time.Now }()

	trip := &domain.Trip{ID: "trip-a", IsRunning: true, TransportCompanyID: "co-1", Stops: []domain.TripStop{{ID: "s1", Time: now.Add(time.Hour)}, {ID: "s2", Time: now.Add(2 * time.Hour)}}}
	ticket := &domain.Ticket{ID: "t1", UserID: "u1", TripID: "trip-a", BoardStopID: "s1", AlightStopID: "s2"}
	b := buildWithTrip(trip, ticket)

	tickets := new(portstest.MockTicketRepo)
	tickets.On("FindActiveTicketForUserTrip", ctx, "u1", "trip-a", "t1").Return((*domain.Ticket)(nil), nil)
	trips := new(portstest.MockTripRepo)
	overbooked := &domain.Trip{ID: "trip-a", IsRunning: true, SeatsAvailable: -1}
	trips.On("FindTripForBooking", ctx, "trip-a", true).Return(overbooked, nil)

	err := checks.Run(ctx, portstest.NewRepositoryProvider(nil, trips, tickets, nil, nil, nil), b, checks.DefaultOptions())
	assert.Error(t, err)
	trips.AssertExpectations(t)
}

func TestRun_PassesHappyPath(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	checks.Now = func() time.Time { return now }
	defer func() { checks.Now = time.Now }()

	trip := &domain.Trip{
		ID: "trip-a", IsRunning: true, TransportCompanyID: "co-1", Price: decimal.NewFromInt(5),
		Stops:       []domain.TripStop{{ID: "s1", Time: now.Add(time.Hour)}, {ID: "s2", Time: now.Add(2 * time.Hour)}},
		BookingInfo: domain.BookingInfo{WindowType: domain.WindowTypeStop, WindowSize: 0},
	}
	ticket := &domain.Ticket{ID: "t1", UserID: "u1", TripID: "trip-a", BoardStopID: "s1", AlightStopID: "s2"}
	b := buildWithTrip(trip, ticket)

	tickets := new(portstest.MockTicketRepo)
	tickets.On("FindActiveTicketForUserTrip", ctx, "u1", "trip-a", "t1").Return((*domain.Ticket)(nil), nil)
	trips := new(portstest.MockTripRepo)
	trips.On("FindTripForBooking", ctx, "trip-a", true).Return(trip, nil)

	err := checks.Run(ctx, portstest.NewRepositoryProvider(nil, trips, tickets, nil, nil, nil), b, checks.DefaultOptions())
	assert.NoError(t, err)
}
