// Package portstest provides testify-mock implementations of the core
// ports interfaces: every method calls m.Called(...) and type-asserts the
// stubbed return.
package portstest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

type MockTxManager struct{ mock.Mock }

func (m *MockTxManager) Begin(ctx context.Context, iso ports.IsoLevel) (context.Context, ports.DBTx, error) {
	args := m.Called(ctx, iso)
	var tx ports.DBTx
	if args.Get(1) != nil {
		tx = args.Get(1).(ports.DBTx)
	}
	retCtx, _ := args.Get(0).(context.Context)
	if retCtx == nil {
		retCtx = ctx
	}
	return retCtx, tx, args.Error(2)
}

type MockDBTx struct{ mock.Mock }

func (m *MockDBTx) Commit(ctx context.Context) error   { return m.Called(ctx).Error(0) }
func (m *MockDBTx) Rollback(ctx context.Context) error { return m.Called(ctx).Error(0) }

type MockTripRepo struct{ mock.Mock }

func (m *MockTripRepo) FindTripForBooking(ctx context.Context, tripID string, forUpdate bool) (*domain.Trip, error) {
	args := m.Called(ctx, tripID, forUpdate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trip), args.Error(1)
}

func (m *MockTripRepo) FindRouteByID(ctx context.Context, routeID string) (*domain.Route, error) {
	args := m.Called(ctx, routeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Route), args.Error(1)
}

func (m *MockTripRepo) FindTransportCompanyByID(ctx context.Context, companyID string) (*domain.TransportCompany, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransportCompany), args.Error(1)
}

func (m *MockTripRepo) NextUpcomingTripByTag(ctx context.Context, tag string) (*domain.Trip, error) {
	args := m.Called(ctx, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trip), args.Error(1)
}

func (m *MockTripRepo) DecrementSeatsAvailable(ctx context.Context, tripID string, n int) error {
	return m.Called(ctx, tripID, n).Error(0)
}

func (m *MockTripRepo) IncrementSeatsAvailable(ctx context.Context, tripID string, n int) error {
	return m.Called(ctx, tripID, n).Error(0)
}

type MockTicketRepo struct{ mock.Mock }

func (m *MockTicketRepo) FindTicketByID(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepo) FindActiveTicketForUserTrip(ctx context.Context, userID, tripID, excludeTicketID string) (*domain.Ticket, error) {
	args := m.Called(ctx, userID, tripID, excludeTicketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepo) InsertPendingTicket(ctx context.Context, t *domain.Ticket) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTicketRepo) UpdateTicketStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error {
	return m.Called(ctx, ticketID, status).Error(0)
}

func (m *MockTicketRepo) UpdateTicketDiscount(ctx context.Context, ticketID string, discountValue string) error {
	return m.Called(ctx, ticketID, discountValue).Error(0)
}

func (m *MockTicketRepo) UpdateTicketRefund(ctx context.Context, ticketID string, status domain.TicketStatus, refundedTransactionID string) error {
	return m.Called(ctx, ticketID, status, refundedTransactionID).Error(0)
}

type MockRoutePassRepo struct{ mock.Mock }

func (m *MockRoutePassRepo) FindRoutePassByID(ctx context.Context, id string) (*domain.RoutePass, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoutePass), args.Error(1)
}

func (m *MockRoutePassRepo) FindRedeemableRoutePasses(ctx context.Context, userID, tag, companyID string, limit int) ([]*domain.RoutePass, error) {
	args := m.Called(ctx, userID, tag, companyID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RoutePass), args.Error(1)
}

func (m *MockRoutePassRepo) InsertRoutePass(ctx context.Context, p *domain.RoutePass) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockRoutePassRepo) UpdateRoutePassStatus(ctx context.Context, id string, status domain.RoutePassStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockRoutePassRepo) UpdateRoutePassDiscount(ctx context.Context, id string, discountValue string) error {
	return m.Called(ctx, id, discountValue).Error(0)
}

func (m *MockRoutePassRepo) UpdateRoutePassRefund(ctx context.Context, id string, status domain.RoutePassStatus, refundedTransactionID string) error {
	return m.Called(ctx, id, status, refundedTransactionID).Error(0)
}

type MockTransactionRepo struct{ mock.Mock }

func (m *MockTransactionRepo) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockTransactionRepo) UpdateTransactionCommitted(ctx context.Context, transactionID string, committed bool) error {
	return m.Called(ctx, transactionID, committed).Error(0)
}

func (m *MockTransactionRepo) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) FindTicketSaleTransaction(ctx context.Context, ticketID string) (*domain.Transaction, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) FindRoutePassPurchaseTransaction(ctx context.Context, routePassID string) (*domain.Transaction, error) {
	args := m.Called(ctx, routePassID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

type MockPaymentRepo struct{ mock.Mock }

func (m *MockPaymentRepo) InsertPayment(ctx context.Context, p *domain.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPaymentRepo) UpdatePaymentSuccess(ctx context.Context, paymentID, paymentResource string, data any, isMicro bool) error {
	return m.Called(ctx, paymentID, paymentResource, data, isMicro).Error(0)
}

func (m *MockPaymentRepo) UpdatePaymentFailure(ctx context.Context, paymentID string, errData any) error {
	return m.Called(ctx, paymentID, errData).Error(0)
}

func (m *MockPaymentRepo) FindPaymentByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

type MockAuthCollaborator struct{ mock.Mock }

func (m *MockAuthCollaborator) AssertAdminRole(ctx context.Context, creds domain.Credentials, action, companyID string) error {
	return m.Called(ctx, creds, action, companyID).Error(0)
}

// MockLocker stubs ports.Locker. Tests typically return a no-op release
// func so the workflow under test proceeds as if the lock were held.
type MockLocker struct{ mock.Mock }

func (m *MockLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	args := m.Called(ctx, key)
	var release func(context.Context) error
	if args.Get(0) != nil {
		release = args.Get(0).(func(context.Context) error)
	}
	return release, args.Error(1)
}

// NoopRelease is a release func that does nothing, for stubbing
// MockLocker.Lock's first return value.
func NoopRelease(context.Context) error { return nil }

type MockOutboxWriter struct{ mock.Mock }

func (m *MockOutboxWriter) Record(ctx context.Context, topic, key string, payload any) error {
	return m.Called(ctx, topic, key, payload).Error(0)
}

type MockPromoRuleEngine struct{ mock.Mock }

func (m *MockPromoRuleEngine) Evaluate(ctx context.Context, promoCode string, scope ports.PromoScope, outstanding []ports.PromoLine) ([]ports.PromoAllocation, error) {
	args := m.Called(ctx, promoCode, scope, outstanding)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.PromoAllocation), args.Error(1)
}

// NewRepositoryProvider assembles a RepositoryProvider out of the mocks
// above, for tests that only need a handful of them to respond and can
// leave the rest nil (callers must not exercise the unstubbed paths).
func NewRepositoryProvider(tx ports.TxManager, trips *MockTripRepo, tickets *MockTicketRepo, passes *MockRoutePassRepo, txns *MockTransactionRepo, payments *MockPaymentRepo) *ports.RepositoryProvider {
	rp := &ports.RepositoryProvider{
		Tx:         tx,
		Trips:      trips,
		TripWrites: trips,
		Payments:   payments,
	}
	if tickets != nil {
		rp.Tickets = tickets
	}
	if passes != nil {
		rp.RoutePasses = passes
	}
	if txns != nil {
		rp.Transactions = txns
	}
	return rp
}
