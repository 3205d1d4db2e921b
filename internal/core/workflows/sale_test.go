package workflows_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/marwanAmeen/beeline-server/internal/core/checks"
	"github.com/marwanAmeen/beeline-server/internal/core/gateway"
	"github.com/marwanAmeen/beeline-server/internal/core/ledger"
	"github.com/marwanAmeen/beeline-server/internal/core/ports/portstest"
	"github.com/marwanAmeen/beeline-server/internal/core/promotion"
	"github.com/marwanAmeen/beeline-server/internal/core/routepass"
	"github.com/marwanAmeen/beeline-server/internal/core/workflows"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

// decliningGateway wraps a MockGateway and always declines Charge, to
// exercise SellTicket's failure path without a real gateway.
type decliningGateway struct {
	*gateway.MockGateway
}

func (d decliningGateway) Charge(ctx context.Context, req gateway.ChargeRequest) (gateway.ChargeResult, error) {
	return gateway.ChargeResult{}, errors.New("card declined")
}

func setupSaleFixture(t *testing.T, g gateway.Gateway) (*workflows.SaleWorkflow, *portstest.MockTicketRepo, *portstest.MockPaymentRepo) {
	ctx := context.Background()
	txm, _ := newTxManager(ctx)
	trips := new(portstest.MockTripRepo)
	tickets := new(portstest.MockTicketRepo)
	txns := new(portstest.MockTransactionRepo)
	payments := new(portstest.MockPaymentRepo)

	trip := &domain.Trip{
		ID:                 "trip-a",
		Price:              d("10.00"),
		TransportCompanyID: "co-1",
		IsRunning:          true,
		SeatsAvailable:     10,
		Stops:              []domain.TripStop{{ID: "stop-a"}, {ID: "stop-b"}},
	}
	trips.On("FindTripForBooking", mock.Anything, "trip-a", true).Return(trip, nil)
	trips.On("FindTransportCompanyByID", mock.Anything, "co-1").Return(&domain.TransportCompany{ID: "co-1", Name: "Downtown Transit", SandboxMerchantID: "acct_sandbox"}, nil)

	tickets.On("InsertPendingTicket", mock.Anything, mock.AnythingOfType("*domain.Ticket")).Return(nil)
	trips.On("DecrementSeatsAvailable", mock.Anything, "trip-a", 1).Return(nil)
	tickets.On("UpdateTicketStatus", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("domain.TicketStatus")).Return(nil)

	txns.On("SaveTransaction", mock.Anything, mock.AnythingOfType("*domain.Transaction")).Return(nil)
	payments.On("InsertPayment", mock.Anything, mock.AnythingOfType("*domain.Payment")).Return(nil)
	payments.On("UpdatePaymentSuccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	payments.On("UpdatePaymentFailure", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	repos := portstest.NewRepositoryProvider(txm, trips, tickets, nil, txns, payments)
	repos.Tx = txm

	locks, outboxWriter := noopLockAndOutbox()
	w := workflows.NewSaleWorkflow(repos, promotion.New(nil), routepass.New(), 0, g, locks, outboxWriter, "test", false)
	return w, tickets, payments
}

func baseSaleInput() workflows.TicketSaleInput {
	return workflows.TicketSaleInput{
		Trips: []ledger.TicketSaleRequest{
			{TripID: "trip-a", UserID: "user-1", BoardStopID: "stop-a", AlightStopID: "stop-b"},
		},
		Checks:     checks.Options{},
		Creator:    domain.Creator{Scope: domain.ScopeUser, ID: "user-1"},
		Type:       domain.TransactionTicketPurchase,
		Committed:  true,
		SessionIat: 1700000000,
	}
}

func TestSellTicket_ChargesGatewayAndRecordsPayment(t *testing.T) {
	ctx := context.Background()
	g := gateway.NewMockGateway(50, 100)
	w, tickets, payments := setupSaleFixture(t, g)

	txn, undo, err := w.SellTicket(ctx, baseSaleInput())
	assert.NoError(t, err)
	assert.NotNil(t, txn)
	assert.NotNil(t, undo)
	assert.True(t, txn.IsZeroSum(domain.ZeroSumTolerance))

	paymentItems := txn.ItemsOfType(domain.ItemPayment)
	assert.Len(t, paymentItems, 1)
	assert.True(t, paymentItems[0].Debit.Equal(d("10.00")))

	payments.AssertCalled(t, "InsertPayment", mock.Anything, mock.AnythingOfType("*domain.Payment"))
	payments.AssertCalled(t, "UpdatePaymentSuccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	tickets.AssertCalled(t, "UpdateTicketStatus", mock.Anything, mock.Anything, domain.TicketValid)
}

func TestSellTicket_GatewayDeclineFailsTicketAndReturnsChargeError(t *testing.T) {
	ctx := context.Background()
	g := decliningGateway{gateway.NewMockGateway(50, 100)}
	w, tickets, payments := setupSaleFixture(t, g)

	_, _, err := w.SellTicket(ctx, baseSaleInput())
	assert.Error(t, err)

	payments.AssertCalled(t, "UpdatePaymentFailure", mock.Anything, mock.Anything, mock.Anything)
	tickets.AssertCalled(t, "UpdateTicketStatus", mock.Anything, mock.Anything, domain.TicketFailed)
}
