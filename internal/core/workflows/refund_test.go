package workflows_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/marwanAmeen/beeline-server/internal/core/gateway"
	"github.com/marwanAmeen/beeline-server/internal/core/ports/portstest"
	"github.com/marwanAmeen/beeline-server/internal/core/workflows"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

// noopLockAndOutbox stubs the Locker/OutboxWriter collaborators for tests
// that only care about refund logic, not locking or dispatch recording.
func noopLockAndOutbox() (*portstest.MockLocker, *portstest.MockOutboxWriter) {
	locks := new(portstest.MockLocker)
	locks.On("Lock", mock.Anything, mock.Anything).Return(portstest.NoopRelease, nil)
	outboxWriter := new(portstest.MockOutboxWriter)
	outboxWriter.On("Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	return locks, outboxWriter
}

func setupTicketRefundFixture(t *testing.T, g gateway.Gateway, saleCredit, discount decimal.Decimal) (*workflows.RefundWorkflow, *portstest.MockTicketRepo, *portstest.MockTransactionRepo, *portstest.MockPaymentRepo, *portstest.MockAuthCollaborator) {
	ctx := context.Background()
	txm, _ := newTxManager(ctx)
	tickets := new(portstest.MockTicketRepo)
	txns := new(portstest.MockTransactionRepo)
	payments := new(portstest.MockPaymentRepo)
	auth := new(portstest.MockAuthCollaborator)

	ticket := &domain.Ticket{ID: "tkt-1", Status: domain.TicketValid, Notes: domain.TicketNotes{DiscountValue: discount}}
	tickets.On("FindTicketByID", ctx, "tkt-1").Return(ticket, nil)

	saleTxn := &domain.Transaction{
		ID: "sale-tx-1",
		Items: []domain.TransactionItem{
			domain.NewCredit(domain.ItemTicketSale, saleCredit, "tkt-1", ""),
		},
	}
	txns.On("FindTicketSaleTransaction", ctx, "tkt-1").Return(saleTxn, nil)
	txns.On("SaveTransaction", ctx, mock.AnythingOfType("*domain.Transaction")).Return(nil)

	charge, err := g.Charge(ctx, gateway.ChargeRequest{Value: saleCredit, Source: "card_local", IdempotencyKey: "instance=test,bookingId=sale-tx-1,session=1"})
	assert.NoError(t, err)
	payment := &domain.Payment{ID: "pay-1", TransactionID: "sale-tx-1", PaymentResource: charge.ID}
	payments.On("FindPaymentByTransactionID", ctx, "sale-tx-1").Return(payment, nil)

	auth.On("AssertAdminRole", ctx, mock.Anything, "refundTicket", "co-1").Return(nil)
	tickets.On("UpdateTicketRefund", ctx, "tkt-1", domain.TicketRefunded, mock.AnythingOfType("string")).Return(nil)

	repos := portstest.NewRepositoryProvider(txm, nil, tickets, nil, txns, payments)
	repos.Tx = txm

	locks, outboxWriter := noopLockAndOutbox()

	w := workflows.NewRefundWorkflow(repos, auth, g, "test", locks, outboxWriter)
	return w, tickets, txns, payments, auth
}

func TestRefundTicket_FullRefundSucceeds(t *testing.T) {
	ctx := context.Background()
	g := gateway.NewMockGateway(50, 100)
	w, tickets, txns, _, auth := setupTicketRefundFixture(t, g, decimal.NewFromInt(10), decimal.Zero)

	txn, info, undo, err := w.RefundTicket(ctx, workflows.TicketRefundInput{
		TicketID:     "tkt-1",
		TargetAmount: decimal.NewFromInt(10),
		CompanyID:    "co-1",
		Creator:      domain.Creator{Scope: domain.ScopeAdmin, ID: "admin-1"},
	})
	assert.NoError(t, err)
	assert.NotNil(t, txn)
	assert.NotNil(t, undo)
	assert.True(t, txn.IsZeroSum(domain.ZeroSumTolerance))
	assert.True(t, info.Amount.Equal(decimal.NewFromInt(10)))

	tickets.AssertExpectations(t)
	txns.AssertExpectations(t)
	auth.AssertExpectations(t)
}

func TestRefundTicket_RejectsAmountNotMatchingDiscountedPrice(t *testing.T) {
	ctx := context.Background()
	g := gateway.NewMockGateway(50, 100)
	w, _, _, _, _ := setupTicketRefundFixture(t, g, decimal.NewFromInt(10), decimal.NewFromInt(2))

	_, _, _, err := w.RefundTicket(ctx, workflows.TicketRefundInput{
		TicketID:     "tkt-1",
		TargetAmount: decimal.NewFromInt(10),
		CompanyID:    "co-1",
		Creator:      domain.Creator{Scope: domain.ScopeAdmin, ID: "admin-1"},
	})
	assert.Error(t, err)
}

func TestRefundTicket_RejectsNonRefundableStatus(t *testing.T) {
	ctx := context.Background()
	txm, _ := newTxManager(ctx)
	tickets := new(portstest.MockTicketRepo)
	ticket := &domain.Ticket{ID: "tkt-2", Status: domain.TicketRefunded}
	tickets.On("FindTicketByID", ctx, "tkt-2").Return(ticket, nil)

	repos := portstest.NewRepositoryProvider(txm, nil, tickets, nil, nil, nil)
	repos.Tx = txm

	g := gateway.NewMockGateway(50, 100)
	auth := new(portstest.MockAuthCollaborator)
	locks, outboxWriter := noopLockAndOutbox()
	w := workflows.NewRefundWorkflow(repos, auth, g, "test", locks, outboxWriter)

	_, _, _, err := w.RefundTicket(ctx, workflows.TicketRefundInput{
		TicketID:     "tkt-2",
		TargetAmount: decimal.NewFromInt(10),
		CompanyID:    "co-1",
		Creator:      domain.Creator{Scope: domain.ScopeAdmin, ID: "admin-1"},
	})
	assert.Error(t, err)
}

func TestRefundRoutePass_FullRefundSucceeds(t *testing.T) {
	ctx := context.Background()
	txm, _ := newTxManager(ctx)
	passes := new(portstest.MockRoutePassRepo)
	txns := new(portstest.MockTransactionRepo)
	payments := new(portstest.MockPaymentRepo)
	auth := new(portstest.MockAuthCollaborator)

	pass := &domain.RoutePass{ID: "pass-1", Status: domain.RoutePassValid, Notes: domain.RoutePassNotes{Price: d("4.00")}}
	passes.On("FindRoutePassByID", ctx, "pass-1").Return(pass, nil)

	purchaseTxn := &domain.Transaction{ID: "purchase-tx-1"}
	txns.On("FindRoutePassPurchaseTransaction", ctx, "pass-1").Return(purchaseTxn, nil)
	txns.On("SaveTransaction", ctx, mock.AnythingOfType("*domain.Transaction")).Return(nil)

	g := gateway.NewMockGateway(50, 100)
	charge, err := g.Charge(ctx, gateway.ChargeRequest{Value: d("4.00"), Source: "card_local", IdempotencyKey: "instance=test,bookingId=purchase-tx-1,session=1"})
	assert.NoError(t, err)
	payment := &domain.Payment{ID: "pay-2", TransactionID: "purchase-tx-1", PaymentResource: charge.ID}
	payments.On("FindPaymentByTransactionID", ctx, "purchase-tx-1").Return(payment, nil)

	auth.On("AssertAdminRole", ctx, mock.Anything, "refundRoutePass", "co-1").Return(nil)
	passes.On("UpdateRoutePassRefund", ctx, "pass-1", domain.RoutePassRefunded, mock.AnythingOfType("string")).Return(nil)

	repos := portstest.NewRepositoryProvider(txm, nil, nil, passes, txns, payments)
	repos.Tx = txm

	locks, outboxWriter := noopLockAndOutbox()
	w := workflows.NewRefundWorkflow(repos, auth, g, "test", locks, outboxWriter)
	txn, info, undo, err := w.RefundRoutePass(ctx, workflows.RoutePassRefundInput{
		RoutePassID: "pass-1",
		CompanyID:   "co-1",
		Creator:     domain.Creator{Scope: domain.ScopeAdmin, ID: "admin-1"},
	})
	assert.NoError(t, err)
	assert.NotNil(t, txn)
	assert.NotNil(t, undo)
	assert.True(t, txn.IsZeroSum(domain.ZeroSumTolerance))
	assert.True(t, info.Amount.Equal(d("4.00")))

	passes.AssertExpectations(t)
	txns.AssertExpectations(t)
	auth.AssertExpectations(t)
}

func TestRefundRoutePass_RejectsNonRefundableStatus(t *testing.T) {
	ctx := context.Background()
	txm, _ := newTxManager(ctx)
	passes := new(portstest.MockRoutePassRepo)
	pass := &domain.RoutePass{ID: "pass-2", Status: domain.RoutePassRefunded}
	passes.On("FindRoutePassByID", ctx, "pass-2").Return(pass, nil)

	repos := portstest.NewRepositoryProvider(txm, nil, nil, passes, nil, nil)
	repos.Tx = txm

	g := gateway.NewMockGateway(50, 100)
	auth := new(portstest.MockAuthCollaborator)
	locks, outboxWriter := noopLockAndOutbox()
	w := workflows.NewRefundWorkflow(repos, auth, g, "test", locks, outboxWriter)

	_, _, _, err := w.RefundRoutePass(ctx, workflows.RoutePassRefundInput{
		RoutePassID: "pass-2",
		CompanyID:   "co-1",
		Creator:     domain.Creator{Scope: domain.ScopeAdmin, ID: "admin-1"},
	})
	assert.Error(t, err)
}
