package workflows_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/marwanAmeen/beeline-server/internal/core/gateway"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/core/ports/portstest"
	"github.com/marwanAmeen/beeline-server/internal/core/promotion"
	"github.com/marwanAmeen/beeline-server/internal/core/workflows"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newTxManager(ctx context.Context) (*portstest.MockTxManager, *portstest.MockDBTx) {
	txm := new(portstest.MockTxManager)
	tx := new(portstest.MockDBTx)
	txm.On("Begin", ctx, mock.Anything).Return(ctx, tx, nil)
	tx.On("Commit", ctx).Return(nil)
	tx.On("Rollback", ctx).Return(nil)
	return txm, tx
}

func TestPurchaseRoutePass_ByQuantity(t *testing.T) {
	ctx := context.Background()
	txm, _ := newTxManager(ctx)
	trips := new(portstest.MockTripRepo)
	passes := new(portstest.MockRoutePassRepo)
	txns := new(portstest.MockTransactionRepo)
	payments := new(portstest.MockPaymentRepo)

	trips.On("NextUpcomingTripByTag", ctx, "downtown").Return(&domain.Trip{ID: "trip-a", Price: d("4.00")}, nil)
	passes.On("InsertRoutePass", ctx, mock.AnythingOfType("*domain.RoutePass")).Return(nil)
	txns.On("SaveTransaction", ctx, mock.AnythingOfType("*domain.Transaction")).Return(nil)
	trips.On("FindTransportCompanyByID", mock.Anything, "co-1").Return(&domain.TransportCompany{ID: "co-1", Name: "Downtown Transit", SandboxMerchantID: "acct_sandbox"}, nil)
	payments.On("InsertPayment", mock.Anything, mock.AnythingOfType("*domain.Payment")).Return(nil)
	payments.On("UpdatePaymentSuccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	repos := portstest.NewRepositoryProvider(txm, trips, nil, passes, txns, payments)
	repos.Tx = txm

	g := gateway.NewMockGateway(50, 100)
	locks, outboxWriter := noopLockAndOutbox()
	w := workflows.NewRoutePassPurchaseWorkflow(repos, promotion.New(nil), g, locks, outboxWriter, "test", false)
	quantity := 3
	txn, undo, err := w.PurchaseRoutePass(ctx, workflows.RoutePassPurchaseInput{
		UserID:          "user-1",
		Tag:             "downtown",
		CompanyID:       "co-1",
		Quantity:        &quantity,
		TransactionType: domain.TransactionRoutePassPurchase,
		Creator:         domain.Creator{Scope: domain.ScopeUser, ID: "user-1"},
		SessionIat:      1700000000,
	})
	assert.NoError(t, err)
	assert.NotNil(t, txn)
	assert.NotNil(t, undo)

	items := txn.ItemsOfType(domain.ItemRoutePass)
	assert.Len(t, items, 3)
	payment := txn.ItemsOfType(domain.ItemPayment)
	assert.Len(t, payment, 1)
	assert.True(t, payment[0].Debit.Equal(d("12.00")))

	passes.AssertExpectations(t)
	txns.AssertExpectations(t)
}

func TestPurchaseRoutePass_ByValueDerivesQuantity(t *testing.T) {
	ctx := context.Background()
	txm, _ := newTxManager(ctx)
	trips := new(portstest.MockTripRepo)
	passes := new(portstest.MockRoutePassRepo)
	txns := new(portstest.MockTransactionRepo)
	payments := new(portstest.MockPaymentRepo)

	trips.On("NextUpcomingTripByTag", ctx, "downtown").Return(&domain.Trip{ID: "trip-a", Price: d("5.00")}, nil)
	passes.On("InsertRoutePass", ctx, mock.AnythingOfType("*domain.RoutePass")).Return(nil)
	txns.On("SaveTransaction", ctx, mock.AnythingOfType("*domain.Transaction")).Return(nil)
	trips.On("FindTransportCompanyByID", mock.Anything, "co-1").Return(&domain.TransportCompany{ID: "co-1", Name: "Downtown Transit", SandboxMerchantID: "acct_sandbox"}, nil)
	payments.On("InsertPayment", mock.Anything, mock.AnythingOfType("*domain.Payment")).Return(nil)
	payments.On("UpdatePaymentSuccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	repos := portstest.NewRepositoryProvider(txm, trips, nil, passes, txns, payments)
	repos.Tx = txm

	g := gateway.NewMockGateway(50, 100)
	locks, outboxWriter := noopLockAndOutbox()
	w := workflows.NewRoutePassPurchaseWorkflow(repos, promotion.New(nil), g, locks, outboxWriter, "test", false)
	value := d("22.00")
	txn, _, err := w.PurchaseRoutePass(ctx, workflows.RoutePassPurchaseInput{
		UserID:          "user-1",
		Tag:             "downtown",
		CompanyID:       "co-1",
		Value:           &value,
		TransactionType: domain.TransactionRoutePassPurchase,
		Creator:         domain.Creator{Scope: domain.ScopeUser, ID: "user-1"},
		SessionIat:      1700000000,
	})
	assert.NoError(t, err)
	items := txn.ItemsOfType(domain.ItemRoutePass)
	assert.Len(t, items, 4) // round(22/5) = round(4.4) = 4
}

func TestPurchaseRoutePass_RejectsBothQuantityAndValue(t *testing.T) {
	ctx := context.Background()
	repos := &ports.RepositoryProvider{}
	w := workflows.NewRoutePassPurchaseWorkflow(repos, promotion.New(nil), nil, nil, nil, "test", false)
	quantity := 2
	value := d("10.00")
	_, _, err := w.PurchaseRoutePass(ctx, workflows.RoutePassPurchaseInput{
		UserID:          "user-1",
		Tag:             "downtown",
		CompanyID:       "co-1",
		Quantity:        &quantity,
		Value:           &value,
		TransactionType: domain.TransactionRoutePassPurchase,
		Creator:         domain.Creator{Scope: domain.ScopeUser, ID: "user-1"},
		SessionIat:      1700000000,
	})
	assert.Error(t, err)
}
