package workflows_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/marwanAmeen/beeline-server/internal/core/ports/portstest"
	"github.com/marwanAmeen/beeline-server/internal/core/workflows"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

func TestCancelSale_ReversesAndFailsTickets(t *testing.T) {
	ctx := context.Background()
	txm, _ := newTxManager(ctx)
	tickets := new(portstest.MockTicketRepo)
	txns := new(portstest.MockTransactionRepo)

	original := &domain.Transaction{
		ID:        "sale-tx-1",
		Type:      domain.TransactionTicketPurchase,
		Committed: true,
		Items: []domain.TransactionItem{
			domain.NewCredit(domain.ItemTicketSale, d("10.00"), "tkt-1", ""),
			domain.NewDebit(domain.ItemPayment, d("10.00"), "", ""),
		},
	}
	txns.On("FindTransactionByID", ctx, "sale-tx-1").Return(original, nil)
	txns.On("UpdateTransactionCommitted", ctx, "sale-tx-1", false).Return(nil)
	txns.On("SaveTransaction", ctx, mock.AnythingOfType("*domain.Transaction")).Return(nil)

	ticket := &domain.Ticket{ID: "tkt-1", Status: domain.TicketValid}
	tickets.On("FindTicketByID", ctx, "tkt-1").Return(ticket, nil)
	tickets.On("UpdateTicketStatus", ctx, "tkt-1", domain.TicketFailed).Return(nil)

	repos := portstest.NewRepositoryProvider(txm, nil, tickets, nil, txns, nil)
	repos.Tx = txm

	w := workflows.NewCancelSaleWorkflow(repos)
	txn, undo, err := w.CancelSale(ctx, workflows.CancelSaleInput{
		TransactionID: "sale-tx-1",
		Creator:       domain.Creator{Scope: domain.ScopeAdmin, ID: "admin-1"},
	})
	assert.NoError(t, err)
	assert.NotNil(t, txn)
	assert.NotNil(t, undo)
	assert.True(t, txn.IsZeroSum(domain.ZeroSumTolerance))
	assert.Equal(t, "sale-tx-1", txn.RelatedTransactionID)

	payment := txn.ItemsOfType(domain.ItemTicketSale)
	assert.Len(t, payment, 1)
	assert.True(t, payment[0].Debit.Equal(d("10.00")))

	tickets.AssertExpectations(t)
	txns.AssertExpectations(t)
}

func TestCancelSale_RejectsUncommittedTransaction(t *testing.T) {
	ctx := context.Background()
	txm, _ := newTxManager(ctx)
	txns := new(portstest.MockTransactionRepo)

	original := &domain.Transaction{ID: "sale-tx-2", Committed: false}
	txns.On("FindTransactionByID", ctx, "sale-tx-2").Return(original, nil)

	repos := portstest.NewRepositoryProvider(txm, nil, nil, nil, txns, nil)
	repos.Tx = txm

	w := workflows.NewCancelSaleWorkflow(repos)
	_, _, err := w.CancelSale(ctx, workflows.CancelSaleInput{
		TransactionID: "sale-tx-2",
		Creator:       domain.Creator{Scope: domain.ScopeAdmin, ID: "admin-1"},
	})
	assert.Error(t, err)
}

func TestCancelSale_RejectsWhenAnyTicketNotValid(t *testing.T) {
	ctx := context.Background()
	txm, _ := newTxManager(ctx)
	tickets := new(portstest.MockTicketRepo)
	txns := new(portstest.MockTransactionRepo)

	original := &domain.Transaction{
		ID:        "sale-tx-3",
		Committed: true,
		Items: []domain.TransactionItem{
			domain.NewCredit(domain.ItemTicketSale, d("10.00"), "tkt-2", ""),
		},
	}
	txns.On("FindTransactionByID", ctx, "sale-tx-3").Return(original, nil)

	ticket := &domain.Ticket{ID: "tkt-2", Status: domain.TicketRefunded}
	tickets.On("FindTicketByID", ctx, "tkt-2").Return(ticket, nil)

	repos := portstest.NewRepositoryProvider(txm, nil, tickets, nil, txns, nil)
	repos.Tx = txm

	w := workflows.NewCancelSaleWorkflow(repos)
	_, _, err := w.CancelSale(ctx, workflows.CancelSaleInput{
		TransactionID: "sale-tx-3",
		Creator:       domain.Creator{Scope: domain.ScopeAdmin, ID: "admin-1"},
	})
	assert.Error(t, err)
}
