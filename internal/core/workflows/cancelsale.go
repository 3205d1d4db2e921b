package workflows

import (
	"context"
	"fmt"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/core/ledger"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/domain"
	"github.com/marwanAmeen/beeline-server/internal/platform/logging"
)

// CancelSaleInput is the validated input bag for CancelSale.
type CancelSaleInput struct {
	TransactionID string         `validate:"required"`
	Creator       domain.Creator `validate:"required"`
}

// CancelSaleWorkflow orchestrates CancelSale, intended for gateway-decline
// recovery: the sale committed in the database but the card charge never
// went through, so the booking must be unwound.
type CancelSaleWorkflow struct {
	Repos *ports.RepositoryProvider
}

const cancelSaleIsolation = ports.IsoSerializable

func NewCancelSaleWorkflow(repos *ports.RepositoryProvider) *CancelSaleWorkflow {
	return &CancelSaleWorkflow{Repos: repos}
}

// CancelSale loads the sale Transaction, verifies it is committed, and
// atomically: posts a reversing Transaction linking back to it, flips the
// original to uncommitted, and transitions every one of its tickets from
// valid to failed. Fails all-or-nothing if any ticket is not currently
// valid.
func (w *CancelSaleWorkflow) CancelSale(ctx context.Context, input CancelSaleInput) (*domain.Transaction, ledger.UndoFn, error) {
	if err := validate.Struct(input); err != nil {
		return nil, nil, apperrors.NewValidationError(err.Error())
	}

	logger := logging.FromContext(ctx)
	txCtx, tx, err := w.Repos.Tx.Begin(ctx, cancelSaleIsolation)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning cancel-sale transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(txCtx)
		}
	}()

	original, err := w.Repos.Transactions.FindTransactionByID(txCtx, input.TransactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading sale transaction %s: %w", input.TransactionID, err)
	}
	if !original.Committed {
		return nil, nil, apperrors.NewTransactionError(fmt.Sprintf("transaction %s is not committed", original.ID))
	}

	saleItems := original.ItemsOfType(domain.ItemTicketSale)
	tickets := make([]*domain.Ticket, 0, len(saleItems))
	for _, item := range saleItems {
		ticket, err := w.Repos.Tickets.FindTicketByID(txCtx, item.ItemID)
		if err != nil {
			return nil, nil, fmt.Errorf("loading ticket %s: %w", item.ItemID, err)
		}
		if ticket.Status != domain.TicketValid {
			return nil, nil, apperrors.NewTransactionError(fmt.Sprintf("ticket %s is not valid (status %s), cannot cancel sale", ticket.ID, ticket.Status))
		}
		tickets = append(tickets, ticket)
	}

	b := ledger.New(input.Creator, true, false, fmt.Sprintf("cancellation of sale %s", original.ID))
	b.ReverseItemsOf(original)
	b.SetRelatedTransaction(original.ID)
	for _, ticket := range tickets {
		b.RecordTicketRefundUndo(ticket.ID, domain.TicketValid)
	}

	txn, undo, err := b.Build(txCtx, w.Repos, original.Type)
	if err != nil {
		return nil, nil, err
	}

	if err := w.Repos.Transactions.UpdateTransactionCommitted(txCtx, original.ID, false); err != nil {
		return nil, nil, fmt.Errorf("marking transaction %s uncommitted: %w", original.ID, err)
	}
	for _, ticket := range tickets {
		if err := w.Repos.Tickets.UpdateTicketStatus(txCtx, ticket.ID, domain.TicketFailed); err != nil {
			return nil, nil, fmt.Errorf("failing ticket %s: %w", ticket.ID, err)
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, nil, fmt.Errorf("committing cancel-sale transaction: %w", err)
	}
	committed = true

	logger.Info("sale cancelled", "originalTransactionId", original.ID, "reversalTransactionId", txn.ID, "tickets", len(tickets))
	return txn, undo, nil
}
