package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/core/gateway"
	"github.com/marwanAmeen/beeline-server/internal/core/ledger"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/domain"
	"github.com/marwanAmeen/beeline-server/internal/platform/lock"
	"github.com/marwanAmeen/beeline-server/internal/platform/logging"
	"github.com/marwanAmeen/beeline-server/internal/platform/outbox"
)

// refundEqualityTolerance bounds the all-or-nothing equality check between
// a requested ticket refund amount and the ticket's price after discount.
var refundEqualityTolerance = decimal.New(1, -4)

// TicketRefundInput is the validated input bag for RefundTicket.
type TicketRefundInput struct {
	TicketID     string          `validate:"required"`
	TargetAmount decimal.Decimal `validate:"required"`
	CompanyID    string          `validate:"required"`
	Creds        domain.Credentials
	Creator      domain.Creator `validate:"required"`
	Committed    bool
	DryRun       bool
}

// RoutePassRefundInput is the validated input bag for RefundRoutePass.
type RoutePassRefundInput struct {
	RoutePassID string `validate:"required"`
	CompanyID   string `validate:"required"`
	Creds       domain.Credentials
	Creator     domain.Creator `validate:"required"`
	Committed   bool
	DryRun      bool
}

// RefundWorkflow orchestrates RefundTicket and RefundRoutePass. Isolation
// is READ COMMITTED: both read a committed origin transaction and write
// disjoint rows, guarded by the all-or-nothing equality check rather than
// a stronger isolation level.
type RefundWorkflow struct {
	Repos   *ports.RepositoryProvider
	Auth    ports.AuthCollaborator
	Gateway gateway.Gateway
	Env     string
	Locks   ports.Locker
	Outbox  ports.OutboxWriter
}

const refundIsolation = ports.IsoReadCommitted

func NewRefundWorkflow(repos *ports.RepositoryProvider, auth ports.AuthCollaborator, gw gateway.Gateway, env string, locks ports.Locker, outboxWriter ports.OutboxWriter) *RefundWorkflow {
	return &RefundWorkflow{Repos: repos, Auth: auth, Gateway: gw, Env: env, Locks: locks, Outbox: outboxWriter}
}

// RefundTicket refunds a single ticket in full: the target amount must
// equal the ticket's sale credit minus its accumulated discount, within
// refundEqualityTolerance. Partial refunds are rejected.
func (w *RefundWorkflow) RefundTicket(ctx context.Context, input TicketRefundInput) (*domain.Transaction, gateway.RefundInfo, ledger.UndoFn, error) {
	if err := validate.Struct(input); err != nil {
		return nil, gateway.RefundInfo{}, nil, apperrors.NewValidationError(err.Error())
	}

	logger := logging.FromContext(ctx)

	release, err := acquireLocks(ctx, w.Locks, []string{lock.TicketRefundKey(input.TicketID)})
	if err != nil {
		return nil, gateway.RefundInfo{}, nil, fmt.Errorf("acquiring ticket refund lock: %w", err)
	}
	defer release(ctx)

	txCtx, tx, err := w.Repos.Tx.Begin(ctx, refundIsolation)
	if err != nil {
		return nil, gateway.RefundInfo{}, nil, fmt.Errorf("beginning ticket refund transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(txCtx)
		}
	}()

	ticket, err := w.Repos.Tickets.FindTicketByID(txCtx, input.TicketID)
	if err != nil {
		return nil, gateway.RefundInfo{}, nil, fmt.Errorf("loading ticket %s: %w", input.TicketID, err)
	}
	if ticket.Status != domain.TicketValid && ticket.Status != domain.TicketVoid {
		return nil, gateway.RefundInfo{}, nil, apperrors.NewTransactionError(fmt.Sprintf("ticket %s is not in a refundable state (status %s)", ticket.ID, ticket.Status))
	}

	saleTxn, err := w.Repos.Transactions.FindTicketSaleTransaction(txCtx, input.TicketID)
	if err != nil {
		return nil, gateway.RefundInfo{}, nil, fmt.Errorf("loading sale transaction for ticket %s: %w", input.TicketID, err)
	}
	saleCredit, found := ticketSaleCredit(saleTxn, input.TicketID)
	if !found {
		return nil, gateway.RefundInfo{}, nil, apperrors.NewInternalError(fmt.Sprintf("sale transaction %s carries no ticketSale item for ticket %s", saleTxn.ID, input.TicketID), nil)
	}

	priceAfterDiscount := saleCredit.Sub(ticket.Notes.DiscountValue)
	// previouslyRefunded is always zero here: the status check above
	// already rejects any ticket not currently valid or void, and a prior
	// successful refund leaves status=refunded.
	previouslyRefunded := decimal.Zero
	if input.TargetAmount.Sub(priceAfterDiscount).Abs().GreaterThanOrEqual(refundEqualityTolerance) {
		return nil, gateway.RefundInfo{}, nil, apperrors.NewTransactionError("requires requested refund to equal ticket value after discounts")
	}
	if previouslyRefunded.Add(input.TargetAmount).GreaterThan(priceAfterDiscount.Add(refundEqualityTolerance)) {
		return nil, gateway.RefundInfo{}, nil, apperrors.NewTransactionError("refund exceeds remaining ticket balance")
	}

	if err := w.Auth.AssertAdminRole(txCtx, input.Creds, "refundTicket", input.CompanyID); err != nil {
		return nil, gateway.RefundInfo{}, nil, err
	}

	payment, err := w.Repos.Payments.FindPaymentByTransactionID(txCtx, saleTxn.ID)
	if err != nil {
		return nil, gateway.RefundInfo{}, nil, fmt.Errorf("loading payment for sale transaction %s: %w", saleTxn.ID, err)
	}

	idempotencyKey := gateway.TicketRefundIdempotencyKey(w.Env, input.TicketID)
	info, err := gateway.GenerateRefundInfo(txCtx, w.Gateway, *payment, input.TargetAmount, idempotencyKey)
	if err != nil {
		return nil, gateway.RefundInfo{}, nil, err
	}

	if !input.DryRun {
		amountCents := input.TargetAmount.Mul(centsPerDollar).Round(0).IntPart()
		if err := w.Gateway.Refund(txCtx, info.Charge.ID, amountCents, idempotencyKey); err != nil {
			return nil, gateway.RefundInfo{}, nil, apperrors.NewChargeError("gateway refund failed", err)
		}
		if err := w.Outbox.Record(txCtx, outbox.TopicRefundDispatched, idempotencyKey, outbox.RefundDispatched{
			TransactionID:  saleTxn.ID,
			ChargeID:       info.Charge.ID,
			IdempotencyKey: idempotencyKey,
			AmountCents:    amountCents,
			DispatchedAt:   time.Now(),
		}); err != nil {
			return nil, gateway.RefundInfo{}, nil, fmt.Errorf("recording refund outbox message: %w", err)
		}
	}

	b := ledger.New(input.Creator, input.Committed, input.DryRun, fmt.Sprintf("ticket refund (%s)", input.TicketID))
	gateway.AppendRefundEffect(b, input.TicketID, "", input.CompanyID, info)
	b.RecordTicketRefundUndo(input.TicketID, ticket.Status)

	txn, undo, err := b.Build(txCtx, w.Repos, domain.TransactionRefundPayment)
	if err != nil {
		return nil, gateway.RefundInfo{}, nil, err
	}

	if !input.DryRun {
		if err := w.Repos.Tickets.UpdateTicketRefund(txCtx, input.TicketID, domain.TicketRefunded, txn.ID); err != nil {
			return nil, gateway.RefundInfo{}, nil, fmt.Errorf("recording ticket refund: %w", err)
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, gateway.RefundInfo{}, nil, fmt.Errorf("committing ticket refund transaction: %w", err)
	}
	committed = true

	logger.Info("ticket refund completed", "transactionId", txn.ID, "ticketId", input.TicketID, "amount", input.TargetAmount.String())
	return txn, info, undo, nil
}

// RefundRoutePass refunds the remaining value of a route pass: only
// passes in status valid, void, or expired may be refunded; once
// refunded, a pass is terminal.
func (w *RefundWorkflow) RefundRoutePass(ctx context.Context, input RoutePassRefundInput) (*domain.Transaction, gateway.RefundInfo, ledger.UndoFn, error) {
	if err := validate.Struct(input); err != nil {
		return nil, gateway.RefundInfo{}, nil, apperrors.NewValidationError(err.Error())
	}

	logger := logging.FromContext(ctx)

	release, err := acquireLocks(ctx, w.Locks, []string{lock.RoutePassRefundKey(input.RoutePassID)})
	if err != nil {
		return nil, gateway.RefundInfo{}, nil, fmt.Errorf("acquiring route pass refund lock: %w", err)
	}
	defer release(ctx)

	txCtx, tx, err := w.Repos.Tx.Begin(ctx, refundIsolation)
	if err != nil {
		return nil, gateway.RefundInfo{}, nil, fmt.Errorf("beginning route pass refund transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(txCtx)
		}
	}()

	pass, err := w.Repos.RoutePasses.FindRoutePassByID(txCtx, input.RoutePassID)
	if err != nil {
		return nil, gateway.RefundInfo{}, nil, fmt.Errorf("loading route pass %s: %w", input.RoutePassID, err)
	}
	if !pass.Status.Refundable() {
		return nil, gateway.RefundInfo{}, nil, apperrors.NewTransactionError(fmt.Sprintf("route pass %s is not in a refundable state (status %s)", pass.ID, pass.Status))
	}

	if err := w.Auth.AssertAdminRole(txCtx, input.Creds, "refundRoutePass", input.CompanyID); err != nil {
		return nil, gateway.RefundInfo{}, nil, err
	}

	amount := pass.Notes.Price.Sub(pass.Notes.DiscountValue)
	if !amount.IsPositive() {
		return nil, gateway.RefundInfo{}, nil, apperrors.NewTransactionError("route pass has no remaining value to refund")
	}

	purchaseTxn, err := w.Repos.Transactions.FindRoutePassPurchaseTransaction(txCtx, input.RoutePassID)
	if err != nil {
		return nil, gateway.RefundInfo{}, nil, fmt.Errorf("loading purchase transaction for route pass %s: %w", input.RoutePassID, err)
	}
	payment, err := w.Repos.Payments.FindPaymentByTransactionID(txCtx, purchaseTxn.ID)
	if err != nil {
		return nil, gateway.RefundInfo{}, nil, fmt.Errorf("loading payment for purchase transaction %s: %w", purchaseTxn.ID, err)
	}

	idempotencyKey := gateway.RoutePassRefundIdempotencyKey(w.Env, input.RoutePassID)
	info, err := gateway.GenerateRefundInfo(txCtx, w.Gateway, *payment, amount, idempotencyKey)
	if err != nil {
		return nil, gateway.RefundInfo{}, nil, err
	}

	if !input.DryRun {
		amountCents := amount.Mul(centsPerDollar).Round(0).IntPart()
		if err := w.Gateway.Refund(txCtx, info.Charge.ID, amountCents, idempotencyKey); err != nil {
			return nil, gateway.RefundInfo{}, nil, apperrors.NewChargeError("gateway refund failed", err)
		}
		if err := w.Outbox.Record(txCtx, outbox.TopicRefundDispatched, idempotencyKey, outbox.RefundDispatched{
			TransactionID:  purchaseTxn.ID,
			ChargeID:       info.Charge.ID,
			IdempotencyKey: idempotencyKey,
			AmountCents:    amountCents,
			DispatchedAt:   time.Now(),
		}); err != nil {
			return nil, gateway.RefundInfo{}, nil, fmt.Errorf("recording refund outbox message: %w", err)
		}
	}

	b := ledger.New(input.Creator, input.Committed, input.DryRun, fmt.Sprintf("route pass refund (%s)", input.RoutePassID))
	gateway.AppendRefundEffect(b, "", input.RoutePassID, input.CompanyID, info)
	b.RecordRoutePassRefundUndo(input.RoutePassID, pass.Status)

	txn, undo, err := b.Build(txCtx, w.Repos, domain.TransactionRefundPayment)
	if err != nil {
		return nil, gateway.RefundInfo{}, nil, err
	}

	if !input.DryRun {
		if err := w.Repos.RoutePasses.UpdateRoutePassRefund(txCtx, input.RoutePassID, domain.RoutePassRefunded, txn.ID); err != nil {
			return nil, gateway.RefundInfo{}, nil, fmt.Errorf("recording route pass refund: %w", err)
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, gateway.RefundInfo{}, nil, fmt.Errorf("committing route pass refund transaction: %w", err)
	}
	committed = true

	logger.Info("route pass refund completed", "transactionId", txn.ID, "routePassId", input.RoutePassID, "amount", amount.String())
	return txn, info, undo, nil
}

// ticketSaleCredit finds the ticketSale item referencing ticketID within
// txn and returns its credit amount.
func ticketSaleCredit(txn *domain.Transaction, ticketID string) (decimal.Decimal, bool) {
	for _, item := range txn.ItemsOfType(domain.ItemTicketSale) {
		if item.ItemID == ticketID {
			return item.Credit, true
		}
	}
	return decimal.Decimal{}, false
}
