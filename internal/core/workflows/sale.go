// Package workflows implements the orchestrators that wrap the
// TransactionBuilder in a database transaction at a declared isolation
// level, invoke checks/promo/route-pass appliers, and finalize payment:
// load referenced state, validate, mutate, persist atomically, all inside
// one method.
package workflows

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/core/checks"
	"github.com/marwanAmeen/beeline-server/internal/core/gateway"
	"github.com/marwanAmeen/beeline-server/internal/core/ledger"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/core/promotion"
	"github.com/marwanAmeen/beeline-server/internal/core/routepass"
	"github.com/marwanAmeen/beeline-server/internal/domain"
	"github.com/marwanAmeen/beeline-server/internal/platform/lock"
	"github.com/marwanAmeen/beeline-server/internal/platform/logging"
)

var validate = validator.New()

// TicketSaleInput is the validated input bag for SellTicket. SessionIat is
// the caller's session/token issued-at timestamp: it is threaded into the
// charge idempotency key as-is, so a caller retrying a charge against an
// already-committed sale (after a crash between commit and charge, say)
// reuses the same key by passing the same SessionIat again instead of
// minting a fresh one.
type TicketSaleInput struct {
	Trips          []ledger.TicketSaleRequest `validate:"required,min=1,dive"`
	PromoCode      string
	DryRun         bool
	ApplyRoutePass bool
	Checks         checks.Options
	ExpectedPrice  *decimal.Decimal
	Creator        domain.Creator `validate:"required"`
	Committed      bool
	Type           domain.TransactionType `validate:"required"`
	SessionIat     int64 `validate:"required"`
}

// SaleWorkflow orchestrates a ticket sale. Isolation is a per-workflow
// constant, never a caller option.
type SaleWorkflow struct {
	Repos                 *ports.RepositoryProvider
	Promotion             *promotion.Applier
	RoutePass             *routepass.Applier
	GatewayMinChargeCents int64
	Gateway               gateway.Gateway
	Locks                 ports.Locker
	Outbox                ports.OutboxWriter
	Env                   string
	Live                  bool
}

// saleIsolation is the fixed isolation level for ticket sales.
const saleIsolation = ports.IsoRepeatableRead

func NewSaleWorkflow(repos *ports.RepositoryProvider, promo *promotion.Applier, pass *routepass.Applier, gatewayMinChargeCents int64, gw gateway.Gateway, locks ports.Locker, outboxWriter ports.OutboxWriter, env string, live bool) *SaleWorkflow {
	return &SaleWorkflow{
		Repos:                 repos,
		Promotion:             promo,
		RoutePass:             pass,
		GatewayMinChargeCents: gatewayMinChargeCents,
		Gateway:               gw,
		Locks:                 locks,
		Outbox:                outboxWriter,
		Env:                   env,
		Live:                  live,
	}
}

// SellTicket runs the full sale pipeline within a single DB transaction at
// REPEATABLE READ, then -- once that transaction has committed -- charges
// the gateway for the resulting payment item and records the outcome.
func (w *SaleWorkflow) SellTicket(ctx context.Context, input TicketSaleInput) (*domain.Transaction, ledger.UndoFn, error) {
	if err := validate.Struct(input); err != nil {
		return nil, nil, apperrors.NewValidationError(err.Error())
	}

	logger := logging.FromContext(ctx)

	keys := make([]string, 0, len(input.Trips))
	for _, leg := range input.Trips {
		keys = append(keys, lock.BookingKey(leg.UserID, leg.TripID))
	}
	release, err := acquireLocks(ctx, w.Locks, dedupeKeys(keys))
	if err != nil {
		return nil, nil, fmt.Errorf("acquiring sale locks: %w", err)
	}
	defer release(ctx)

	txCtx, tx, err := w.Repos.Tx.Begin(ctx, saleIsolation)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning sale transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(txCtx)
		}
	}()

	b := ledger.New(input.Creator, input.Committed, input.DryRun, describeSale(input))

	if err := b.InitForTicketSale(txCtx, w.Repos, input.Trips); err != nil {
		return nil, nil, err
	}

	if err := checks.Run(txCtx, w.Repos, b, input.Checks); err != nil {
		return nil, nil, err
	}

	if input.ApplyRoutePass {
		tags, err := routeTagsForBuilder(txCtx, w.Repos, b)
		if err != nil {
			return nil, nil, err
		}
		companyID, ok := singleCompanyFromTrips(b)
		if !ok {
			return nil, nil, apperrors.NewTransactionError("cannot apply route passes without a single identifiable company")
		}
		if err := w.RoutePass.ApplyTags(txCtx, w.Repos, b, input.Creator.ID, companyID, tags); err != nil {
			return nil, nil, err
		}
	}

	if input.PromoCode != "" {
		if err := w.Promotion.Apply(txCtx, w.Repos, b, input.PromoCode, ports.PromoScopePromotion); err != nil {
			return nil, nil, err
		}
	}

	if err := absorbSmallResidual(txCtx, w.Repos, b, w.GatewayMinChargeCents); err != nil {
		return nil, nil, err
	}

	companyID, ok := singleCompanyFromTrips(b)
	if !ok {
		return nil, nil, apperrors.NewTransactionError("trips span more than one transport company")
	}
	b.FinalizeForPayment(companyID)

	if input.ExpectedPrice != nil {
		payment := b.ItemsOfType(domain.ItemPayment)
		actual := decimal.Zero
		if len(payment) > 0 {
			actual = payment[0].Debit
		}
		if input.ExpectedPrice.Sub(actual).Abs().GreaterThanOrEqual(decimal.New(1, -3)) {
			return nil, nil, apperrors.NewTransactionError("priceChanged")
		}
	}

	txn, undo, err := b.Build(txCtx, w.Repos, input.Type)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, nil, fmt.Errorf("committing sale transaction: %w", err)
	}
	committed = true

	logger.Info("ticket sale prepared", "transactionId", txn.ID, "tickets", len(input.Trips))

	if input.DryRun {
		return txn, undo, nil
	}

	if err := chargeSale(ctx, chargeGateway{Repos: w.Repos, Gateway: w.Gateway, Outbox: w.Outbox, Env: w.Env, Live: w.Live}, txn, input.SessionIat); err != nil {
		ticketIDs := make([]string, 0, len(txn.ItemsOfType(domain.ItemTicketSale)))
		for _, item := range txn.ItemsOfType(domain.ItemTicketSale) {
			ticketIDs = append(ticketIDs, item.ItemID)
		}
		for _, ticketID := range ticketIDs {
			if uerr := w.Repos.Tickets.UpdateTicketStatus(ctx, ticketID, domain.TicketFailed); uerr != nil {
				logger.Error("marking ticket failed after declined charge", "ticketId", ticketID, "error", uerr)
			}
		}
		return txn, undo, err
	}

	for _, item := range txn.ItemsOfType(domain.ItemTicketSale) {
		if uerr := w.Repos.Tickets.UpdateTicketStatus(ctx, item.ItemID, domain.TicketValid); uerr != nil {
			logger.Error("marking ticket valid after charge", "ticketId", item.ItemID, "error", uerr)
		}
	}

	return txn, undo, nil
}

func describeSale(input TicketSaleInput) string {
	return fmt.Sprintf("ticket sale (%d trip legs)", len(input.Trips))
}

// routeTagsForBuilder collects the distinct route tags carried by every
// trip the builder has loaded.
func routeTagsForBuilder(ctx context.Context, repos *ports.RepositoryProvider, b *ledger.Builder) ([]string, error) {
	seen := map[string]bool{}
	var tags []string
	for _, trip := range b.TripsByID {
		route, err := repos.Trips.FindRouteByID(ctx, trip.RouteID)
		if err != nil {
			return nil, fmt.Errorf("loading route %s for pass tags: %w", trip.RouteID, err)
		}
		for _, tag := range route.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags, nil
}

func singleCompanyFromTrips(b *ledger.Builder) (string, bool) {
	companies := map[string]struct{}{}
	for _, trip := range b.TripsByID {
		companies[trip.TransportCompanyID] = struct{}{}
	}
	if len(companies) != 1 {
		return "", false
	}
	for c := range companies {
		return c, true
	}
	return "", false
}
