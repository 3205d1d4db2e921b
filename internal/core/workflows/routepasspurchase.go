package workflows

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/core/gateway"
	"github.com/marwanAmeen/beeline-server/internal/core/ledger"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/core/promotion"
	"github.com/marwanAmeen/beeline-server/internal/domain"
	"github.com/marwanAmeen/beeline-server/internal/platform/lock"
	"github.com/marwanAmeen/beeline-server/internal/platform/logging"
)

// PostTransactionHook runs against the same DB transaction the purchase was
// persisted under, immediately before commit.
type PostTransactionHook func(ctx context.Context, tx ports.DBTx) error

// RoutePassPurchaseInput is the validated input bag for PurchaseRoutePass.
// Exactly one of Quantity/Value must be set; this is checked explicitly in
// PurchaseRoutePass rather than via struct tags, since go-playground's
// mutually-exclusive tags don't express "exactly one" cleanly against a
// pointer pair.
type RoutePassPurchaseInput struct {
	UserID              string `validate:"required"`
	Tag                 string `validate:"required"`
	CompanyID           string `validate:"required"`
	Quantity            *int
	Value               *decimal.Decimal
	PromoCode           string
	DryRun              bool
	TransactionType     domain.TransactionType `validate:"required"`
	ExpectedPrice       *decimal.Decimal
	PostTransactionHook PostTransactionHook
	Creator             domain.Creator `validate:"required"`
	Committed           bool
	// SessionIat is the caller's session/token issued-at timestamp,
	// threaded into the charge idempotency key so a retried charge against
	// an already-committed purchase reuses the same key.
	SessionIat int64 `validate:"required"`
}

// RoutePassPurchaseWorkflow orchestrates PurchaseRoutePass. Isolation is
// SERIALIZABLE, since price is derived from the next upcoming trip for a
// tag and the read must not race a concurrent reschedule.
type RoutePassPurchaseWorkflow struct {
	Repos     *ports.RepositoryProvider
	Promotion *promotion.Applier
	Gateway   gateway.Gateway
	Locks     ports.Locker
	Outbox    ports.OutboxWriter
	Env       string
	Live      bool
}

const routePassPurchaseIsolation = ports.IsoSerializable

func NewRoutePassPurchaseWorkflow(repos *ports.RepositoryProvider, promo *promotion.Applier, gw gateway.Gateway, locks ports.Locker, outboxWriter ports.OutboxWriter, env string, live bool) *RoutePassPurchaseWorkflow {
	return &RoutePassPurchaseWorkflow{
		Repos:     repos,
		Promotion: promo,
		Gateway:   gw,
		Locks:     locks,
		Outbox:    outboxWriter,
		Env:       env,
		Live:      live,
	}
}

func (w *RoutePassPurchaseWorkflow) PurchaseRoutePass(ctx context.Context, input RoutePassPurchaseInput) (*domain.Transaction, ledger.UndoFn, error) {
	if err := validate.Struct(input); err != nil {
		return nil, nil, apperrors.NewValidationError(err.Error())
	}
	if (input.Quantity == nil) == (input.Value == nil) {
		return nil, nil, apperrors.NewValidationError("exactly one of quantity or value must be supplied")
	}

	logger := logging.FromContext(ctx)

	release, err := acquireLocks(ctx, w.Locks, []string{lock.RoutePassPurchaseKey(input.UserID, input.Tag)})
	if err != nil {
		return nil, nil, fmt.Errorf("acquiring route pass purchase lock: %w", err)
	}
	defer release(ctx)

	txCtx, tx, err := w.Repos.Tx.Begin(ctx, routePassPurchaseIsolation)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning route pass purchase transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(txCtx)
		}
	}()

	trip, err := w.Repos.Trips.NextUpcomingTripByTag(txCtx, input.Tag)
	if err != nil {
		return nil, nil, fmt.Errorf("finding upcoming trip for tag %s: %w", input.Tag, err)
	}
	price := trip.Price

	quantity, value := resolveQuantityAndValue(price, input.Quantity, input.Value)
	if quantity < 1 {
		return nil, nil, apperrors.NewTransactionError("route pass purchase resolves to zero quantity")
	}

	b := ledger.New(input.Creator, input.Committed, input.DryRun, describeRoutePassPurchase(input.Tag, quantity))

	if _, err := b.InitForRoutePassPurchase(txCtx, w.Repos, input.UserID, input.CompanyID, input.Tag, quantity, price); err != nil {
		return nil, nil, err
	}

	if input.PromoCode != "" {
		if err := w.Promotion.Apply(txCtx, w.Repos, b, input.PromoCode, ports.PromoScopeRoutePass); err != nil {
			return nil, nil, err
		}
	}

	b.FinalizeForPayment(input.CompanyID)

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

	txn, undo, err := b.Build(txCtx, w.Repos, input.TransactionType)
	if err != nil {
		return nil, nil, err
	}

	if input.PostTransactionHook != nil {
		if err := input.PostTransactionHook(txCtx, tx); err != nil {
			return nil, nil, fmt.Errorf("running post-transaction hook: %w", err)
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, nil, fmt.Errorf("committing route pass purchase transaction: %w", err)
	}
	committed = true

	logger.Info("route pass purchase prepared", "transactionId", txn.ID, "tag", input.Tag, "quantity", quantity, "value", value.String())

	if input.DryRun {
		return txn, undo, nil
	}

	if err := chargeSale(ctx, chargeGateway{Repos: w.Repos, Gateway: w.Gateway, Outbox: w.Outbox, Env: w.Env, Live: w.Live}, txn, input.SessionIat); err != nil {
		return txn, undo, err
	}

	return txn, undo, nil
}

func describeRoutePassPurchase(tag string, quantity int) string {
	return fmt.Sprintf("route pass purchase (%d x %s)", quantity, tag)
}

// resolveQuantityAndValue derives the pair the input didn't supply: a
// requested quantity gives a total value at the current price, rounded to
// the nearest cent; a
// requested value rounds to the nearest whole pass.
func resolveQuantityAndValue(price decimal.Decimal, reqQuantity *int, reqValue *decimal.Decimal) (int, decimal.Decimal) {
	if reqQuantity != nil {
		quantity := *reqQuantity
		value := price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
		return quantity, value
	}
	quotient := reqValue.Div(price).Round(0)
	quantity := int(quotient.IntPart())
	value := price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
	return quantity, value
}
