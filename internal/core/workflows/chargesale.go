package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/core/gateway"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/domain"
	"github.com/marwanAmeen/beeline-server/internal/platform/outbox"
)

// chargeGateway groups the collaborators chargeSale needs from whichever
// workflow calls it: SaleWorkflow and RoutePassPurchaseWorkflow both embed
// these fields and so satisfy this struct's shape by value at the call
// site.
type chargeGateway struct {
	Repos   *ports.RepositoryProvider
	Gateway gateway.Gateway
	Outbox  ports.OutboxWriter
	Env     string
	Live    bool
}

// chargeSale inserts a Payment row for txn's payment item, charges the
// gateway for it, and persists the outcome through PaymentWriter -- the
// distinct charge-then-record step a built sale or route-pass purchase
// still needs once its Transaction and line items are committed. Returns
// nil without doing anything if txn carries no payment item (a sale fully
// covered by a route pass or promo code never touches the gateway).
//
// sessionIat comes from the caller, not from time.Now(): the idempotency
// key it feeds into is keyed on txn.ID, which is stable for the life of a
// committed sale, so calling chargeSale twice for the same txn with the
// same sessionIat must produce the same key and therefore one gateway
// charge, not two.
func chargeSale(ctx context.Context, cg chargeGateway, txn *domain.Transaction, sessionIat int64) error {
	items := txn.ItemsOfType(domain.ItemPayment)
	if len(items) == 0 {
		return nil
	}
	item := items[0]

	company, err := cg.Repos.Trips.FindTransportCompanyByID(ctx, item.CompanyID)
	if err != nil {
		return fmt.Errorf("loading transport company %s for charge: %w", item.CompanyID, err)
	}

	payment := &domain.Payment{ID: uuid.NewString(), TransactionID: txn.ID}
	if err := cg.Repos.Payments.InsertPayment(ctx, payment); err != nil {
		return fmt.Errorf("inserting payment for transaction %s: %w", txn.ID, err)
	}

	destination := company.SandboxMerchantID
	if cg.Live {
		destination = company.ClientMerchantID
	}
	amountCents := item.Debit.Mul(centsPerDollar).Round(0).IntPart()
	idempotencyKey := gateway.ChargeIdempotencyKey(cg.Env, txn.ID, sessionIat)

	result, chargeErr := cg.Gateway.Charge(ctx, gateway.ChargeRequest{
		Value:               item.Debit,
		Description:         txn.Description,
		StatementDescriptor: gateway.StatementDescriptor(company.SmsOpCode, company.Name, txn.ID),
		Destination:         destination,
		IdempotencyKey:      idempotencyKey,
	})
	if chargeErr != nil {
		if err := cg.Repos.Payments.UpdatePaymentFailure(ctx, payment.ID, chargeErr.Error()); err != nil {
			return fmt.Errorf("recording charge failure for payment %s: %w", payment.ID, err)
		}
		return apperrors.NewChargeError("gateway charge failed", chargeErr)
	}

	isMicro := cg.Gateway.IsMicro(amountCents)
	if err := cg.Repos.Payments.UpdatePaymentSuccess(ctx, payment.ID, result.ID, result, isMicro); err != nil {
		return fmt.Errorf("recording charge success for payment %s: %w", payment.ID, err)
	}

	return cg.Outbox.Record(ctx, outbox.TopicChargeDispatched, idempotencyKey, outbox.ChargeDispatched{
		TransactionID:  txn.ID,
		IdempotencyKey: idempotencyKey,
		AmountCents:    amountCents,
		DispatchedAt:   time.Now(),
	})
}
