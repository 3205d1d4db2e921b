package workflows

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/marwanAmeen/beeline-server/internal/core/ledger"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

var centsPerDollar = decimal.NewFromInt(100)

// absorbSmallResidual converts an outstanding balance too small for the
// gateway to charge into a discount, so the platform bears the gap rather
// than attempting a sub-minimum card charge.
//
// The discount is applied directly to b once the threshold check passes;
// the builder is not cloned first.
func absorbSmallResidual(ctx context.Context, repos *ports.RepositoryProvider, b *ledger.Builder, gatewayMinChargeCents int64) error {
	excess := b.ExcessCredit()
	if !excess.IsPositive() {
		return nil
	}
	excessCents := excess.Mul(centsPerDollar).Round(0)
	if excessCents.GreaterThan(decimal.NewFromInt(gatewayMinChargeCents)) {
		return nil
	}

	var allocations []ledger.OutstandingItem
	for _, item := range b.ItemsOfType(domain.ItemTicketSale) {
		ticket, ok := b.TicketsTouched()[item.ItemID]
		if !ok {
			continue
		}
		outstanding := ticket.OutstandingAfterDiscount(item.Credit)
		if outstanding.IsPositive() {
			allocations = append(allocations, ledger.OutstandingItem{ItemID: ticket.ID, Outstanding: outstanding})
		}
	}
	if len(allocations) == 0 {
		return nil
	}

	allocMap := ledger.AllocateProportionally(excess, allocations)
	var discountAllocs []ledger.DiscountAllocation
	for _, a := range allocations {
		amount, ok := allocMap[a.ItemID]
		if !ok || !amount.IsPositive() {
			continue
		}
		discountAllocs = append(discountAllocs, ledger.DiscountAllocation{
			ItemID:   a.ItemID,
			ItemType: domain.ItemTicketSale,
			Amount:   amount,
		})
	}
	if len(discountAllocs) == 0 {
		return nil
	}

	if err := b.ApplyDiscount(ctx, repos, discountAllocs, "[absorb-small-payments]"); err != nil {
		return fmt.Errorf("absorbing small residual: %w", err)
	}
	return nil
}
