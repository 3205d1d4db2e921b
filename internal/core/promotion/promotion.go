// Package promotion applies promo codes against a TransactionBuilder:
// validates against an external rule engine, then mutates builder state
// inside a single method.
package promotion

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/core/ledger"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

// PromoError reports that a promo code was unknown, expired, exhausted, or
// inapplicable to the requested scope.
type PromoError struct {
	Code string
	Msg  string
}

func (e *PromoError) Error() string { return fmt.Sprintf("promo %q: %s", e.Code, e.Msg) }

// Applier consumes a promo code and mutates a Builder with discount lines.
type Applier struct {
	Engine ports.PromoRuleEngine
}

func New(engine ports.PromoRuleEngine) *Applier {
	return &Applier{Engine: engine}
}

// Apply evaluates promoCode against the builder's current items scoped to
// scope, then pushes the resulting discount allocations onto the builder
// and writes each affected item's accumulated discount back via
// updateTicketsWithDiscounts / updateRoutePassesWithDiscounts (folded into
// Builder.ApplyDiscount's post-hook registration).
func (a *Applier) Apply(ctx context.Context, repos *ports.RepositoryProvider, b *ledger.Builder, promoCode string, scope ports.PromoScope) error {
	outstanding, itemTypeByID := a.outstandingLines(b, scope)
	if len(outstanding) == 0 {
		return nil
	}

	allocations, err := a.Engine.Evaluate(ctx, promoCode, scope, outstanding)
	if err != nil {
		return &PromoError{Code: promoCode, Msg: err.Error()}
	}
	if len(allocations) == 0 {
		return nil
	}

	ledgerAllocs := make([]ledger.DiscountAllocation, 0, len(allocations))
	for _, alloc := range allocations {
		amount, err := decimal.NewFromString(alloc.Amount)
		if err != nil {
			return apperrors.NewInternalError(fmt.Sprintf("promo %q returned non-numeric allocation %q", promoCode, alloc.Amount), err)
		}
		itemType, ok := itemTypeByID[alloc.ItemID]
		if !ok {
			return apperrors.NewInternalError(fmt.Sprintf("promo %q allocated against unknown item %q", promoCode, alloc.ItemID), nil)
		}
		ledgerAllocs = append(ledgerAllocs, ledger.DiscountAllocation{
			ItemID:   alloc.ItemID,
			ItemType: itemType,
			Amount:   amount,
		})
	}

	return b.ApplyDiscount(ctx, repos, ledgerAllocs, fmt.Sprintf("promo code %s", promoCode))
}

func (a *Applier) outstandingLines(b *ledger.Builder, scope ports.PromoScope) ([]ports.PromoLine, map[string]domain.ItemType) {
	var itemType domain.ItemType
	switch scope {
	case ports.PromoScopePromotion:
		itemType = domain.ItemTicketSale
	case ports.PromoScopeRoutePass:
		itemType = domain.ItemRoutePass
	default:
		return nil, nil
	}

	var lines []ports.PromoLine
	itemTypeByID := map[string]domain.ItemType{}
	for _, item := range b.ItemsOfType(itemType) {
		outstanding := item.Credit
		if itemType == domain.ItemTicketSale {
			if ticket, ok := b.TicketsTouched()[item.ItemID]; ok {
				outstanding = ticket.OutstandingAfterDiscount(item.Credit)
			}
		}
		if itemType == domain.ItemRoutePass {
			if pass, ok := b.RoutePassesTouched()[item.ItemID]; ok {
				outstanding = pass.Notes.Price.Sub(pass.Notes.DiscountValue)
			}
		}
		lines = append(lines, ports.PromoLine{
			ItemID:      item.ItemID,
			ItemType:    itemType,
			Outstanding: outstanding.String(),
		})
		itemTypeByID[item.ItemID] = itemType
	}
	return lines, itemTypeByID
}
