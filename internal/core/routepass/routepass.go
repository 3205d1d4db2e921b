// Package routepass implements the RoutePassApplier: redeeming available
// route passes as discount lines against matching ticket-sale items,
// locking and mutating one pass row at a time within a builder-driven
// transaction.
package routepass

import (
	"context"
	"fmt"
	"sort"

	"github.com/marwanAmeen/beeline-server/internal/core/ledger"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

// Applier redeems RoutePasses against a Builder's ticket-sale items.
type Applier struct{}

func New() *Applier { return &Applier{} }

// ApplyTags redeems route passes for every distinct route tag carried by
// the builder's booked trips, processing tags in alphabetical order.
func (a *Applier) ApplyTags(ctx context.Context, repos *ports.RepositoryProvider, b *ledger.Builder, userID, companyID string, tags []string) error {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	seen := map[string]bool{}
	for _, tag := range sorted {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		if err := a.applyTag(ctx, repos, b, userID, companyID, tag); err != nil {
			return err
		}
	}
	return nil
}

// applyTag consumes up to one RoutePass per matching outstanding
// ticket-sale item, capping each redemption by the ticket's outstanding
// amount.
func (a *Applier) applyTag(ctx context.Context, repos *ports.RepositoryProvider, b *ledger.Builder, userID, companyID, tag string) error {
	saleItems := b.ItemsOfType(domain.ItemTicketSale)
	for _, item := range saleItems {
		ticket, ok := b.TicketsTouched()[item.ItemID]
		if !ok {
			continue
		}
		outstanding := ticket.OutstandingAfterDiscount(item.Credit)
		if !outstanding.IsPositive() {
			continue
		}

		passes, err := repos.RoutePasses.FindRedeemableRoutePasses(ctx, userID, tag, companyID, 1)
		if err != nil {
			return fmt.Errorf("finding redeemable route passes for tag %q: %w", tag, err)
		}
		if len(passes) == 0 {
			continue
		}
		pass := passes[0]
		if pass.Status != domain.RoutePassValid {
			continue
		}

		redemption := pass.Notes.Price
		if redemption.GreaterThan(outstanding) {
			redemption = outstanding
		}
		if !redemption.IsPositive() {
			continue
		}

		if err := repos.RoutePasses.UpdateRoutePassStatus(ctx, pass.ID, domain.RoutePassVoid); err != nil {
			return fmt.Errorf("voiding route pass %s: %w", pass.ID, err)
		}
		pass.Status = domain.RoutePassVoid
		b.RecordRoutePassRedemption(pass.ID)

		if err := b.ApplyDiscount(ctx, repos, []ledger.DiscountAllocation{
			{ItemID: ticket.ID, ItemType: domain.ItemTicketSale, Amount: redemption},
		}, fmt.Sprintf("route pass %s (tag %s)", pass.ID, tag)); err != nil {
			return err
		}
	}
	return nil
}
