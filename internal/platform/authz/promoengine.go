package authz

import (
	"context"
	"fmt"

	"github.com/marwanAmeen/beeline-server/internal/core/ports"
)

// NoPromoEngine is the default ports.PromoRuleEngine this module runs
// with when no promo rule backend is wired in front of it: every code is
// unrecognized. The real rule engine (code lookup, expiry, redemption
// caps) lives outside this module.
type NoPromoEngine struct{}

func NewNoPromoEngine() *NoPromoEngine { return &NoPromoEngine{} }

func (NoPromoEngine) Evaluate(ctx context.Context, promoCode string, scope ports.PromoScope, outstanding []ports.PromoLine) ([]ports.PromoAllocation, error) {
	return nil, fmt.Errorf("promo code %q not recognized", promoCode)
}
