package lock

import (
	"context"
	"encoding/json"

	"github.com/marwanAmeen/beeline-server/internal/core/gateway"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

// CachingGateway decorates a gateway.Gateway with the IdempotencyCache
// short-circuit: a Charge/Refund retry within the cache's ttl returns the
// previously recorded outcome without a second network round trip, on top
// of the gateway's own server-side idempotency guarantee.
type CachingGateway struct {
	inner gateway.Gateway
	cache *IdempotencyCache
}

func NewCachingGateway(inner gateway.Gateway, cache *IdempotencyCache) *CachingGateway {
	return &CachingGateway{inner: inner, cache: cache}
}

var _ gateway.Gateway = (*CachingGateway)(nil)

func (g *CachingGateway) Charge(ctx context.Context, req gateway.ChargeRequest) (gateway.ChargeResult, error) {
	if outcome, found, err := g.cache.Outcome(ctx, req.IdempotencyKey); err == nil && found {
		var result gateway.ChargeResult
		if jsonErr := json.Unmarshal([]byte(outcome), &result); jsonErr == nil {
			return result, nil
		}
	}

	result, err := g.inner.Charge(ctx, req)
	if err != nil {
		return result, err
	}

	if encoded, jsonErr := json.Marshal(result); jsonErr == nil {
		_ = g.cache.Record(ctx, req.IdempotencyKey, string(encoded))
	}
	return result, nil
}

func (g *CachingGateway) Refund(ctx context.Context, chargeID string, amountCents int64, idempotencyKey string) error {
	if _, found, err := g.cache.Outcome(ctx, idempotencyKey); err == nil && found {
		return nil
	}

	if err := g.inner.Refund(ctx, chargeID, amountCents, idempotencyKey); err != nil {
		return err
	}
	_ = g.cache.Record(ctx, idempotencyKey, "refunded")
	return nil
}

func (g *CachingGateway) RetrieveCharge(ctx context.Context, resourceID string) (domain.Charge, error) {
	return g.inner.RetrieveCharge(ctx, resourceID)
}

func (g *CachingGateway) FeeCents(amountCents int64, isMicro, isLocalAndNonAmex bool) int64 {
	return g.inner.FeeCents(amountCents, isMicro, isLocalAndNonAmex)
}

func (g *CachingGateway) MinChargeCents() int64 { return g.inner.MinChargeCents() }

func (g *CachingGateway) IsMicro(amountCents int64) bool { return g.inner.IsMicro(amountCents) }

func (g *CachingGateway) IsLocalAndNonAmex(source string) bool {
	return g.inner.IsLocalAndNonAmex(source)
}
