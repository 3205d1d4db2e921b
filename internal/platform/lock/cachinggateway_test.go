package lock_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marwanAmeen/beeline-server/internal/core/gateway"
	"github.com/marwanAmeen/beeline-server/internal/domain"
	"github.com/marwanAmeen/beeline-server/internal/platform/lock"
)

// fakeGateway counts Charge/Refund invocations so tests can assert whether
// the cache short-circuited the call.
type fakeGateway struct {
	chargeCalls int
	refundCalls int
	chargeResult gateway.ChargeResult
	chargeErr    error
}

func (f *fakeGateway) Charge(ctx context.Context, req gateway.ChargeRequest) (gateway.ChargeResult, error) {
	f.chargeCalls++
	return f.chargeResult, f.chargeErr
}

func (f *fakeGateway) Refund(ctx context.Context, chargeID string, amountCents int64, idempotencyKey string) error {
	f.refundCalls++
	return nil
}

func (f *fakeGateway) RetrieveCharge(ctx context.Context, resourceID string) (domain.Charge, error) {
	return domain.Charge{}, nil
}

func (f *fakeGateway) FeeCents(amountCents int64, isMicro, isLocalAndNonAmex bool) int64 { return 0 }
func (f *fakeGateway) MinChargeCents() int64                                            { return 0 }
func (f *fakeGateway) IsMicro(amountCents int64) bool                                    { return false }
func (f *fakeGateway) IsLocalAndNonAmex(source string) bool                              { return false }

// unreachableRedisClient points at a port nothing listens on, so every
// cache lookup fails fast with a connection error: IdempotencyCache.Outcome
// returns found=false with that error, which CachingGateway treats as a
// miss, so it must fall through to inner on every call.
func unreachableRedisClient() *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:19999",
		DialTimeout: 200 * time.Millisecond,
	})
}

func TestCachingGatewayFallsThroughOnCacheMiss(t *testing.T) {
	inner := &fakeGateway{chargeResult: gateway.ChargeResult{ID: "ch_1", AmountCents: 500}}
	cache := lock.NewIdempotencyCache(unreachableRedisClient(), time.Minute)
	gw := lock.NewCachingGateway(inner, cache)

	result, err := gw.Charge(context.Background(), gateway.ChargeRequest{IdempotencyKey: "key-1"})
	require.NoError(t, err)
	assert.Equal(t, "ch_1", result.ID)
	assert.Equal(t, 1, inner.chargeCalls)
}

func TestCachingGatewayRefundFallsThroughOnCacheMiss(t *testing.T) {
	inner := &fakeGateway{}
	cache := lock.NewIdempotencyCache(unreachableRedisClient(), time.Minute)
	gw := lock.NewCachingGateway(inner, cache)

	err := gw.Refund(context.Background(), "ch_1", 500, "refund-key-1")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.refundCalls)
}

func TestCachingGatewayDelegatesFeeAndMinChargeAccessors(t *testing.T) {
	inner := &fakeGateway{}
	cache := lock.NewIdempotencyCache(unreachableRedisClient(), time.Minute)
	gw := lock.NewCachingGateway(inner, cache)

	assert.Equal(t, int64(0), gw.MinChargeCents())
	assert.False(t, gw.IsMicro(100))
	assert.False(t, gw.IsLocalAndNonAmex("src"))
}
