package gateway_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/marwanAmeen/beeline-server/internal/core/gateway"
)

func TestMockGateway_SameIdempotencyKeyProducesOneCharge(t *testing.T) {
	g := gateway.NewMockGateway(50, 100)
	ctx := context.Background()
	req := gateway.ChargeRequest{Value: decimal.NewFromInt(15), IdempotencyKey: "instance=test,bookingId=tx-1,session=1"}

	first, err := g.Charge(ctx, req)
	assert.NoError(t, err)
	second, err := g.Charge(ctx, req)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "repeated calls with the same idempotency key must return the same charge")
}

func TestMockGateway_RefundReducesBalance(t *testing.T) {
	g := gateway.NewMockGateway(50, 100)
	ctx := context.Background()
	charge, err := g.Charge(ctx, gateway.ChargeRequest{Value: decimal.NewFromInt(10), IdempotencyKey: "instance=test,bookingId=tx-2,session=1"})
	assert.NoError(t, err)

	err = g.Refund(ctx, charge.ID, 300, "Refund:instance=test,ticketId=t-1")
	assert.NoError(t, err)

	retrieved, err := g.RetrieveCharge(ctx, charge.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(300), retrieved.RefundedCents)
	assert.Equal(t, int64(700), retrieved.BalanceCents())
}
