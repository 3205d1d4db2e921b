package gateway_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/marwanAmeen/beeline-server/internal/core/gateway"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

func TestGenerateRefundInfo_ComputesFeeDelta(t *testing.T) {
	ctx := context.Background()
	g := gateway.NewMockGateway(50, 100)
	charge, err := g.Charge(ctx, gateway.ChargeRequest{Value: decimal.NewFromInt(20), Source: "card_local", IdempotencyKey: "instance=test,bookingId=tx-3,session=1"})
	assert.NoError(t, err)

	payment := domain.Payment{PaymentResource: charge.ID, Options: domain.PaymentOptions{IsMicro: false}}
	info, err := gateway.GenerateRefundInfo(ctx, g, payment, decimal.NewFromInt(10), "Refund:instance=test,ticketId=t-9")
	assert.NoError(t, err)
	assert.Equal(t, int64(2000), info.BalanceAmtCents)
	assert.True(t, info.Amount.Equal(decimal.NewFromInt(10)))
	assert.False(t, info.IsMicro)
}

func TestGenerateRefundInfo_RejectsAmountExceedingBalance(t *testing.T) {
	ctx := context.Background()
	g := gateway.NewMockGateway(50, 100)
	charge, err := g.Charge(ctx, gateway.ChargeRequest{Value: decimal.NewFromInt(5), IdempotencyKey: "instance=test,bookingId=tx-4,session=1"})
	assert.NoError(t, err)

	payment := domain.Payment{PaymentResource: charge.ID}
	_, err = gateway.GenerateRefundInfo(ctx, g, payment, decimal.NewFromInt(10), "Refund:instance=test,ticketId=t-10")
	assert.Error(t, err)
}
