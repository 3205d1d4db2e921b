// Package gateway defines the payment-gateway contract: a narrow interface
// with Charge/Refund/RetrieveCharge/FeeCents/MinChargeCents/IsMicro/
// IsLocalAndNonAmex, so both a real HTTPS implementation and an in-memory
// mock can satisfy it.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/marwanAmeen/beeline-server/internal/domain"
)

// ChargeRequest is the input to Charge.
type ChargeRequest struct {
	Value                decimal.Decimal
	Description          string
	StatementDescriptor  string
	Destination          string // merchant id (clientId or sandboxId)
	IdempotencyKey       string
	Source               string // source token, when charging a bare card source
	Customer             string // customer id, when charging a saved source
	CustomerSourceID     string
}

// ChargeResult mirrors the gateway's charge response.
type ChargeResult struct {
	ID          string
	AmountCents int64
	Source      string
}

// RefundInfo is the output of generateRefundInfo.
type RefundInfo struct {
	ProcessingFee   decimal.Decimal
	Charge          domain.Charge
	IsMicro         bool
	BalanceAmtCents int64
	Amount          decimal.Decimal
	IdempotencyKey  string
}

// Gateway is the narrow external-payment-gateway contract.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	Refund(ctx context.Context, chargeID string, amountCents int64, idempotencyKey string) error
	RetrieveCharge(ctx context.Context, resourceID string) (domain.Charge, error)
	FeeCents(amountCents int64, isMicro, isLocalAndNonAmex bool) int64
	MinChargeCents() int64
	IsMicro(amountCents int64) bool
	IsLocalAndNonAmex(source string) bool
}
