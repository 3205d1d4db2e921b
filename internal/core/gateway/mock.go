package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/marwanAmeen/beeline-server/internal/domain"
)

// MockGateway is an in-memory Gateway implementation for property-based
// tests without network I/O.
type MockGateway struct {
	MinCharge       int64
	MicroThreshold  int64
	charges         map[string]domain.Charge
	seenIdempotency map[string]ChargeResult
}

func NewMockGateway(minChargeCents, microThresholdCents int64) *MockGateway {
	return &MockGateway{
		MinCharge:       minChargeCents,
		MicroThreshold:  microThresholdCents,
		charges:         map[string]domain.Charge{},
		seenIdempotency: map[string]ChargeResult{},
	}
}

func (m *MockGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if prior, ok := m.seenIdempotency[req.IdempotencyKey]; ok {
		return prior, nil
	}
	amountCents := req.Value.Mul(decimalHundred).Round(0).IntPart()
	result := ChargeResult{ID: uuid.NewString(), AmountCents: amountCents, Source: req.Source}
	m.charges[result.ID] = domain.Charge{ID: result.ID, AmountCents: amountCents, Source: req.Source}
	m.seenIdempotency[req.IdempotencyKey] = result
	return result, nil
}

func (m *MockGateway) Refund(ctx context.Context, chargeID string, amountCents int64, idempotencyKey string) error {
	charge, ok := m.charges[chargeID]
	if !ok {
		return fmt.Errorf("unknown charge %s", chargeID)
	}
	charge.RefundedCents += amountCents
	m.charges[chargeID] = charge
	return nil
}

func (m *MockGateway) RetrieveCharge(ctx context.Context, resourceID string) (domain.Charge, error) {
	charge, ok := m.charges[resourceID]
	if !ok {
		return domain.Charge{}, fmt.Errorf("unknown charge %s", resourceID)
	}
	return charge, nil
}

func (m *MockGateway) FeeCents(amountCents int64, isMicro, isLocalAndNonAmex bool) int64 {
	if isMicro {
		return amountCents*5/100 + 5
	}
	return amountCents*29/1000 + 30
}

func (m *MockGateway) MinChargeCents() int64 { return m.MinCharge }

func (m *MockGateway) IsMicro(amountCents int64) bool { return amountCents < m.MicroThreshold }

func (m *MockGateway) IsLocalAndNonAmex(source string) bool { return source != "" && source != "amex" }
