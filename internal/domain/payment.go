package domain

// PaymentOptions carries gateway-relevant flags about a Payment.
type PaymentOptions struct {
	IsMicro bool
}

// Payment is the external-gateway record 1:1 with the payment line of a
// Transaction.
type Payment struct {
	ID              string
	TransactionID   string
	PaymentResource string // gateway charge id once chargeSale succeeds
	Data            any    // raw gateway charge payload, or an error payload on failure
	Options         PaymentOptions
	AuditFields
}

// Charge is the gateway-side record referenced by a Payment. Amounts are
// in cents, matching the gateway's own wire representation.
type Charge struct {
	ID             string
	AmountCents    int64
	RefundedCents  int64
	Source         string
}

// BalanceCents is the amount of this charge not yet refunded.
func (c Charge) BalanceCents() int64 {
	return c.AmountCents - c.RefundedCents
}
