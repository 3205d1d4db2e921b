package domain

import "github.com/shopspring/decimal"

// RoutePassStatus is the lifecycle state of a RoutePass.
type RoutePassStatus string

const (
	RoutePassValid    RoutePassStatus = "valid"
	RoutePassVoid     RoutePassStatus = "void"
	RoutePassExpired  RoutePassStatus = "expired"
	RoutePassRefunded RoutePassStatus = "refunded"
	RoutePassFailed   RoutePassStatus = "failed"
)

// RoutePassNotes carries the purchase price, accumulated discount, and
// (once refunded) the refund Transaction id of a RoutePass.
type RoutePassNotes struct {
	Price                 decimal.Decimal
	DiscountValue         decimal.Decimal
	RefundedTransactionID string
}

// RoutePass is a prepaid, tag-scoped credit redeemable for a single ticket
// on any trip whose route carries the matching tag.
type RoutePass struct {
	ID        string
	UserID    string
	CompanyID string
	Tag       string
	Status    RoutePassStatus
	Notes     RoutePassNotes
	AuditFields
}

// Refundable reports whether s is eligible for refund: only valid, void,
// and expired passes may be refunded.
func (s RoutePassStatus) Refundable() bool {
	switch s {
	case RoutePassValid, RoutePassVoid, RoutePassExpired:
		return true
	default:
		return false
	}
}
