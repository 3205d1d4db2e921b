package domain

import "github.com/shopspring/decimal"

// TicketStatus is the lifecycle state of a Ticket.
type TicketStatus string

const (
	TicketPending  TicketStatus = "pending"
	TicketValid    TicketStatus = "valid"
	TicketVoid     TicketStatus = "void"
	TicketFailed   TicketStatus = "failed"
	TicketRefunded TicketStatus = "refunded"
)

// TicketNotes carries the accumulating discount applied to a ticket and,
// once refunded, the id of the refund Transaction.
type TicketNotes struct {
	DiscountValue         decimal.Decimal
	RefundedTransactionID string
}

// Ticket represents a single booked seat on a Trip.
// Created pending during a sale, transitions to valid once the sale has
// committed and its charge (if any) has succeeded, and to refunded or
// failed via later workflows.
type Ticket struct {
	ID           string
	UserID       string
	TripID       string
	BoardStopID  string
	AlightStopID string
	Status       TicketStatus
	Notes        TicketNotes
	AuditFields
}

// OutstandingAfterDiscount returns saleCredit minus whatever has already
// been allocated to this ticket's Notes.DiscountValue. Never negative.
func (t Ticket) OutstandingAfterDiscount(saleCredit decimal.Decimal) decimal.Decimal {
	out := saleCredit.Sub(t.Notes.DiscountValue)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}
