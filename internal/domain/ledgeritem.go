package domain

import "github.com/shopspring/decimal"

// EntryType indicates whether a line item is a debit or a credit posting.
// Named EntryType rather than TransactionType to avoid colliding with
// Transaction, the ticket-sale/refund/purchase aggregate in this domain
// (see transaction.go).
type EntryType string

const (
	Debit  EntryType = "DEBIT"
	Credit EntryType = "CREDIT"
)

// ItemType tags which typed variant a TransactionItem represents: one of
// ticketSale, ticketRefund, routePass, discount, payment, transfer, or
// account.
type ItemType string

const (
	ItemTicketSale   ItemType = "ticketSale"
	ItemTicketRefund ItemType = "ticketRefund"
	ItemRoutePass    ItemType = "routePass"
	ItemDiscount     ItemType = "discount"
	ItemPayment      ItemType = "payment"
	ItemTransfer     ItemType = "transfer"
	ItemAccount      ItemType = "account" // COGS mirror line
)

// TransactionItem is one debit-or-credit posting against a typed account or
// entity. Exactly one of Debit/Credit is positive; the fixed itemType tag
// groups items by kind instead of a parallel string-keyed map.
type TransactionItem struct {
	ID            string
	TransactionID string
	ItemType      ItemType
	ItemID        string // weak reference to Ticket/RoutePass id, empty when not applicable
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Notes         string
	CompanyID     string // set on payment/transfer/routePass items
	AuditFields
}

// SignedAmount returns the single non-zero signed leg of this item: positive
// for a debit, negative for a credit.
func (t TransactionItem) SignedAmount() decimal.Decimal {
	if t.Debit.IsPositive() {
		return t.Debit
	}
	return t.Credit.Neg()
}

// IsDebit reports whether this item posts as a debit.
func (t TransactionItem) IsDebit() bool {
	return t.Debit.IsPositive()
}

// NewDebit constructs a debit TransactionItem of the given type.
func NewDebit(itemType ItemType, amount decimal.Decimal, itemID, notes string) TransactionItem {
	return TransactionItem{
		ItemType: itemType,
		ItemID:   itemID,
		Debit:    amount,
		Credit:   decimal.Zero,
		Notes:    notes,
	}
}

// NewCredit constructs a credit TransactionItem of the given type.
func NewCredit(itemType ItemType, amount decimal.Decimal, itemID, notes string) TransactionItem {
	return TransactionItem{
		ItemType: itemType,
		ItemID:   itemID,
		Debit:    decimal.Zero,
		Credit:   amount,
		Notes:    notes,
	}
}
