package domain

import "github.com/shopspring/decimal"

// TransactionType identifies what kind of financial event a Transaction
// represents.
type TransactionType string

const (
	TransactionTicketPurchase    TransactionType = "ticketPurchase"
	TransactionRoutePassPurchase TransactionType = "routePassPurchase"
	TransactionRefundPayment     TransactionType = "refundPayment"
)

// ZeroSumTolerance is the tolerance against which a Transaction's signed
// items must sum to zero.
var ZeroSumTolerance = decimal.New(1, -6)

// Transaction is a balanced journal entry: a set of debit/credit line
// items that must sum to zero within ZeroSumTolerance. It exclusively owns
// its Items.
type Transaction struct {
	ID                   string
	Type                 TransactionType
	Committed            bool
	Description          string
	CreatedBy            Creator
	Items                []TransactionItem
	RelatedTransactionID string // set on a reversal, pointing back at the transaction it reverses
	AuditFields
}

// SignedSum returns Σ debit − Σ credit across all items.
func (t Transaction) SignedSum() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range t.Items {
		sum = sum.Add(item.Debit).Sub(item.Credit)
	}
	return sum
}

// IsZeroSum reports whether the transaction balances within tol.
func (t Transaction) IsZeroSum(tol decimal.Decimal) bool {
	return t.SignedSum().Abs().LessThan(tol)
}

// ItemsOfType returns the typed slice of items matching itemType, a direct
// filter rather than a string-keyed map lookup.
func (t Transaction) ItemsOfType(itemType ItemType) []TransactionItem {
	var out []TransactionItem
	for _, item := range t.Items {
		if item.ItemType == itemType {
			out = append(out, item)
		}
	}
	return out
}

// SingleCounterpartyCompany returns the one distinct transportCompanyId
// shared by all transfer/routePass items, or "" with ok=false if the
// transaction names zero or more than one company.
func (t Transaction) SingleCounterpartyCompany() (companyID string, ok bool) {
	seen := map[string]struct{}{}
	for _, item := range t.Items {
		switch item.ItemType {
		case ItemTransfer, ItemRoutePass:
			if item.CompanyID != "" {
				seen[item.CompanyID] = struct{}{}
			}
		}
	}
	if len(seen) != 1 {
		return "", false
	}
	for id := range seen {
		return id, true
	}
	return "", false
}
