package ledger

import "github.com/shopspring/decimal"

// OutstandingItem is one candidate for a proportional discount allocation:
// its id and its current outstanding (undiscounted-so-far) amount.
type OutstandingItem struct {
	ItemID      string
	ItemType    string // carried through by callers, not interpreted here
	Outstanding decimal.Decimal
}

// AllocateProportionally distributes total across items in proportion to
// each item's Outstanding amount, rounding every share to the nearest cent
// and assigning whatever remains after rounding to the last eligible item,
// so the sum of allocations equals total exactly. Items with zero or
// negative outstanding amount receive no allocation and are skipped when
// choosing which item is last.
func AllocateProportionally(total decimal.Decimal, items []OutstandingItem) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(items))
	if total.IsZero() || len(items) == 0 {
		return out
	}

	sumOutstanding := decimal.Zero
	var eligible []OutstandingItem
	for _, it := range items {
		if it.Outstanding.IsPositive() {
			sumOutstanding = sumOutstanding.Add(it.Outstanding)
			eligible = append(eligible, it)
		}
	}
	if len(eligible) == 0 {
		return out
	}

	allocated := decimal.Zero
	for i, it := range eligible {
		if i == len(eligible)-1 {
			out[it.ItemID] = total.Sub(allocated)
			continue
		}
		share := total.Mul(it.Outstanding).DivRound(sumOutstanding, 2).Round(2)
		out[it.ItemID] = share
		allocated = allocated.Add(share)
	}
	return out
}
