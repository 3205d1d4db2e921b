package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// ManifestEntry is one booked seat on a trip, as shown on a trip manifest.
type ManifestEntry struct {
	TicketID     string
	UserID       string
	BoardStopID  string
	AlightStopID string
	Status       string
}

// TripManifest is the read-only projection of every ticket booked against
// a single trip, regardless of status.
type TripManifest struct {
	TripID         string
	SeatsAvailable int
	Entries        []ManifestEntry
}

// AccountLedgerEntry is one route pass a user holds against a company/tag
// pair, with its current outstanding balance against its purchase price.
type AccountLedgerEntry struct {
	RoutePassID        string
	Tag                string
	Status             string
	Price              decimal.Decimal
	DiscountValue      decimal.Decimal
	OutstandingBalance decimal.Decimal
}

// AccountLedger is the read-only projection of every route pass a user
// holds, optionally scoped to one company.
type AccountLedger struct {
	UserID  string
	Entries []AccountLedgerEntry
}

// ReportingRepository serves the read-only projections over
// tickets/trips and route passes. These add no invariant of their own;
// every row comes from tables already written by the sale, route-pass
// purchase, and refund workflows.
type ReportingRepository interface {
	TripManifest(ctx context.Context, tripID string) (*TripManifest, error)
	AccountLedger(ctx context.Context, userID, companyID string) (*AccountLedger, error)
}
