// Package ports declares the repository and gateway interfaces the core
// ledger engine depends on: reader/writer/facade interfaces composed per
// entity, plus a transaction manager for DB tx lifecycle.
package ports

import (
	"context"

	"github.com/marwanAmeen/beeline-server/internal/domain"
)

// IsoLevel names a database transaction isolation level.
type IsoLevel string

const (
	IsoRepeatableRead IsoLevel = "REPEATABLE READ"
	IsoSerializable   IsoLevel = "SERIALIZABLE"
	IsoReadCommitted  IsoLevel = "READ COMMITTED"
)

// DBTx is the subset of a database transaction the core layer drives
// directly; concrete implementations wrap pgx.Tx.
type DBTx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxManager opens a database transaction at a declared isolation level.
// Workflows call Begin exactly once per attempt and defer Rollback,
// committing explicitly on success.
type TxManager interface {
	Begin(ctx context.Context, iso IsoLevel) (context.Context, DBTx, error)
}

// TripReader loads the read-only Trip/TripStop/Route/TransportCompany data
// a workflow needs.
type TripReader interface {
	// FindTripForBooking loads a Trip with its stops, locking the row
	// FOR UPDATE when forUpdate is true.
	FindTripForBooking(ctx context.Context, tripID string, forUpdate bool) (*domain.Trip, error)
	FindRouteByID(ctx context.Context, routeID string) (*domain.Route, error)
	FindTransportCompanyByID(ctx context.Context, companyID string) (*domain.TransportCompany, error)
	// NextUpcomingTripByTag finds the next running trip of any route
	// carrying tag, used by RoutePassPurchaseWorkflow to derive price.
	NextUpcomingTripByTag(ctx context.Context, tag string) (*domain.Trip, error)
}

// TripWriter adjusts Trip.SeatsAvailable.
type TripWriter interface {
	DecrementSeatsAvailable(ctx context.Context, tripID string, n int) error
	IncrementSeatsAvailable(ctx context.Context, tripID string, n int) error
}

// TicketReader queries Tickets for duplicate-booking and refund checks.
type TicketReader interface {
	FindTicketByID(ctx context.Context, ticketID string) (*domain.Ticket, error)
	// FindActiveTicketForUserTrip returns the user's existing ticket for
	// tripID in status valid or pending, if any, other than excludeTicketID.
	FindActiveTicketForUserTrip(ctx context.Context, userID, tripID, excludeTicketID string) (*domain.Ticket, error)
}

// TicketWriter persists Ticket creation and status transitions.
type TicketWriter interface {
	InsertPendingTicket(ctx context.Context, t *domain.Ticket) error
	UpdateTicketStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error
	UpdateTicketDiscount(ctx context.Context, ticketID string, discountValue string) error
	// UpdateTicketRefund moves a ticket to status (normally refunded) and
	// records the refund Transaction's id onto notes.refundedTransactionId.
	UpdateTicketRefund(ctx context.Context, ticketID string, status domain.TicketStatus, refundedTransactionID string) error
}

// RoutePassReader queries RoutePasses for redemption and refund.
type RoutePassReader interface {
	FindRoutePassByID(ctx context.Context, id string) (*domain.RoutePass, error)
	// FindRedeemableRoutePasses returns valid passes for (userID, tag,
	// companyID).
	FindRedeemableRoutePasses(ctx context.Context, userID, tag, companyID string, limit int) ([]*domain.RoutePass, error)
}

// RoutePassWriter persists RoutePass creation and status transitions.
type RoutePassWriter interface {
	InsertRoutePass(ctx context.Context, p *domain.RoutePass) error
	UpdateRoutePassStatus(ctx context.Context, id string, status domain.RoutePassStatus) error
	UpdateRoutePassDiscount(ctx context.Context, id string, discountValue string) error
	// UpdateRoutePassRefund moves a pass to status (normally refunded) and
	// records the refund Transaction's id onto notes.refundedTransactionId.
	UpdateRoutePassRefund(ctx context.Context, id string, status domain.RoutePassStatus, refundedTransactionID string) error
}

// TransactionWriter persists a built Transaction and its items.
type TransactionWriter interface {
	SaveTransaction(ctx context.Context, tx *domain.Transaction) error
	UpdateTransactionCommitted(ctx context.Context, transactionID string, committed bool) error
}

// TransactionReader loads a previously persisted Transaction, needed by
// RefundWorkflow and cancelSale.
type TransactionReader interface {
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	// FindTicketSaleTransaction locates the Transaction carrying the
	// ticketSale item for ticketID, so RefundWorkflow can read its credit.
	FindTicketSaleTransaction(ctx context.Context, ticketID string) (*domain.Transaction, error)
	// FindRoutePassPurchaseTransaction locates the Transaction carrying the
	// routePass purchase item for routePassID, so RefundWorkflow can find
	// its Payment row.
	FindRoutePassPurchaseTransaction(ctx context.Context, routePassID string) (*domain.Transaction, error)
}

// PaymentWriter persists the Payment row's outcome.
type PaymentWriter interface {
	InsertPayment(ctx context.Context, p *domain.Payment) error
	UpdatePaymentSuccess(ctx context.Context, paymentID, paymentResource string, data any, isMicro bool) error
	UpdatePaymentFailure(ctx context.Context, paymentID string, errData any) error
	FindPaymentByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)
}

// RepositoryProvider groups every repository facade the core layer
// depends on into one aggregate.
type RepositoryProvider struct {
	Tx          TxManager
	Trips       TripReader
	TripWrites  TripWriter
	Tickets     interface {
		TicketReader
		TicketWriter
	}
	RoutePasses interface {
		RoutePassReader
		RoutePassWriter
	}
	Transactions interface {
		TransactionReader
		TransactionWriter
	}
	Payments  PaymentWriter
	Reporting ReportingRepository
}

// AuthCollaborator asserts admin-role authorization for a company-scoped
// action.
type AuthCollaborator interface {
	AssertAdminRole(ctx context.Context, creds domain.Credentials, action, companyID string) error
}

// Locker acquires an advisory, process-external lock for the duration of a
// workflow's critical section, guarding against two concurrent attempts at
// the same booking/refund both reaching the payment gateway before either
// commits.
type Locker interface {
	// Lock blocks until key is acquired, ctx is done, or the
	// implementation gives up retrying. On success the returned release
	// func is safe to call exactly once; when Lock returns an error the
	// release func may be nil and is not to be called.
	Lock(ctx context.Context, key string) (release func(ctx context.Context) error, err error)
}

// OutboxWriter records an outbox message. When ctx carries an in-flight
// database transaction the message is written on it and commits or rolls
// back with it; otherwise it is written on its own.
type OutboxWriter interface {
	Record(ctx context.Context, topic, key string, payload any) error
}

// PromoRuleEngine evaluates a promo code against the builder's current
// items. Treated as an external collaborator; only its
// interface with the builder is specified here.
type PromoRuleEngine interface {
	Evaluate(ctx context.Context, promoCode string, scope PromoScope, outstanding []PromoLine) ([]PromoAllocation, error)
}

// PromoScope selects which family of items a promo code may discount.
type PromoScope string

const (
	PromoScopePromotion PromoScope = "Promotion"
	PromoScopeRoutePass  PromoScope = "RoutePass"
)

// PromoLine is the minimal view of an outstanding item the rule engine
// needs to decide allocations.
type PromoLine struct {
	ItemID      string
	ItemType    domain.ItemType
	Outstanding string // decimal string, avoids importing shopspring/decimal into the external contract
}

// PromoAllocation is one rule-engine decision: discount this much off this
// item.
type PromoAllocation struct {
	ItemID string
	Amount string
}
