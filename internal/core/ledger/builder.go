// Package ledger implements the TransactionBuilder: an in-memory assembly
// of typed line items that finalizes into a zero-sum, balanced journal
// entry, built around a mutable builder value accumulated across a
// staged pipeline (init, checks, discounts, finalize, build).
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

// TicketSaleRequest is one requested leg of a ticket sale: the trip and
// boarding/alighting stops a single ticket covers.
type TicketSaleRequest struct {
	TripID       string
	BoardStopID  string
	AlightStopID string
	UserID       string
}

// UndoOp is a recorded compensating action. Each variant is independently
// idempotent.
type UndoOp interface {
	Apply(ctx context.Context, repos *ports.RepositoryProvider) error
}

// RestoreTicketStatus reverts a Ticket to its status prior to the builder's
// mutation.
type RestoreTicketStatus struct {
	TicketID string
	Prior    domain.TicketStatus
}

func (u RestoreTicketStatus) Apply(ctx context.Context, repos *ports.RepositoryProvider) error {
	return repos.Tickets.UpdateTicketStatus(ctx, u.TicketID, u.Prior)
}

// RestoreRoutePassStatus reverts a RoutePass to its status prior to the
// builder's mutation.
type RestoreRoutePassStatus struct {
	RoutePassID string
	Prior       domain.RoutePassStatus
}

func (u RestoreRoutePassStatus) Apply(ctx context.Context, repos *ports.RepositoryProvider) error {
	return repos.RoutePasses.UpdateRoutePassStatus(ctx, u.RoutePassID, u.Prior)
}

// RestoreSeatAvailability gives back a seat consumed by a since-failed
// sale attempt.
type RestoreSeatAvailability struct {
	TripID string
	Seats  int
}

func (u RestoreSeatAvailability) Apply(ctx context.Context, repos *ports.RepositoryProvider) error {
	return repos.TripWrites.IncrementSeatsAvailable(ctx, u.TripID, u.Seats)
}

// postHook runs against the same DB transaction the builder's items were
// persisted in.
type postHook func(ctx context.Context, repos *ports.RepositoryProvider) error

// UndoFn replays a builder's recorded undo operations in reverse order
// against the ctx and repos it is called with. It does not open a DB
// transaction of its own.
type UndoFn func(ctx context.Context, repos *ports.RepositoryProvider) error

// Builder accumulates TransactionItems for a single Transaction. Callers
// needing a typed slice use ItemsOfType, a direct filter over Items rather
// than a parallel string-keyed map.
type Builder struct {
	Items       []domain.TransactionItem
	TripsByID   map[string]*domain.Trip
	Description string
	Creator     domain.Creator
	Committed   bool
	DryRun      bool

	ticketsTouched    map[string]*domain.Ticket
	routePassesTouched map[string]*domain.RoutePass
	postHooks         []postHook
	undoOps           []UndoOp
	relatedTxnID      string
}

// New constructs an empty Builder.
func New(creator domain.Creator, committed, dryRun bool, description string) *Builder {
	return &Builder{
		TripsByID:          map[string]*domain.Trip{},
		Description:        description,
		Creator:            creator,
		Committed:          committed,
		DryRun:             dryRun,
		ticketsTouched:     map[string]*domain.Ticket{},
		routePassesTouched: map[string]*domain.RoutePass{},
	}
}

// ItemsOfType returns the items matching itemType in insertion order.
func (b *Builder) ItemsOfType(itemType domain.ItemType) []domain.TransactionItem {
	var out []domain.TransactionItem
	for _, item := range b.Items {
		if item.ItemType == itemType {
			out = append(out, item)
		}
	}
	return out
}

// TicketsTouched returns the Tickets this builder has created or mutated,
// keyed by ID, for use by checks and appliers that need the in-memory
// state rather than re-reading the repository.
func (b *Builder) TicketsTouched() map[string]*domain.Ticket { return b.ticketsTouched }

// RoutePassesTouched returns the RoutePasses this builder has mutated.
func (b *Builder) RoutePassesTouched() map[string]*domain.RoutePass { return b.routePassesTouched }

// InitForTicketSale loads each requested trip, creates a pending Ticket
// for it (unless dry-run), and pushes a ticketSale credit line equal to
// the trip price.
func (b *Builder) InitForTicketSale(ctx context.Context, repos *ports.RepositoryProvider, reqs []TicketSaleRequest) error {
	for _, req := range reqs {
		trip, ok := b.TripsByID[req.TripID]
		if !ok {
			loaded, err := repos.Trips.FindTripForBooking(ctx, req.TripID, true)
			if err != nil {
				return fmt.Errorf("loading trip %s: %w", req.TripID, err)
			}
			trip = loaded
			b.TripsByID[req.TripID] = trip
		}

		ticket := &domain.Ticket{
			ID:           uuid.NewString(),
			UserID:       req.UserID,
			TripID:       req.TripID,
			BoardStopID:  req.BoardStopID,
			AlightStopID: req.AlightStopID,
			Status:       domain.TicketPending,
		}
		if !b.DryRun {
			if err := repos.Tickets.InsertPendingTicket(ctx, ticket); err != nil {
				return fmt.Errorf("inserting pending ticket for trip %s: %w", req.TripID, err)
			}
			if err := repos.TripWrites.DecrementSeatsAvailable(ctx, req.TripID, 1); err != nil {
				return fmt.Errorf("decrementing seat availability for trip %s: %w", req.TripID, err)
			}
			b.undoOps = append(b.undoOps, RestoreSeatAvailability{TripID: req.TripID, Seats: 1})
		}
		b.ticketsTouched[ticket.ID] = ticket

		b.Items = append(b.Items, domain.NewCredit(domain.ItemTicketSale, trip.Price, ticket.ID, ""))

		b.undoOps = append(b.undoOps, RestoreTicketStatus{TicketID: ticket.ID, Prior: domain.TicketFailed})
	}
	return nil
}

// InitForRoutePassPurchase creates quantity RoutePass rows (unless dry-run)
// for userID/companyID/tag, each priced at pricePerPass, and pushes a
// routePass credit line per pass equal to pricePerPass.
func (b *Builder) InitForRoutePassPurchase(ctx context.Context, repos *ports.RepositoryProvider, userID, companyID, tag string, quantity int, pricePerPass decimal.Decimal) ([]*domain.RoutePass, error) {
	passes := make([]*domain.RoutePass, 0, quantity)
	for i := 0; i < quantity; i++ {
		pass := &domain.RoutePass{
			ID:        uuid.NewString(),
			UserID:    userID,
			CompanyID: companyID,
			Tag:       tag,
			Status:    domain.RoutePassValid,
			Notes:     domain.RoutePassNotes{Price: pricePerPass},
		}
		if !b.DryRun {
			if err := repos.RoutePasses.InsertRoutePass(ctx, pass); err != nil {
				return nil, fmt.Errorf("inserting route pass %d/%d: %w", i+1, quantity, err)
			}
			b.undoOps = append(b.undoOps, RestoreRoutePassStatus{RoutePassID: pass.ID, Prior: domain.RoutePassVoid})
		}
		b.routePassesTouched[pass.ID] = pass
		passes = append(passes, pass)

		item := domain.NewCredit(domain.ItemRoutePass, pricePerPass, pass.ID, "")
		item.CompanyID = companyID
		b.Items = append(b.Items, item)
	}
	return passes, nil
}

// ReverseItemsOf appends one item per item in original with debit and
// credit swapped and itemType/itemId/notes/companyId carried over
// unchanged, the same flip-the-sign-keep-the-rest transformation a journal
// reversal applies line by line. Since original is already zero-sum, the
// reversal is too.
func (b *Builder) ReverseItemsOf(original *domain.Transaction) {
	for _, item := range original.Items {
		b.Items = append(b.Items, domain.TransactionItem{
			ItemType:  item.ItemType,
			ItemID:    item.ItemID,
			Notes:     item.Notes,
			CompanyID: item.CompanyID,
			Debit:     item.Credit,
			Credit:    item.Debit,
		})
	}
}

// SetRelatedTransaction records the id of the transaction this builder's
// result reverses or otherwise relates to; Build copies it onto the
// persisted Transaction's RelatedTransactionID.
func (b *Builder) SetRelatedTransaction(id string) {
	b.relatedTxnID = id
}

// DiscountAllocation is one item's share of a discount total.
type DiscountAllocation struct {
	ItemID     string
	ItemType   domain.ItemType // ItemTicketSale or ItemRoutePass: which entity owns this allocation's notes.discountValue
	Amount     decimal.Decimal
}

// ApplyDiscount subtracts each allocation from its item's outstanding
// amount, accumulates it onto the item's notes.discountValue, and pushes a
// single discount debit line equal to the sum of allocations.
func (b *Builder) ApplyDiscount(ctx context.Context, repos *ports.RepositoryProvider, allocations []DiscountAllocation, kind string) error {
	if len(allocations) == 0 {
		return nil
	}
	total := decimal.Zero
	for _, alloc := range allocations {
		total = total.Add(alloc.Amount)
		if err := b.accumulateDiscount(ctx, repos, alloc); err != nil {
			return err
		}
	}
	b.Items = append(b.Items, domain.NewDebit(domain.ItemDiscount, total, "", kind))
	return nil
}

func (b *Builder) accumulateDiscount(ctx context.Context, repos *ports.RepositoryProvider, alloc DiscountAllocation) error {
	switch alloc.ItemType {
	case domain.ItemTicketSale:
		ticket, ok := b.ticketsTouched[alloc.ItemID]
		if !ok {
			loaded, err := repos.Tickets.FindTicketByID(ctx, alloc.ItemID)
			if err != nil {
				return fmt.Errorf("loading ticket %s for discount: %w", alloc.ItemID, err)
			}
			ticket = loaded
			b.ticketsTouched[ticket.ID] = ticket
		}
		ticket.Notes.DiscountValue = ticket.Notes.DiscountValue.Add(alloc.Amount)
		discountValue := ticket.Notes.DiscountValue
		b.postHooks = append(b.postHooks, func(ctx context.Context, repos *ports.RepositoryProvider) error {
			return repos.Tickets.UpdateTicketDiscount(ctx, ticket.ID, discountValue.String())
		})
	case domain.ItemRoutePass:
		pass, ok := b.routePassesTouched[alloc.ItemID]
		if !ok {
			loaded, err := repos.RoutePasses.FindRoutePassByID(ctx, alloc.ItemID)
			if err != nil {
				return fmt.Errorf("loading route pass %s for discount: %w", alloc.ItemID, err)
			}
			pass = loaded
			b.routePassesTouched[pass.ID] = pass
		}
		pass.Notes.DiscountValue = pass.Notes.DiscountValue.Add(alloc.Amount)
		discountValue := pass.Notes.DiscountValue
		b.postHooks = append(b.postHooks, func(ctx context.Context, repos *ports.RepositoryProvider) error {
			return repos.RoutePasses.UpdateRoutePassDiscount(ctx, pass.ID, discountValue.String())
		})
	default:
		return apperrors.NewInternalError(fmt.Sprintf("discount allocation against unsupported item type %q", alloc.ItemType), nil)
	}
	return nil
}

// ExcessCredit returns the sum of credits minus the sum of debits across
// all items currently on the builder.
func (b *Builder) ExcessCredit() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range b.Items {
		sum = sum.Add(item.Credit).Sub(item.Debit)
	}
	return sum
}

// FinalizeForPayment appends payment/transfer/COGS lines sized to close
// out any positive excess credit.
func (b *Builder) FinalizeForPayment(companyID string) {
	excess := b.ExcessCredit()
	if !excess.IsPositive() {
		return
	}
	b.Items = append(b.Items,
		domain.NewDebit(domain.ItemPayment, excess, "", ""),
	)
	b.Items[len(b.Items)-1].CompanyID = companyID
	b.Items = append(b.Items,
		domain.NewCredit(domain.ItemTransfer, excess, "", ""),
	)
	b.Items[len(b.Items)-1].CompanyID = companyID
	b.Items = append(b.Items,
		domain.NewDebit(domain.ItemAccount, excess, "", "COGS mirror"),
	)
}

// Clone returns a copy of the builder whose item, trip, touched-entity,
// post-hook and undo collections can be changed without affecting b.
func (b *Builder) Clone() *Builder {
	clone := New(b.Creator, b.Committed, b.DryRun, b.Description)
	clone.Items = append(clone.Items, b.Items...)
	for id, trip := range b.TripsByID {
		clone.TripsByID[id] = trip
	}
	for id, ticket := range b.ticketsTouched {
		copied := *ticket
		clone.ticketsTouched[id] = &copied
	}
	for id, pass := range b.routePassesTouched {
		copied := *pass
		clone.routePassesTouched[id] = &copied
	}
	clone.postHooks = append(clone.postHooks, b.postHooks...)
	clone.undoOps = append(clone.undoOps, b.undoOps...)
	return clone
}

// Build validates the zero-sum invariant, persists the Transaction (unless
// DryRun), runs postHooks, and returns the persisted Transaction plus an
// UndoFn that replays recorded undo ops in reverse.
func (b *Builder) Build(ctx context.Context, repos *ports.RepositoryProvider, txType domain.TransactionType) (*domain.Transaction, UndoFn, error) {
	sum := decimal.Zero
	for _, item := range b.Items {
		sum = sum.Add(item.Debit).Sub(item.Credit)
	}
	if sum.Abs().GreaterThanOrEqual(domain.ZeroSumTolerance) {
		return nil, nil, apperrors.NewInternalError(fmt.Sprintf("transaction does not balance: signed sum %s", sum.String()), nil)
	}

	txn := &domain.Transaction{
		ID:                   uuid.NewString(),
		Type:                 txType,
		Committed:            b.Committed,
		Description:          b.Description,
		CreatedBy:            b.Creator,
		Items:                b.Items,
		RelatedTransactionID: b.relatedTxnID,
	}
	for i := range txn.Items {
		txn.Items[i].TransactionID = txn.ID
		if txn.Items[i].ID == "" {
			txn.Items[i].ID = uuid.NewString()
		}
	}

	if b.DryRun {
		return txn, b.undoFn(), nil
	}

	if err := repos.Transactions.SaveTransaction(ctx, txn); err != nil {
		return nil, nil, fmt.Errorf("saving transaction: %w", err)
	}
	for _, hook := range b.postHooks {
		if err := hook(ctx, repos); err != nil {
			return nil, nil, fmt.Errorf("running post-transaction hook: %w", err)
		}
	}

	return txn, b.undoFn(), nil
}

func (b *Builder) undoFn() UndoFn {
	ops := make([]UndoOp, len(b.undoOps))
	copy(ops, b.undoOps)
	return func(ctx context.Context, repos *ports.RepositoryProvider) error {
		for i := len(ops) - 1; i >= 0; i-- {
			if err := ops[i].Apply(ctx, repos); err != nil {
				return fmt.Errorf("undo step %d: %w", i, err)
			}
		}
		return nil
	}
}

// RecordRoutePassRedemption appends an UndoOp restoring a redeemed pass to
// valid, used by the RoutePassApplier.
func (b *Builder) RecordRoutePassRedemption(passID string) {
	b.undoOps = append(b.undoOps, RestoreRoutePassStatus{RoutePassID: passID, Prior: domain.RoutePassValid})
}

// RecordRoutePassRefundUndo appends an UndoOp restoring a refunded pass to
// its prior status, used by RefundWorkflow.
func (b *Builder) RecordRoutePassRefundUndo(passID string, prior domain.RoutePassStatus) {
	b.undoOps = append(b.undoOps, RestoreRoutePassStatus{RoutePassID: passID, Prior: prior})
}

// RecordTicketRefundUndo appends an UndoOp restoring a refunded ticket to
// its prior status, used by RefundWorkflow.
func (b *Builder) RecordTicketRefundUndo(ticketID string, prior domain.TicketStatus) {
	b.undoOps = append(b.undoOps, RestoreTicketStatus{TicketID: ticketID, Prior: prior})
}

// AddPostHook registers a hook to run after the Transaction is persisted,
// used by appliers that need to flip ticket/route-pass status alongside
// the builder's own bookkeeping.
func (b *Builder) AddPostHook(hook func(ctx context.Context, repos *ports.RepositoryProvider) error) {
	b.postHooks = append(b.postHooks, hook)
}

// AppendItem pushes a raw TransactionItem, used by components (gateway
// adapter, route-pass applier) that construct an item directly rather than
// through ApplyDiscount/FinalizeForPayment.
func (b *Builder) AppendItem(item domain.TransactionItem) {
	b.Items = append(b.Items, item)
}
