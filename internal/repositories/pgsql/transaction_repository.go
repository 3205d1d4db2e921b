package pgsql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

// TransactionRepository implements ports.TransactionReader and
// ports.TransactionWriter. SaveTransaction inserts the header with one
// Exec, then batches every item insert into one round trip, the way a
// journal repository batches transaction lines against a journal.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

var _ ports.TransactionReader = (*TransactionRepository)(nil)
var _ ports.TransactionWriter = (*TransactionRepository)(nil)

func (r *TransactionRepository) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	querier := q(ctx, r.pool)

	_, err := querier.Exec(ctx, `
		INSERT INTO transactions (id, type, committed, description, created_by_scope, created_by_id, related_transaction_id, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`, tx.ID, tx.Type, tx.Committed, tx.Description, tx.CreatedBy.Scope, tx.CreatedBy.ID, nullableString(tx.RelatedTransactionID),
		tx.CreatedAt, tx.CreatedBy.ID, tx.LastUpdatedAt, tx.LastUpdatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert transaction "+tx.ID, err)
	}

	if len(tx.Items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	itemQuery := `
		INSERT INTO transaction_items (id, transaction_id, item_type, item_id, debit, credit, notes, company_id, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	for _, item := range tx.Items {
		batch.Queue(itemQuery,
			item.ID, tx.ID, item.ItemType, nullableString(item.ItemID), item.Debit, item.Credit, item.Notes, nullableString(item.CompanyID),
			item.CreatedAt, item.CreatedBy, item.LastUpdatedAt, item.LastUpdatedBy,
		)
	}

	br := querier.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return apperrors.NewAppError(500, "failed to insert transaction item for "+tx.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to close transaction item batch for "+tx.ID, err)
	}
	return nil
}

func (r *TransactionRepository) UpdateTransactionCommitted(ctx context.Context, transactionID string, committed bool) error {
	cmd, err := q(ctx, r.pool).Exec(ctx, `UPDATE transactions SET committed = $2, last_updated_at = now() WHERE id = $1;`, transactionID, committed)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update committed flag for transaction "+transactionID, err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("transaction " + transactionID + " not found")
	}
	return nil
}

func (r *TransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	querier := q(ctx, r.pool)

	var t domain.Transaction
	var scope domain.Scope
	var creatorID string
	var relatedID *string
	err := querier.QueryRow(ctx, `
		SELECT id, type, committed, description, created_by_scope, created_by_id, related_transaction_id, created_at, created_by, last_updated_at, last_updated_by
		FROM transactions WHERE id = $1;
	`, transactionID).Scan(&t.ID, &t.Type, &t.Committed, &t.Description, &scope, &creatorID, &relatedID,
		&t.CreatedAt, &t.CreatedBy, &t.LastUpdatedAt, &t.LastUpdatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("transaction " + transactionID + " not found")
		}
		return nil, apperrors.NewAppError(500, "failed to find transaction "+transactionID, err)
	}
	t.CreatedBy = domain.Creator{Scope: scope, ID: creatorID}
	if relatedID != nil {
		t.RelatedTransactionID = *relatedID
	}

	items, err := r.findItems(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	t.Items = items
	return &t, nil
}

func (r *TransactionRepository) findItems(ctx context.Context, transactionID string) ([]domain.TransactionItem, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT id, transaction_id, item_type, item_id, debit, credit, notes, company_id, created_at, created_by, last_updated_at, last_updated_by
		FROM transaction_items WHERE transaction_id = $1;
	`, transactionID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query items for transaction "+transactionID, err)
	}
	defer rows.Close()

	var items []domain.TransactionItem
	for rows.Next() {
		var it domain.TransactionItem
		var itemID, companyID *string
		if err := rows.Scan(&it.ID, &it.TransactionID, &it.ItemType, &itemID, &it.Debit, &it.Credit, &it.Notes, &companyID,
			&it.CreatedAt, &it.CreatedBy, &it.LastUpdatedAt, &it.LastUpdatedBy); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan transaction item", err)
		}
		if itemID != nil {
			it.ItemID = *itemID
		}
		if companyID != nil {
			it.CompanyID = *companyID
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating transaction items", err)
	}
	return items, nil
}

// FindTicketSaleTransaction locates the Transaction carrying the
// ticketSale item for ticketID.
func (r *TransactionRepository) FindTicketSaleTransaction(ctx context.Context, ticketID string) (*domain.Transaction, error) {
	var transactionID string
	err := q(ctx, r.pool).QueryRow(ctx, `
		SELECT transaction_id FROM transaction_items WHERE item_type = $1 AND item_id = $2 LIMIT 1;
	`, domain.ItemTicketSale, ticketID).Scan(&transactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("no ticket sale transaction for ticket " + ticketID)
		}
		return nil, apperrors.NewAppError(500, "failed to find ticket sale transaction for "+ticketID, err)
	}
	return r.FindTransactionByID(ctx, transactionID)
}

// FindRoutePassPurchaseTransaction locates the Transaction carrying the
// routePass purchase item for routePassID.
func (r *TransactionRepository) FindRoutePassPurchaseTransaction(ctx context.Context, routePassID string) (*domain.Transaction, error) {
	var transactionID string
	err := q(ctx, r.pool).QueryRow(ctx, `
		SELECT transaction_id FROM transaction_items WHERE item_type = $1 AND item_id = $2 LIMIT 1;
	`, domain.ItemRoutePass, routePassID).Scan(&transactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("no route pass purchase transaction for " + routePassID)
		}
		return nil, apperrors.NewAppError(500, "failed to find route pass purchase transaction for "+routePassID, err)
	}
	return r.FindTransactionByID(ctx, transactionID)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
