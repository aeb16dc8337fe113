package repository

import (
	"context"
	"fmt"

	"telegram-storefront/internal/model"
)

const transactionColumns = `id, user_id, amount, type, created_at, description`

// TransactionRepository handles ledger persistence. Entries are never updated or deleted.
type TransactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var tx model.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.Type,
		&tx.Date,
		&tx.Description,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// List returns ledger entries newest first.
func (r *TransactionRepository) List(ctx context.Context, filter TransactionFilter) ([]*model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE ($1::bigint = 0 OR user_id = $1)
		  AND ($2::text = '' OR type = $2)
		ORDER BY seq DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, filter.UserID, string(filter.Type), limitArg(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	transactions := []*model.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// GetByID retrieves a ledger entry by id.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "get transaction")
	}
	return tx, nil
}

// Create appends a ledger entry.
func (r *TransactionRepository) Create(ctx context.Context, tx *model.Transaction) (*model.Transaction, error) {
	if err := validateTransaction(tx); err != nil {
		return nil, err
	}

	t := *tx
	if t.ID == "" {
		t.ID = newID()
	}
	if t.Date.IsZero() {
		t.Date = now()
	}

	query := `
		INSERT INTO transactions (id, user_id, amount, type, created_at, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + transactionColumns

	created, err := scanTransaction(r.db.QueryRow(ctx, query,
		t.ID,
		t.UserID,
		t.Amount,
		string(t.Type),
		t.Date,
		t.Description,
	))
	if err != nil {
		return nil, mapError(err, "create transaction")
	}
	return created, nil
}
