package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"focus-quest-bot/internal/model"
)

// TransactionRepository handles the FOCUS ledger.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create appends a ledger row. An empty description is stored as NULL.
func (r *TransactionRepository) Create(ctx context.Context, userID int64, amount int64, txType string, description string) (*model.Transaction, error) {
	const query = `
		INSERT INTO focus_transactions (user_id, amount, type, description, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, user_id, amount, type, description, created_at
	`

	var desc *string
	if description != "" {
		desc = &description
	}

	var tx model.Transaction
	err := r.pool.QueryRow(ctx, query, userID, amount, txType, desc).Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.Type,
		&tx.Description,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return &tx, nil
}

// GetByUserID retrieves a user's ledger rows, newest first.
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	const query = `
		SELECT id, user_id, amount, type, description, created_at
		FROM focus_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var txs []*model.Transaction
	for rows.Next() {
		var tx model.Transaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Type, &tx.Description, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, &tx)
	}
	return txs, rows.Err()
}

// SumByTypes returns the sum of a user's ledger rows of the given types.
func (r *TransactionRepository) SumByTypes(ctx context.Context, userID int64, types []string) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM focus_transactions
		WHERE user_id = $1 AND type = ANY($2)
	`

	var sum int64
	if err := r.pool.QueryRow(ctx, query, userID, types).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}
