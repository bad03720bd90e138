package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/fintrack/internal/models"
)

const transactionColumns = "id, user_id, amount, category, tx_date, description, kind, created_at"

// CreateTransaction persists a new transaction document.
func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	// Generate ID and server timestamp if not set
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	// Stored with microsecond precision; keep the caller's copy consistent.
	tx.CreatedAt = tx.CreatedAt.Truncate(time.Microsecond)

	_, err := s.db.ExecContext(ctx,
		s.rebind("INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)"),
		tx.ID, tx.UserID, tx.Amount, tx.Category, tx.Date, tx.Description, string(tx.Type), tx.CreatedAt.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// GetTransaction retrieves a transaction by ID.
func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind("SELECT "+transactionColumns+" FROM transactions WHERE id = ?"),
		id,
	)

	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &tx, nil
}

// DeleteTransaction removes a transaction by ID.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM transactions WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

// ListTransactionsByOwner returns all transactions owned by ownerID,
// newest date first.
func (s *Store) ListTransactionsByOwner(ctx context.Context, ownerID string) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT "+transactionColumns+` FROM transactions
		WHERE user_id = ?
		ORDER BY tx_date DESC, created_at DESC, id ASC`),
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (models.Transaction, error) {
	var (
		tx        models.Transaction
		kind      string
		createdAt int64
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Category, &tx.Date, &tx.Description, &kind, &createdAt)
	if err != nil {
		return models.Transaction{}, err
	}
	tx.Type = models.Kind(kind)
	tx.CreatedAt = time.UnixMicro(createdAt).UTC()
	return tx, nil
}
