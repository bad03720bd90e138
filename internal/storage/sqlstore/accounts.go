package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/fintrack/internal/models"
	"github.com/mmynk/fintrack/internal/storage"
)

// CreateAccount inserts a credential record and its profile document in one transaction.
func (s *Store) CreateAccount(ctx context.Context, account *models.Account, profile *models.UserProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		s.rebind("INSERT INTO accounts (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)"),
		account.ID, account.Email, account.PasswordHash, account.CreatedAt,
	)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("failed to create account: %w", storage.ErrDuplicate)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		s.rebind("INSERT INTO users (id, email, full_name, created_at) VALUES (?, ?, ?, ?)"),
		account.ID, profile.Email, profile.FullName, profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetAccountByEmail retrieves an account by its email address.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.getAccount(ctx, "email", email)
}

// GetAccountByID retrieves an account by its ID.
func (s *Store) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	return s.getAccount(ctx, "id", id)
}

func (s *Store) getAccount(ctx context.Context, column, value string) (*models.Account, error) {
	query := `
		SELECT id, email, password_hash, created_at
		FROM accounts
		WHERE ` + column + ` = ?
	`

	account := &models.Account{}
	err := s.db.QueryRowContext(ctx, s.rebind(query), value).Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil // Account not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by %s: %w", column, err)
	}

	return account, nil
}

// GetProfile reads the users/{uid} document.
func (s *Store) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	profile := &models.UserProfile{}
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT email, full_name, created_at FROM users WHERE id = ?"),
		uid,
	).Scan(&profile.Email, &profile.FullName, &profile.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// PutProfile creates or replaces the users/{uid} document.
func (s *Store) PutProfile(ctx context.Context, uid string, profile *models.UserProfile) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO users (id, email, full_name, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			full_name = excluded.full_name,
			created_at = excluded.created_at
	`), uid, profile.Email, profile.FullName, profile.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}
