package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fleetcal/backend/internal/storage/models"
)

// AccountRepository provides data access for tenant accounts.
type AccountRepository struct {
	BaseRepository
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new account with a freshly generated API key.
func (r *AccountRepository) Create(ctx context.Context, acct *models.Account) error {
	acct.ID = GenerateID()
	if acct.APIKey == "" {
		acct.APIKey = GenerateID()
	}
	acct.CreatedAt = r.Now()
	acct.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO accounts (id, business_name, email, api_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, acct.ID, acct.BusinessName, acct.Email, acct.APIKey, acct.CreatedAt, acct.UpdatedAt)

	if err != nil {
		return fmt.Errorf("inserting account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByAPIKey retrieves the account owning the given API key.
// Returns nil without error when the key is unknown.
func (r *AccountRepository) GetByAPIKey(ctx context.Context, key string) (*models.Account, error) {
	return r.getOne(ctx, "api_key = ?", key)
}

func (r *AccountRepository) getOne(ctx context.Context, where string, arg any) (*models.Account, error) {
	acct := &models.Account{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, business_name, email, api_key, created_at, updated_at
		FROM accounts WHERE `+where, arg).Scan(
		&acct.ID, &acct.BusinessName, &acct.Email, &acct.APIKey,
		&acct.CreatedAt, &acct.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}

	return acct, nil
}
