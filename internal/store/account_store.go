package store

import (
	"context"
	"time"
)

type AccountStore struct {
	db DB
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

type Account struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	Name         *string    `db:"name"`
	PasswordHash string     `db:"password_hash"`
	Verified     bool       `db:"verified"`
	CreatedAt    time.Time  `db:"created_at"`
	VerifiedAt   *time.Time `db:"verified_at"`
}

func (s *AccountStore) Create(ctx context.Context, tx Execer, id, email string, name *string, passwordHash string) error {
	query := `
		INSERT INTO accounts (id, email, name, password_hash, verified)
		VALUES ($1, $2, $3, $4, FALSE)
	`
	_, err := tx.ExecContext(ctx, query, id, email, name, passwordHash)
	return err
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (Account, error) {
	var row Account
	err := s.db.GetContext(ctx, &row, `
		SELECT id, email, name, password_hash, verified, created_at, verified_at
		FROM accounts
		WHERE email = $1
	`, email)
	return row, err
}

func (s *AccountStore) GetByID(ctx context.Context, accountID string) (Account, error) {
	var row Account
	err := s.db.GetContext(ctx, &row, `
		SELECT id, email, name, password_hash, verified, created_at, verified_at
		FROM accounts
		WHERE id = $1
	`, accountID)
	return row, err
}

// MarkVerified flips the one-way verified flag. The WHERE guard makes the
// transition happen at most once; the returned count is zero when the
// account was already verified or does not exist.
func (s *AccountStore) MarkVerified(ctx context.Context, tx Execer, accountID string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET verified = TRUE, verified_at = NOW()
		WHERE id = $1 AND verified = FALSE
	`, accountID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
