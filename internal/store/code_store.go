package store

import (
	"context"
	"time"
)

type CodeStore struct {
	db DB
}

func NewCodeStore(db DB) *CodeStore {
	return &CodeStore{db: db}
}

// Upsert installs a fresh code for the account, superseding any previous one
// in a single atomic statement. The table is keyed by account_id so at most
// one code can ever be active.
func (s *CodeStore) Upsert(ctx context.Context, tx Execer, accountID, code string, expiresAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO verification_codes (account_id, code, issued_at, expires_at)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (account_id)
		DO UPDATE SET code = EXCLUDED.code, issued_at = NOW(), expires_at = EXCLUDED.expires_at
	`, accountID, code, expiresAt)
	return err
}

// Consume deletes the code if it matches and has not expired. The returned
// count decides success: a stale, mismatched, or already-consumed code
// affects zero rows, so concurrent verifies resolve to a single winner.
func (s *CodeStore) Consume(ctx context.Context, tx Execer, accountID, code string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		DELETE FROM verification_codes
		WHERE account_id = $1 AND code = $2 AND expires_at > NOW()
	`, accountID, code)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
