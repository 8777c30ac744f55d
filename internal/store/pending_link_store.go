package store

import "context"

// PendingLinkStore tracks friendships that are waiting for the invitee to
// finish verification. A row exists from the moment a registration consumes
// an invitation until the resulting friendship has been committed.
type PendingLinkStore struct {
	db DB
}

func NewPendingLinkStore(db DB) *PendingLinkStore {
	return &PendingLinkStore{db: db}
}

func (s *PendingLinkStore) Create(ctx context.Context, tx Execer, accountID, inviterID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO pending_links (account_id, inviter_id)
		VALUES ($1, $2)
		ON CONFLICT (account_id) DO NOTHING
	`, accountID, inviterID)
	return err
}

func (s *PendingLinkStore) GetInviter(ctx context.Context, accountID string) (string, error) {
	var inviterID string
	err := s.db.GetContext(ctx, &inviterID, `
		SELECT inviter_id FROM pending_links WHERE account_id = $1
	`, accountID)
	return inviterID, err
}

func (s *PendingLinkStore) Delete(ctx context.Context, tx Execer, accountID string) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM pending_links WHERE account_id = $1
	`, accountID)
	return err
}
