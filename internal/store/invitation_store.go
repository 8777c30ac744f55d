package store

import (
	"context"
	"time"
)

type InvitationStore struct {
	db DB
}

func NewInvitationStore(db DB) *InvitationStore {
	return &InvitationStore{db: db}
}

type Invitation struct {
	Token        string     `db:"token"`
	InviterID    string     `db:"inviter_id"`
	InviteeEmail string     `db:"invitee_email"`
	Status       string     `db:"status"`
	CreatedAt    time.Time  `db:"created_at"`
	ExpiresAt    time.Time  `db:"expires_at"`
	AcceptedAt   *time.Time `db:"accepted_at"`
}

func (s *InvitationStore) Create(ctx context.Context, tx Execer, token, inviterID, inviteeEmail string, expiresAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO invitations (token, inviter_id, invitee_email, status, expires_at)
		VALUES ($1, $2, $3, 'pending', $4)
	`, token, inviterID, inviteeEmail, expiresAt)
	return err
}

func (s *InvitationStore) GetByToken(ctx context.Context, token string) (Invitation, error) {
	var row Invitation
	err := s.db.GetContext(ctx, &row, `
		SELECT token, inviter_id, invitee_email, status, created_at, expires_at, accepted_at
		FROM invitations
		WHERE token = $1
	`, token)
	return row, err
}

// FindPending returns the newest live invitation for an (inviter, invitee)
// pair, used to reuse tokens instead of minting duplicates on repeated
// invite clicks.
func (s *InvitationStore) FindPending(ctx context.Context, inviterID, inviteeEmail string) (Invitation, error) {
	var row Invitation
	err := s.db.GetContext(ctx, &row, `
		SELECT token, inviter_id, invitee_email, status, created_at, expires_at, accepted_at
		FROM invitations
		WHERE inviter_id = $1 AND invitee_email = $2 AND status = 'pending' AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`, inviterID, inviteeEmail)
	return row, err
}

// Accept flips a pending invitation to accepted. The compare-and-set WHERE
// clause guarantees exactly one concurrent consumer wins; everyone else
// sees zero rows affected.
func (s *InvitationStore) Accept(ctx context.Context, tx Execer, token string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE invitations
		SET status = 'accepted', accepted_at = NOW()
		WHERE token = $1 AND status = 'pending' AND expires_at > NOW()
	`, token)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
