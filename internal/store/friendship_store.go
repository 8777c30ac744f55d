package store

import (
	"context"
	"time"
)

type FriendshipStore struct {
	db DB
}

func NewFriendshipStore(db DB) *FriendshipStore {
	return &FriendshipStore{db: db}
}

type Friend struct {
	AccountID string    `db:"account_id"`
	Name      *string   `db:"name"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
}

// InsertEdges writes both directed rows of a friendship. ON CONFLICT DO
// NOTHING makes the pair idempotent; running inside the caller's transaction
// means no reader can ever observe just one of the two edges.
func (s *FriendshipStore) InsertEdges(ctx context.Context, tx Execer, a, b string) error {
	query := `
		INSERT INTO friendships (account_id, friend_id)
		VALUES ($1, $2)
		ON CONFLICT (account_id, friend_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, query, a, b); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, query, b, a)
	return err
}

func (s *FriendshipStore) Exists(ctx context.Context, a, b string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM friendships WHERE account_id = $1 AND friend_id = $2
		)
	`, a, b)
	return exists, err
}

func (s *FriendshipStore) ListFriends(ctx context.Context, accountID string) ([]Friend, error) {
	var rows []Friend
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.id AS account_id, a.name, a.email, f.created_at
		FROM friendships f
		JOIN accounts a ON a.id = f.friend_id
		WHERE f.account_id = $1
		ORDER BY f.created_at ASC
	`, accountID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
