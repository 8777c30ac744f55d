package services

import (
	"context"
	"database/sql"
	"errors"

	"splitbook/internal/db"
	"splitbook/internal/store"

	"github.com/jmoiron/sqlx"
)

var (
	ErrSelfFriend         = errors.New("cannot befriend yourself")
	ErrAccountNotVerified = errors.New("both accounts must be verified")
)

type FriendshipAccountStore interface {
	GetByID(ctx context.Context, accountID string) (store.Account, error)
}

type FriendshipEdgeStore interface {
	InsertEdges(ctx context.Context, tx store.Execer, a, b string) error
	Exists(ctx context.Context, a, b string) (bool, error)
	ListFriends(ctx context.Context, accountID string) ([]store.Friend, error)
}

// FriendshipService maintains the symmetric is-friend-of relation. Edges
// only ever exist in pairs and only between verified accounts.
type FriendshipService struct {
	txRunner    db.TxRunner
	accounts    FriendshipAccountStore
	friendships FriendshipEdgeStore
}

func NewFriendshipService(txRunner db.TxRunner, accounts FriendshipAccountStore, friendships FriendshipEdgeStore) *FriendshipService {
	return &FriendshipService{
		txRunner:    txRunner,
		accounts:    accounts,
		friendships: friendships,
	}
}

// CreateBidirectional writes both directed edges in one transaction.
// Creating an existing friendship is a successful no-op, so concurrent
// callers for the same pair converge on a single edge set.
func (s *FriendshipService) CreateBidirectional(ctx context.Context, a, b string) error {
	if a == b {
		return ErrSelfFriend
	}
	first, err := s.accounts.GetByID(ctx, a)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	second, err := s.accounts.GetByID(ctx, b)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if !first.Verified || !second.Verified {
		return ErrAccountNotVerified
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.friendships.InsertEdges(ctx, tx, a, b)
	})
}

func (s *FriendshipService) AreFriends(ctx context.Context, a, b string) (bool, error) {
	return s.friendships.Exists(ctx, a, b)
}

func (s *FriendshipService) ListFriends(ctx context.Context, accountID string) ([]store.Friend, error) {
	return s.friendships.ListFriends(ctx, accountID)
}
