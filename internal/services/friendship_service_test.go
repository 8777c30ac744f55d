package services

import (
	"context"
	"errors"
	"testing"

	"splitbook/internal/store"
)

func TestCreateBidirectionalRejectsSelf(t *testing.T) {
	service := NewFriendshipService(fakeTxRunner{}, stubAccountStore{}, stubFriendshipEdgeStore{})
	if err := service.CreateBidirectional(context.Background(), "alice", "alice"); !errors.Is(err, ErrSelfFriend) {
		t.Fatalf("expected ErrSelfFriend, got %v", err)
	}
}

func TestCreateBidirectionalUnknownAccount(t *testing.T) {
	service := NewFriendshipService(fakeTxRunner{}, stubAccountStore{}, stubFriendshipEdgeStore{})
	if err := service.CreateBidirectional(context.Background(), "alice", "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateBidirectionalRequiresBothVerified(t *testing.T) {
	accounts := stubAccountStore{
		getByIDFn: func(_ context.Context, accountID string) (store.Account, error) {
			return store.Account{ID: accountID, Verified: accountID == "alice"}, nil
		},
	}
	edges := stubFriendshipEdgeStore{
		insertFn: func(context.Context, store.Execer, string, string) error {
			t.Fatalf("must not write edges for an unverified account")
			return nil
		},
	}
	service := NewFriendshipService(fakeTxRunner{}, accounts, edges)
	if err := service.CreateBidirectional(context.Background(), "alice", "bob"); !errors.Is(err, ErrAccountNotVerified) {
		t.Fatalf("expected ErrAccountNotVerified, got %v", err)
	}
}

func TestCreateBidirectionalIsIdempotent(t *testing.T) {
	ctx := context.Background()
	accounts := stubAccountStore{
		getByIDFn: func(_ context.Context, accountID string) (store.Account, error) {
			return store.Account{ID: accountID, Verified: true}, nil
		},
	}
	mem := newMemFriendshipStore(newMemAccountStore())
	service := NewFriendshipService(fakeTxRunner{}, accounts, mem)

	if err := service.CreateBidirectional(ctx, "alice", "bob"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := service.CreateBidirectional(ctx, "bob", "alice"); err != nil {
		t.Fatalf("repeat creation must be a no-op: %v", err)
	}
	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		ok, err := service.AreFriends(ctx, pair[0], pair[1])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatalf("expected %s -> %s edge to exist", pair[0], pair[1])
		}
	}
}
