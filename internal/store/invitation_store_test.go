package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"
)

func TestInvitationStoreAcceptIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "status = 'pending'") || !strings.Contains(query, "expires_at > NOW()") {
				t.Fatalf("accept must guard on pending status and expiry: %s", query)
			}
			if args[0] != "tok-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewInvitationStore(stubDB{})
	accepted, err := store.Accept(ctx, execer, "tok-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accepted != 1 {
		t.Fatalf("expected one row accepted, got %d", accepted)
	}
}

func TestInvitationStoreAcceptLoserSeesZeroRows(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(context.Context, string, ...any) (sql.Result, error) {
			return stubResult{rows: 0}, nil
		},
	}
	store := NewInvitationStore(stubDB{})
	accepted, err := store.Accept(ctx, execer, "tok-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accepted != 0 {
		t.Fatalf("expected zero rows for already-accepted token, got %d", accepted)
	}
}

func TestInvitationStoreFindPendingFiltersLive(t *testing.T) {
	ctx := context.Background()
	store := NewInvitationStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "status = 'pending'") || !strings.Contains(query, "expires_at > NOW()") {
				t.Fatalf("find pending must exclude expired and accepted rows: %s", query)
			}
			if len(args) != 2 || args[0] != "inviter-1" || args[1] != "bob@x.com" {
				t.Fatalf("unexpected args: %#v", args)
			}
			row := dest.(*Invitation)
			row.Token = "tok-live"
			row.InviterID = "inviter-1"
			row.InviteeEmail = "bob@x.com"
			row.Status = "pending"
			row.ExpiresAt = time.Now().Add(time.Hour)
			return nil
		},
	})
	invitation, err := store.FindPending(ctx, "inviter-1", "bob@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invitation.Token != "tok-live" {
		t.Fatalf("unexpected invitation: %#v", invitation)
	}
}
